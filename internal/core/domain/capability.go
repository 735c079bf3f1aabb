package domain

type Capability string

const (
	CapBrowseCatalog Capability = "catalog:browse"
	CapManageCart    Capability = "cart:manage"
	CapPlaceOrder    Capability = "order:place"
	CapViewOwnOrders Capability = "order:view-own"
	CapReviewOrders  Capability = "order:review"
	CapManageCatalog Capability = "catalog:manage"
	CapViewDashboard Capability = "dashboard:view"
)

var anonymousCapabilities = map[Capability]bool{
	CapBrowseCatalog: true,
}

var roleCapabilities = map[Role]map[Capability]bool{
	RoleCustomer: {
		CapBrowseCatalog: true,
		CapManageCart:    true,
		CapPlaceOrder:    true,
		CapViewOwnOrders: true,
	},
	RoleAdmin: {
		CapBrowseCatalog: true,
		CapReviewOrders:  true,
		CapManageCatalog: true,
		CapViewDashboard: true,
	},
}

// Authorize is the single role check every service operation goes through.
// A nil actor is an anonymous visitor.
func Authorize(actor *User, c Capability) error {
	if actor == nil {
		if anonymousCapabilities[c] {
			return nil
		}
		return ErrUnauthenticated
	}
	if roleCapabilities[actor.Role][c] {
		return nil
	}
	return ErrForbidden
}
