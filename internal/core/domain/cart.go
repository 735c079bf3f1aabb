package domain

import "github.com/shopspring/decimal"

// MaxLineQuantity caps a single cart line.
const MaxLineQuantity = 999

// CartItem pairs a product snapshot with a positive quantity.
type CartItem struct {
	Product  Product
	Quantity int
}

func (i CartItem) Subtotal() decimal.Decimal {
	return i.Product.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart is the session-scoped basket of one customer. Lines are keyed by
// product id.
type Cart struct {
	UserID string
	Items  []CartItem
}

// Add increments an existing line or appends a new one.
func (c *Cart) Add(p Product, quantity int) {
	for i := range c.Items {
		if c.Items[i].Product.ID == p.ID {
			c.Items[i].Quantity += quantity
			return
		}
	}
	c.Items = append(c.Items, CartItem{Product: p, Quantity: quantity})
}

// Quantity returns the quantity on the line for productID, or zero.
func (c Cart) Quantity(productID string) int {
	for _, item := range c.Items {
		if item.Product.ID == productID {
			return item.Quantity
		}
	}
	return 0
}

func (c *Cart) Remove(productID string) bool {
	for i := range c.Items {
		if c.Items[i].Product.ID == productID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return true
		}
	}
	return false
}

// SetQuantity updates a line; a non-positive quantity removes it.
func (c *Cart) SetQuantity(productID string, quantity int) bool {
	if quantity <= 0 {
		return c.Remove(productID)
	}
	for i := range c.Items {
		if c.Items[i].Product.ID == productID {
			c.Items[i].Quantity = quantity
			return true
		}
	}
	return false
}

func (c *Cart) Clear() {
	c.Items = nil
}

func (c Cart) Empty() bool {
	return len(c.Items) == 0
}

func (c Cart) TotalItems() int {
	n := 0
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}

func (c Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// SameLines reports whether both carts hold the same products, prices and
// quantities in the same order.
func (c Cart) SameLines(other Cart) bool {
	if len(c.Items) != len(other.Items) {
		return false
	}
	for i, item := range c.Items {
		o := other.Items[i]
		if item.Product.ID != o.Product.ID || item.Quantity != o.Quantity || !item.Product.Price.Equal(o.Product.Price) {
			return false
		}
	}
	return true
}

func (c Cart) Clone() Cart {
	return Cart{UserID: c.UserID, Items: cloneItems(c.Items)}
}

func cloneItems(items []CartItem) []CartItem {
	if len(items) == 0 {
		return nil
	}
	out := make([]CartItem, len(items))
	copy(out, items)
	return out
}
