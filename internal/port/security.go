package port

import (
	"time"

	"github.com/Varun-1606/quick-cart/internal/core/domain"
)

type PasswordHasher interface {
	Hash(password string) (string, error)
	// Compare returns nil only when password matches hash.
	Compare(hash, password string) error
}

type SessionClaims struct {
	SessionID string
	UserID    string
	Role      domain.Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type TokenIssuer interface {
	Issue(claims SessionClaims) (string, error)
	Parse(token string) (SessionClaims, error)
}
