package security

import (
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Varun-1606/quick-cart/internal/core/domain"
	"github.com/Varun-1606/quick-cart/internal/port"
)

const tokenIssuer = "quickcart"

// JWTIssuer signs session tokens with HS256.
type JWTIssuer struct {
	secret []byte
}

func NewJWTIssuer(secret string) (*JWTIssuer, error) {
	if len(secret) < 16 {
		return nil, errors.New("jwt secret must be at least 16 bytes")
	}
	return &JWTIssuer{secret: []byte(secret)}, nil
}

// NewEphemeralJWTIssuer generates a random secret; tokens do not survive a restart.
func NewEphemeralJWTIssuer() (*JWTIssuer, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, err
	}
	return &JWTIssuer{secret: secret}, nil
}

type sessionJWTClaims struct {
	SessionID string `json:"sid"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

func (i *JWTIssuer) Issue(claims port.SessionClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionJWTClaims{
		SessionID: claims.SessionID,
		Role:      string(claims.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   claims.UserID,
			IssuedAt:  jwt.NewNumericDate(claims.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
		},
	})
	return token.SignedString(i.secret)
}

func (i *JWTIssuer) Parse(raw string) (port.SessionClaims, error) {
	parsed, err := jwt.ParseWithClaims(raw, &sessionJWTClaims{}, func(token *jwt.Token) (any, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(tokenIssuer))
	if errors.Is(err, jwt.ErrTokenExpired) {
		return port.SessionClaims{}, domain.ErrSessionExpired
	}
	if err != nil {
		return port.SessionClaims{}, fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}
	claims, ok := parsed.Claims.(*sessionJWTClaims)
	if !ok || !parsed.Valid || claims.SessionID == "" || claims.Subject == "" {
		return port.SessionClaims{}, domain.ErrUnauthenticated
	}

	out := port.SessionClaims{
		SessionID: claims.SessionID,
		UserID:    claims.Subject,
		Role:      domain.Role(claims.Role),
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time.UTC()
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time.UTC()
	}
	return out, nil
}
