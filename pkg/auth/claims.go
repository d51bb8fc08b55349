package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// PlatformClaims are the claims carried by access tokens from the hosted
// identity platform. The subject is the user id; app_role is the storefront role.
type PlatformClaims struct {
	Email   string         `json:"email,omitempty"`
	AppRole enums.UserRole `json:"app_role,omitempty"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim.
func (c *PlatformClaims) UserID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// Role defaults to shopper when the platform did not assign one.
func (c *PlatformClaims) Role() enums.UserRole {
	if c.AppRole == "" {
		return enums.UserRoleShopper
	}
	return c.AppRole
}

// TokenPayload captures the data needed to sign a platform-compatible token.
type TokenPayload struct {
	UserID uuid.UUID
	Email  string
	Role   enums.UserRole
}
