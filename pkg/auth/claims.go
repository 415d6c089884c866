package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/fami1212/modern-e-library-hub/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID uuid.UUID
	Email  string
	Role   enums.AppRole
	JTI    string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	UserID uuid.UUID     `json:"user_id"`
	Email  string        `json:"email,omitempty"`
	Role   enums.AppRole `json:"role"`
	jwt.RegisteredClaims
}

// Identity is the explicit request-scoped caller passed into every service
// operation; core logic never reads ambient session state.
type Identity struct {
	UserID uuid.UUID
	Role   enums.AppRole
}

// IsAdmin reports whether the caller holds staff privileges.
func (i Identity) IsAdmin() bool {
	return i.Role == enums.AppRoleAdmin
}

// Identity converts validated claims into the request identity.
func (c *AccessTokenClaims) Identity() Identity {
	if c == nil {
		return Identity{}
	}
	return Identity{UserID: c.UserID, Role: c.Role}
}
