package models

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Principal identifies an authenticated caller: its role, its id in the role's identity
// table and its id in the unified user index.
type Principal struct {
	Role     Role  `json:"role"`
	LocalID  int64 `json:"id"`
	GlobalID int64 `json:"global_id"`
}

func (p Principal) String() string {
	return fmt.Sprintf("%s:%d", p.Role, p.LocalID)
}

// Session is the authenticated request state handed to handlers and services.
type Session struct {
	ID        string
	Principal Principal
	ExpiresAt time.Time
}

// HasRole reports whether the session principal holds one of the roles.
func (s *Session) HasRole(roles ...Role) bool {
	if s == nil {
		return false
	}
	for _, r := range roles {
		if s.Principal.Role == r {
			return true
		}
	}
	return false
}

// Is reports whether the session belongs to the given role-local identity.
func (s *Session) Is(role Role, localID int64) bool {
	return s != nil && s.Principal.Role == role && s.Principal.LocalID == localID
}

// SessionRecord is the server-side copy of a session, removed on logout.
type SessionRecord struct {
	Principal Principal `json:"principal"`
	CreatedAt time.Time `json:"created_at"`
	IPAddress string    `json:"ip_address"`
	UserAgent string    `json:"user_agent"`
}

// SessionClaims is the payload of the signed session token.
type SessionClaims struct {
	Role     Role  `json:"role"`
	LocalID  int64 `json:"local_id"`
	GlobalID int64 `json:"global_id"`
	jwt.RegisteredClaims
}

// Principal extracts the principal carried by the claims.
func (c *SessionClaims) Principal() Principal {
	return Principal{Role: c.Role, LocalID: c.LocalID, GlobalID: c.GlobalID}
}
