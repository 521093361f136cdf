package types

import "github.com/golang-jwt/jwt/v4"

type Claims struct {
	Email string `json:"email"`
	Role  Role   `json:"role"`
	jwt.RegisteredClaims
}

// Viewer is the authenticated caller as seen by the services.
type Viewer struct {
	ID   uint
	Role Role
}

func (v Viewer) IsAdmin() bool {
	return v.Role == ROLE_ADMIN
}
