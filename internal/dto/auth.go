package dto

import (
	"time"

	"github.com/noah-isme/grievance-box-api/internal/models"
)

// LoginRequest holds credentials for one of the role login endpoints.
type LoginRequest struct {
	Email     string `json:"email" validate:"required,email,max=250"`
	Password  string `json:"password" validate:"required,max=250"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginResponse is returned after a successful login; the token is also set as a cookie.
type LoginResponse struct {
	Response  string           `json:"response"`
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expires_at"`
	User      models.Principal `json:"user"`
}
