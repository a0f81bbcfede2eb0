package handler

import (
	"strings"

	id "watchdesk/pkg/domain"
	dErrors "watchdesk/pkg/domain-errors"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *LoginRequest) Validate() error {
	r.Email = strings.TrimSpace(r.Email)
	if r.Email == "" || r.Password == "" {
		return dErrors.New(dErrors.CodeValidation, "email and password are required")
	}
	return nil
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (r *RefreshRequest) Validate() error {
	if strings.TrimSpace(r.RefreshToken) == "" {
		return dErrors.New(dErrors.CodeValidation, "refresh_token is required")
	}
	return nil
}

// LogoutRequest optionally names the refresh token to revoke alongside the
// access token.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token,omitempty"`
}

func (r *LogoutRequest) Validate() error {
	r.RefreshToken = strings.TrimSpace(r.RefreshToken)
	return nil
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
	Gender   string `json:"gender,omitempty"`

	role id.Role
}

func (r *RegisterRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" || strings.TrimSpace(r.Email) == "" || r.Password == "" {
		return dErrors.New(dErrors.CodeValidation, "name, email and password are required")
	}
	if r.Role == "" {
		return nil
	}
	role, err := id.ParseRole(r.Role)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "invalid role")
	}
	r.role = role
	return nil
}
