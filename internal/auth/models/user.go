package models

import (
	"time"

	id "watchdesk/pkg/domain"
)

// User is an account that can sign in. Officers and managers are both users;
// Role decides what they may do.
type User struct {
	ID           id.UserID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         id.Role   `json:"role"`
	Gender       string    `json:"gender,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// TokenPair is what a successful login or refresh returns.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int       `json:"expires_in"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         *User     `json:"user"`
}

// Registration is the input for creating an account.
type Registration struct {
	Name     string
	Email    string
	Password string
	Role     id.Role
	Gender   string
}
