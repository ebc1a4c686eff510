package user

import (
	"time"

	"github.com/google/uuid"

	"github.com/hospitall/hospitall/internal/platform/auth"
)

// User maps to the users table. The password hash never leaves the server.
type User struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CPF          string    `db:"cpf" json:"cpf"`
	Phone        *string   `db:"phone" json:"phone,omitempty"`
	Role         string    `db:"role" json:"role"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

func (u *User) Identity() auth.Identity {
	return auth.Identity{UserID: u.ID, Email: u.Email, Role: u.Role}
}

type RegisterRequest struct {
	Name     string  `json:"name" validate:"required,min=2,max=100"`
	Email    string  `json:"email" validate:"required,email,max=255"`
	Password string  `json:"password" validate:"required,min=6,max=72"`
	CPF      string  `json:"cpf" validate:"required,cpf"`
	Phone    *string `json:"phone" validate:"omitempty,phone_br"`
	Role     string  `json:"role" validate:"omitempty,oneof=admin doctor patient"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=6,max=72"`
}

// CreateRequest is the administrator form of RegisterRequest.
type CreateRequest struct {
	RegisterRequest
	IsActive *bool `json:"is_active"`
}

type UpdateRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=2,max=100"`
	Email    *string `json:"email" validate:"omitempty,email,max=255"`
	CPF      *string `json:"cpf" validate:"omitempty,cpf"`
	Phone    *string `json:"phone" validate:"omitempty,phone_br"`
	Role     *string `json:"role" validate:"omitempty,oneof=admin doctor patient"`
	IsActive *bool   `json:"is_active"`
}

type ProfileRequest struct {
	Name  *string `json:"name" validate:"omitempty,min=2,max=100"`
	Phone *string `json:"phone" validate:"omitempty,phone_br"`
}

type AuthResponse struct {
	User   *User           `json:"user"`
	Tokens *auth.TokenPair `json:"tokens"`
}

type VerifyResponse struct {
	User      *User     `json:"user"`
	ExpiresAt time.Time `json:"expires_at"`
	Expiring  bool      `json:"expiring"`
}
