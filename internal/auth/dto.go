package auth

import (
	"github.com/aarvika/storefront-backend/pkg/db/models"
	"github.com/google/uuid"
)

// RegisterInput is the signup payload.
type RegisterInput struct {
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=8"`
	FullName string  `json:"full_name" validate:"required,min=2"`
	Phone    *string `json:"phone,omitempty"`
	ClientIP string  `json:"-"`
}

// LoginInput is the credential payload.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	ClientIP string `json:"-"`
}

// RefreshInput carries the expired access token plus its refresh pair.
type RefreshInput struct {
	AccessToken  string `json:"access_token" validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// UserDTO is the public account shape.
type UserDTO struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	FullName string    `json:"full_name"`
	Phone    *string   `json:"phone,omitempty"`
}

// AuthResultDTO is handed back on register, login, and refresh.
type AuthResultDTO struct {
	AccessToken  string  `json:"access_token"`
	RefreshToken string  `json:"refresh_token"`
	User         UserDTO `json:"user"`
}

func toUserDTO(user *models.User) UserDTO {
	return UserDTO{
		ID:       user.ID,
		Email:    user.Email,
		FullName: user.FullName,
		Phone:    user.Phone,
	}
}
