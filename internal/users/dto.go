package users

import (
	"strings"

	"github.com/aarvika/storefront-backend/pkg/db/models"
)

// CreateUserDTO carries the fields needed to persist a new shopper account.
type CreateUserDTO struct {
	Email        string
	PasswordHash string
	FullName     string
	Phone        *string
}

// ToModel maps the DTO onto the persistence model.
func (d CreateUserDTO) ToModel() *models.User {
	return &models.User{
		Email:        strings.ToLower(strings.TrimSpace(d.Email)),
		PasswordHash: d.PasswordHash,
		FullName:     strings.TrimSpace(d.FullName),
		Phone:        d.Phone,
	}
}
