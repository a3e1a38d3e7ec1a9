package users

import (
	"strings"

	"github.com/angelmondragon/brandinbox/pkg/db/models"
	"github.com/angelmondragon/brandinbox/pkg/types"
)

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Email        string
	PasswordHash string
}

func (c CreateUserDTO) ToModel() *models.User {
	return &models.User{
		Email:        strings.ToLower(strings.TrimSpace(c.Email)),
		PasswordHash: c.PasswordHash,
	}
}

// FromModel strips credentials before a user leaves the server.
func FromModel(u *models.User) *types.User {
	if u == nil {
		return nil
	}
	created := u.CreatedAt
	return &types.User{
		ID:        u.ID,
		Email:     u.Email,
		CreatedAt: &created,
	}
}
