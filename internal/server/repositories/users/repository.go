// Package users persists registered accounts.
package users

import (
	"context"

	"github.com/dmitrijs2005/passvault/internal/server/models"
)

// Repository stores users. Create returns common.ErrorAlreadyExists for a
// taken username; GetUserByLogin returns common.ErrorNotFound for an unknown one.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByLogin(ctx context.Context, login string) (*models.User, error)
}
