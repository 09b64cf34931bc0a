package users

import (
	"context"

	"github.com/dmitrijs2005/gophvault/internal/server/models"
)

// Repository persists vault principals. Lookups that miss return
// common.ErrorNotFound; a duplicate username or email on Create returns
// common.ErrConflict.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByLogin(ctx context.Context, login string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	// Exists reports whether username or email is already taken.
	Exists(ctx context.Context, userName, email string) (bool, error)
	SetPinHash(ctx context.Context, userID, pinHash string) error
}
