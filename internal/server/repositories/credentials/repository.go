// Package credentials stores encrypted credential rows. Plaintext secrets
// never reach this layer.
package credentials

import (
	"context"

	"github.com/dmitrijs2005/gophvault/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, c *models.Credential) (*models.Credential, error)
	// GetByID returns common.ErrorNotFound when no row matches.
	GetByID(ctx context.Context, id string) (*models.Credential, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Credential, error)
}
