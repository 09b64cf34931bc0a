// Package sharings persists directed credential grants between users.
package sharings

import (
	"context"

	"github.com/dmitrijs2005/gophvault/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, s *models.Sharing) (*models.Sharing, error)
	GetByID(ctx context.Context, id string) (*models.Sharing, error)
	GetByAccessToken(ctx context.Context, token string) (*models.Sharing, error)
	// ListForTarget returns every grant of credentialID to targetID,
	// expired ones included.
	ListForTarget(ctx context.Context, credentialID, targetID string) ([]*models.Sharing, error)
	Accept(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}
