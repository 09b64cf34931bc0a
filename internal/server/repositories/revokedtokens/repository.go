// Package revokedtokens persists access-token ids revoked before their
// natural expiry.
package revokedtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/server/models"
)

type Repository interface {
	// Create records the revocation. Recording the same id twice is not an error.
	Create(ctx context.Context, token *models.RevokedToken) error
	Exists(ctx context.Context, tokenID string) (bool, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
