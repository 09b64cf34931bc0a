// Package sessions tracks the stateful half of token authentication:
// outstanding single-use refresh tokens and access tokens revoked before
// their natural expiry.
package sessions

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/server/models"
)

// Store is the backing storage of a Registry.
//
// TakeRefresh must be an atomic compare-and-remove: when several callers race
// on the same token exactly one receives the entry, every other caller gets
// common.ErrorNotFound.
type Store interface {
	PutRefresh(ctx context.Context, rt *models.RefreshToken) error
	TakeRefresh(ctx context.Context, token string) (*models.RefreshToken, error)
	DeleteRefresh(ctx context.Context, token string) error

	PutRevoked(ctx context.Context, rt *models.RevokedToken) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)

	// Prune drops entries whose expiry is not after now and reports how
	// many of each kind were removed.
	Prune(ctx context.Context, now time.Time) (refresh, revoked int64, err error)
}
