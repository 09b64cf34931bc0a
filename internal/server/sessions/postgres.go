package sessions

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/server/models"
	"github.com/dmitrijs2005/gophvault/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/gophvault/internal/server/repositories/revokedtokens"
)

// PostgresStore adapts the refresh and revoked token repositories to Store.
// Atomic redemption comes from refreshtokens.Repository.Take.
type PostgresStore struct {
	refresh refreshtokens.Repository
	revoked revokedtokens.Repository
}

func NewPostgresStore(refresh refreshtokens.Repository, revoked revokedtokens.Repository) *PostgresStore {
	return &PostgresStore{refresh: refresh, revoked: revoked}
}

func (s *PostgresStore) PutRefresh(ctx context.Context, rt *models.RefreshToken) error {
	return s.refresh.Create(ctx, rt)
}

func (s *PostgresStore) TakeRefresh(ctx context.Context, token string) (*models.RefreshToken, error) {
	return s.refresh.Take(ctx, token)
}

func (s *PostgresStore) DeleteRefresh(ctx context.Context, token string) error {
	return s.refresh.Delete(ctx, token)
}

func (s *PostgresStore) PutRevoked(ctx context.Context, rt *models.RevokedToken) error {
	return s.revoked.Create(ctx, rt)
}

func (s *PostgresStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	return s.revoked.Exists(ctx, tokenID)
}

func (s *PostgresStore) Prune(ctx context.Context, now time.Time) (int64, int64, error) {
	refresh, err := s.refresh.DeleteExpired(ctx, now)
	if err != nil {
		return 0, 0, err
	}
	revoked, err := s.revoked.DeleteExpired(ctx, now)
	if err != nil {
		return refresh, 0, err
	}
	return refresh, revoked, nil
}
