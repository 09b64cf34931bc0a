package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/logging"
	"github.com/dmitrijs2005/gophvault/internal/server/models"
)

// refreshTokenBytes of crypto/rand entropy back every refresh token.
const refreshTokenBytes = 32

// Registry issues, rotates and revokes sessions on top of a Store.
type Registry struct {
	store      Store
	refreshTTL time.Duration
	logger     logging.Logger

	now      func() time.Time
	newToken func() (string, error)
}

func NewRegistry(store Store, refreshTTL time.Duration, logger logging.Logger) *Registry {
	return &Registry{
		store:      store,
		refreshTTL: refreshTTL,
		logger:     logger,
		now:        time.Now,
		newToken:   func() (string, error) { return common.MakeRandHexString(refreshTokenBytes) },
	}
}

// IssueRefresh creates and stores a new refresh token for userID.
func (r *Registry) IssueRefresh(ctx context.Context, userID string) (*models.RefreshToken, error) {
	token, err := r.newToken()
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	now := r.now()
	rt := &models.RefreshToken{
		Token:     token,
		UserID:    userID,
		Expires:   now.Add(r.refreshTTL),
		CreatedAt: now,
	}
	if err := r.store.PutRefresh(ctx, rt); err != nil {
		return nil, err
	}
	return rt, nil
}

// Redeem consumes token and rotates it: the old entry is gone before the new
// one is issued. It returns the new refresh token, whose UserID is the
// principal the old token belonged to.
//
// Errors: common.ErrorNotFound if the token is unknown or was already
// redeemed, common.ErrRefreshTokenExpired if it was past its expiry.
func (r *Registry) Redeem(ctx context.Context, token string) (*models.RefreshToken, error) {
	old, err := r.store.TakeRefresh(ctx, token)
	if err != nil {
		return nil, err
	}

	if !r.now().Before(old.Expires) {
		return nil, common.ErrRefreshTokenExpired
	}

	return r.IssueRefresh(ctx, old.UserID)
}

// Discard drops a refresh token without rotating it. Unknown tokens are ignored.
func (r *Registry) Discard(ctx context.Context, token string) error {
	err := r.store.DeleteRefresh(ctx, token)
	if errors.Is(err, common.ErrorNotFound) {
		return nil
	}
	return err
}

// RevokeAccess blacklists an access token id until its natural expiry. It is
// idempotent.
func (r *Registry) RevokeAccess(ctx context.Context, tokenID string, expires time.Time) error {
	return r.store.PutRevoked(ctx, &models.RevokedToken{TokenID: tokenID, Expires: expires})
}

func (r *Registry) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	return r.store.IsRevoked(ctx, tokenID)
}

// Prune removes expired refresh tokens and revocation records.
func (r *Registry) Prune(ctx context.Context) error {
	refresh, revoked, err := r.store.Prune(ctx, r.now())
	if err != nil {
		return err
	}
	if refresh > 0 || revoked > 0 {
		r.logger.Debug(ctx, "sessions pruned", "refresh_tokens", refresh, "revoked_tokens", revoked)
	}
	return nil
}
