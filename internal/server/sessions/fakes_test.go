package sessions

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/server/models"
	"github.com/redis/go-redis/v9"
)

type fakeRefreshRepo struct {
	mu       sync.Mutex
	rows     map[string]models.RefreshToken
	pruneErr error
}

func newFakeRefreshRepo() *fakeRefreshRepo {
	return &fakeRefreshRepo{rows: map[string]models.RefreshToken{}}
}

func (f *fakeRefreshRepo) Create(_ context.Context, rt *models.RefreshToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[rt.Token] = *rt
	return nil
}

func (f *fakeRefreshRepo) Find(_ context.Context, token string) (*models.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rt, ok := f.rows[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &rt, nil
}

func (f *fakeRefreshRepo) Take(_ context.Context, token string) (*models.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rt, ok := f.rows[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	delete(f.rows, token)
	return &rt, nil
}

func (f *fakeRefreshRepo) Delete(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, token)
	return nil
}

func (f *fakeRefreshRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	if f.pruneErr != nil {
		return 0, f.pruneErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for k, rt := range f.rows {
		if !now.Before(rt.Expires) {
			delete(f.rows, k)
			n++
		}
	}
	return n, nil
}

type fakeRevokedRepo struct {
	mu   sync.Mutex
	rows map[string]time.Time
}

func newFakeRevokedRepo() *fakeRevokedRepo {
	return &fakeRevokedRepo{rows: map[string]time.Time{}}
}

func (f *fakeRevokedRepo) Create(_ context.Context, rt *models.RevokedToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[rt.TokenID]; !ok {
		f.rows[rt.TokenID] = rt.Expires
	}
	return nil
}

func (f *fakeRevokedRepo) Exists(_ context.Context, tokenID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.rows[tokenID]
	return ok, nil
}

func (f *fakeRevokedRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for k, exp := range f.rows {
		if !now.Before(exp) {
			delete(f.rows, k)
			n++
		}
	}
	return n, nil
}

func newMiniRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func newMiniRedisStore(t *testing.T) *RedisStore {
	_, rdb := newMiniRedis(t)
	return NewRedisStore(rdb)
}
