package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/server/models"
	"github.com/redis/go-redis/v9"
)

const (
	refreshKeyPrefix = "gophvault:refresh:"
	revokedKeyPrefix = "gophvault:revoked:"

	// minTTL keeps entries that are already due visible for a moment, so a
	// revocation recorded at expiry still reads back as revoked.
	minTTL = time.Second
)

type redisRefresh struct {
	UserID    string    `json:"uid"`
	Expires   time.Time `json:"exp"`
	CreatedAt time.Time `json:"iat"`
}

// RedisStore keeps sessions in redis. Keys carry a TTL equal to the entry's
// remaining lifetime, so Prune has nothing to do. GETDEL gives atomic redeem.
type RedisStore struct {
	rdb redis.UniversalClient
	now func() time.Time
}

func NewRedisStore(rdb redis.UniversalClient) *RedisStore {
	return &RedisStore{rdb: rdb, now: time.Now}
}

func (s *RedisStore) ttl(until time.Time) time.Duration {
	d := until.Sub(s.now())
	if d < minTTL {
		return minTTL
	}
	return d
}

func (s *RedisStore) PutRefresh(ctx context.Context, rt *models.RefreshToken) error {
	payload, err := json.Marshal(redisRefresh{UserID: rt.UserID, Expires: rt.Expires, CreatedAt: rt.CreatedAt})
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, refreshKeyPrefix+rt.Token, payload, s.ttl(rt.Expires)).Err(); err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	return nil
}

func (s *RedisStore) TakeRefresh(ctx context.Context, token string) (*models.RefreshToken, error) {
	payload, err := s.rdb.GetDel(ctx, refreshKeyPrefix+token).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("redis error: %w", err)
	}

	var v redisRefresh
	if err := json.Unmarshal(payload, &v); err != nil {
		return nil, fmt.Errorf("redis error: %w", err)
	}
	return &models.RefreshToken{Token: token, UserID: v.UserID, Expires: v.Expires, CreatedAt: v.CreatedAt}, nil
}

func (s *RedisStore) DeleteRefresh(ctx context.Context, token string) error {
	if err := s.rdb.Del(ctx, refreshKeyPrefix+token).Err(); err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	return nil
}

func (s *RedisStore) PutRevoked(ctx context.Context, rt *models.RevokedToken) error {
	if err := s.rdb.Set(ctx, revokedKeyPrefix+rt.TokenID, rt.Expires.Unix(), s.ttl(rt.Expires)).Err(); err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	return nil
}

func (s *RedisStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := s.rdb.Exists(ctx, revokedKeyPrefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("redis error: %w", err)
	}
	return n > 0, nil
}

func (s *RedisStore) Prune(context.Context, time.Time) (int64, int64, error) {
	return 0, 0, nil
}
