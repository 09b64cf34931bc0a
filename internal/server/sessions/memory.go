package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/server/models"
)

// MemoryStore keeps sessions in process memory. A single mutex guards both
// maps and is never held across I/O.
type MemoryStore struct {
	mu      sync.Mutex
	refresh map[string]models.RefreshToken
	revoked map[string]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		refresh: make(map[string]models.RefreshToken),
		revoked: make(map[string]time.Time),
	}
}

func (s *MemoryStore) PutRefresh(_ context.Context, rt *models.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresh[rt.Token] = *rt
	return nil
}

func (s *MemoryStore) TakeRefresh(_ context.Context, token string) (*models.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rt, ok := s.refresh[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	delete(s.refresh, token)
	return &rt, nil
}

func (s *MemoryStore) DeleteRefresh(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.refresh, token)
	return nil
}

func (s *MemoryStore) PutRevoked(_ context.Context, rt *models.RevokedToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.revoked[rt.TokenID]; !ok || rt.Expires.After(cur) {
		s.revoked[rt.TokenID] = rt.Expires
	}
	return nil
}

func (s *MemoryStore) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.revoked[tokenID]
	return ok, nil
}

func (s *MemoryStore) Prune(_ context.Context, now time.Time) (int64, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var refresh, revoked int64
	for k, rt := range s.refresh {
		if !now.Before(rt.Expires) {
			delete(s.refresh, k)
			refresh++
		}
	}
	for k, exp := range s.revoked {
		if !now.Before(exp) {
			delete(s.revoked, k)
			revoked++
		}
	}
	return refresh, revoked, nil
}
