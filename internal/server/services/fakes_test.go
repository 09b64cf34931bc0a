package services

import (
	"context"
	"crypto/rsa"
	"database/sql"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/dbx"
	"github.com/dmitrijs2005/gophvault/internal/server/auth"
	"github.com/dmitrijs2005/gophvault/internal/server/models"
	"github.com/dmitrijs2005/gophvault/internal/server/repositories/credentials"
	"github.com/dmitrijs2005/gophvault/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/gophvault/internal/server/repositories/revokedtokens"
	"github.com/dmitrijs2005/gophvault/internal/server/repositories/sharings"
	"github.com/dmitrijs2005/gophvault/internal/server/repositories/users"
	"golang.org/x/crypto/bcrypt"
)

var testKey *rsa.PrivateKey

func TestMain(m *testing.M) {
	bcryptCost = bcrypt.MinCost

	var err error
	if testKey, err = auth.GenerateKeyPair(2048); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

// --- users ---

type fakeUsers struct {
	mu     sync.Mutex
	byID   map[string]*models.User
	nextID int

	getErr    error
	existsErr error
	createErr error
}

func newFakeUsers() *fakeUsers { return &fakeUsers{byID: map[string]*models.User{}} }

func (f *fakeUsers) add(u *models.User) *models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u.ID == "" {
		f.nextID++
		u.ID = fmt.Sprintf("u-%d", f.nextID)
	}
	cp := *u
	f.byID[u.ID] = &cp
	return u
}

func (f *fakeUsers) Create(_ context.Context, u *models.User) (*models.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	u.CreatedAt = time.Now()
	return f.add(u), nil
}

func (f *fakeUsers) GetUserByLogin(_ context.Context, login string) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.UserName == login {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) Exists(_ context.Context, userName, email string) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.UserName == userName || u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUsers) SetPinHash(_ context.Context, userID, pinHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[userID]
	if !ok {
		return common.ErrorNotFound
	}
	u.PinHash = pinHash
	return nil
}

// --- credentials ---

type fakeCredentials struct {
	mu     sync.Mutex
	byID   map[string]*models.Credential
	nextID int

	createErr error
	listErr   error
}

func newFakeCredentials() *fakeCredentials {
	return &fakeCredentials{byID: map[string]*models.Credential{}}
}

func (f *fakeCredentials) Create(_ context.Context, c *models.Credential) (*models.Credential, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	c.ID = fmt.Sprintf("c-%d", f.nextID)
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	cp := *c
	f.byID[c.ID] = &cp
	return c, nil
}

func (f *fakeCredentials) GetByID(_ context.Context, id string) (*models.Credential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCredentials) ListByUser(_ context.Context, userID string) ([]*models.Credential, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.Credential, 0)
	for i := 1; i <= f.nextID; i++ {
		if c, ok := f.byID[fmt.Sprintf("c-%d", i)]; ok && c.UserID == userID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

// --- sharings ---

type fakeSharings struct {
	mu     sync.Mutex
	byID   map[string]*models.Sharing
	nextID int
}

func newFakeSharings() *fakeSharings { return &fakeSharings{byID: map[string]*models.Sharing{}} }

func (f *fakeSharings) Create(_ context.Context, s *models.Sharing) (*models.Sharing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	s.ID = fmt.Sprintf("s-%d", f.nextID)
	s.CreatedAt = time.Now()
	cp := *s
	f.byID[s.ID] = &cp
	return s, nil
}

func (f *fakeSharings) GetByID(_ context.Context, id string) (*models.Sharing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSharings) GetByAccessToken(_ context.Context, token string) (*models.Sharing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.byID {
		if s.AccessToken == token {
			cp := *s
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeSharings) ListForTarget(_ context.Context, credentialID, targetID string) ([]*models.Sharing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Sharing
	for _, s := range f.byID {
		if s.CredentialID == credentialID && s.TargetID == targetID {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeSharings) Accept(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	s.Accepted = true
	return nil
}

func (f *fakeSharings) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return common.ErrorNotFound
	}
	delete(f.byID, id)
	return nil
}

// --- manager ---

type fakeRepoManager struct {
	users  *fakeUsers
	creds  *fakeCredentials
	shares *fakeSharings
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{users: newFakeUsers(), creds: newFakeCredentials(), shares: newFakeSharings()}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error      { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository                 { return m.users }
func (m *fakeRepoManager) Credentials(dbx.DBTX) credentials.Repository     { return m.creds }
func (m *fakeRepoManager) Sharings(dbx.DBTX) sharings.Repository           { return m.shares }
func (m *fakeRepoManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository { return nil }
func (m *fakeRepoManager) RevokedTokens(dbx.DBTX) revokedtokens.Repository { return nil }
