package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/logging"
	"github.com/dmitrijs2005/gophvault/internal/server/auth"
	"github.com/dmitrijs2005/gophvault/internal/server/models"
	"github.com/dmitrijs2005/gophvault/internal/server/services"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

// Bearer tokens understood by fakeGateway.Authenticate.
const (
	tokenAlice   = "tok-alice"
	tokenExpired = "tok-expired"
	tokenRevoked = "tok-revoked"
)

type fakeGateway struct {
	loginErr    error
	registerErr error
	refreshErr  error
	logoutErr   error

	loggedOut  []string
	refreshArg string
}

func (f *fakeGateway) Login(_ context.Context, userName, password string) (*services.LoginResult, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &services.LoginResult{
		TokenPair: services.TokenPair{AccessToken: tokenAlice, AccessTokenID: "jti-1", ExpiresIn: 15 * time.Minute, RefreshToken: "rt-1"},
		UserName:  userName,
		Roles:     []models.Role{models.RoleUser},
	}, nil
}

func (f *fakeGateway) Register(_ context.Context, userName, _, email, role string) (*models.User, error) {
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	r, err := models.ParseRole(role)
	if err != nil {
		return nil, common.ErrValidation
	}
	return &models.User{ID: "u-1", UserName: userName, Email: email, Role: r}, nil
}

func (f *fakeGateway) Refresh(_ context.Context, refreshToken string) (*services.TokenPair, error) {
	f.refreshArg = refreshToken
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return &services.TokenPair{AccessToken: "tok-2", AccessTokenID: "jti-2", ExpiresIn: 15 * time.Minute, RefreshToken: "rt-2"}, nil
}

func (f *fakeGateway) Logout(_ context.Context, accessToken, refreshToken string) error {
	if f.logoutErr != nil {
		return f.logoutErr
	}
	f.loggedOut = append(f.loggedOut, accessToken, refreshToken)
	return nil
}

func (f *fakeGateway) Authenticate(_ context.Context, accessToken string) (*auth.Claims, error) {
	switch accessToken {
	case tokenAlice:
		return &auth.Claims{
			RegisteredClaims: jwt.RegisteredClaims{ID: "jti-1", Subject: "alice"},
			UserID:           "u-alice",
			Roles:            []string{"USER"},
		}, nil
	case tokenExpired:
		return nil, common.ErrTokenExpired
	case tokenRevoked:
		return nil, common.ErrTokenRevoked
	default:
		return nil, common.ErrInvalidSignature
	}
}

type fakePins struct {
	pins      map[string]string
	revealErr error
}

func (f *fakePins) SetPin(_ context.Context, userID, pin string) error {
	if len(pin) < 4 {
		return common.ErrInvalidPinFormat
	}
	if f.pins == nil {
		f.pins = map[string]string{}
	}
	f.pins[userID] = pin
	return nil
}

func (f *fakePins) AuthorizeReveal(_ context.Context, userID, credentialID, pin string) (string, error) {
	if f.revealErr != nil {
		return "", f.revealErr
	}
	if credentialID != "c-1" {
		return "", common.ErrorNotFound
	}
	return "secret-for-" + userID, nil
}

type fakeVault struct {
	created  []services.NewCredential
	list     []*models.Credential
	err      error
	revokeBy string
}

func (f *fakeVault) Create(_ context.Context, userID string, in services.NewCredential) (*models.Credential, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = append(f.created, in)
	return &models.Credential{ID: "c-1", UserID: userID, Name: in.Name, Ciphertext: "CIPHERTEXT", Strength: 70}, nil
}

func (f *fakeVault) List(context.Context, string) ([]*models.Credential, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.list, nil
}

func (f *fakeVault) Share(_ context.Context, ownerID, credentialID, target string, exp time.Time) (*models.Sharing, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.Sharing{ID: "s-1", OwnerID: ownerID, TargetID: "u-" + target, CredentialID: credentialID, ExpiresAt: exp, AccessToken: "share-tok"}, nil
}

func (f *fakeVault) AcceptShare(_ context.Context, userID, token string) (*models.Sharing, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.Sharing{ID: "s-1", TargetID: userID, AccessToken: token, Accepted: true}, nil
}

func (f *fakeVault) RevokeShare(_ context.Context, userID, _ string) error {
	if f.err != nil {
		return f.err
	}
	f.revokeBy = userID
	return nil
}

type fakeExporter struct{ err error }

func (f fakeExporter) Export(_ context.Context, userID string) (*services.ExportResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &services.ExportResult{Key: "exports/" + userID + "/x.json", URL: "http://s3/x"}, nil
}

type fakePinger struct{ err error }

func (f fakePinger) PingContext(context.Context) error { return f.err }

type testEnv struct {
	e     *echo.Echo
	gw    *fakeGateway
	pins  *fakePins
	vault *fakeVault
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{gw: &fakeGateway{}, pins: &fakePins{}, vault: &fakeVault{}}
	env.e = NewRouter(&Deps{
		Auth:     env.gw,
		Pins:     env.pins,
		Vault:    env.vault,
		Exporter: fakeExporter{},
		DB:       fakePinger{},
		Logger:   logging.Nop{},
	})
	return env
}

func (env *testEnv) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

var errBoom = errors.New("pq: connection refused to 10.0.0.5")

