package grpc

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/logging"
	"github.com/dmitrijs2005/gophvault/internal/server/auth"
	"github.com/dmitrijs2005/gophvault/internal/server/models"
	"github.com/dmitrijs2005/gophvault/internal/server/services"
	"github.com/golang-jwt/jwt/v5"
)

const (
	goodToken    = "good"
	expiredToken = "expired"
)

type fakeGateway struct {
	loginErr    error
	refreshErr  error
	registerErr error
	logoutErr   error

	logoutAccess  string
	logoutRefresh string
}

func (f *fakeGateway) Login(_ context.Context, userName, _ string) (*services.LoginResult, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &services.LoginResult{
		TokenPair: services.TokenPair{AccessToken: goodToken, AccessTokenID: "jti", ExpiresIn: time.Minute, RefreshToken: "rt"},
		UserName:  userName,
		Roles:     []models.Role{models.RoleAdmin},
	}, nil
}

func (f *fakeGateway) Register(_ context.Context, userName, _, email, _ string) (*models.User, error) {
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	return &models.User{ID: "u-1", UserName: userName, Email: email, Role: models.RoleUser}, nil
}

func (f *fakeGateway) Refresh(context.Context, string) (*services.TokenPair, error) {
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return &services.TokenPair{AccessToken: "a2", RefreshToken: "r2", ExpiresIn: time.Minute}, nil
}

func (f *fakeGateway) Logout(_ context.Context, accessToken, refreshToken string) error {
	f.logoutAccess, f.logoutRefresh = accessToken, refreshToken
	return f.logoutErr
}

func (f *fakeGateway) Authenticate(_ context.Context, token string) (*auth.Claims, error) {
	switch token {
	case goodToken:
		return &auth.Claims{RegisteredClaims: jwt.RegisteredClaims{ID: "jti"}, UserID: "u-1"}, nil
	case expiredToken:
		return nil, common.ErrTokenExpired
	default:
		return nil, common.ErrInvalidToken
	}
}

type fakePins struct {
	pin       string
	revealErr error
	panicOn   bool
}

func (f *fakePins) SetPin(_ context.Context, _ string, pin string) error {
	f.pin = pin
	return nil
}

func (f *fakePins) AuthorizeReveal(_ context.Context, userID, credentialID, _ string) (string, error) {
	if f.panicOn {
		panic("boom")
	}
	if f.revealErr != nil {
		return "", f.revealErr
	}
	return userID + ":" + credentialID, nil
}

func newTestServer() (*GRPCServer, *fakeGateway, *fakePins) {
	gw, pins := &fakeGateway{}, &fakePins{}
	return NewGRPCServer("127.0.0.1:0", logging.Nop{}, gw, pins), gw, pins
}
