// Package services contains server-side business logic. This file implements
// AuthService, the gateway in front of every authenticated request: it logs
// users in, registers them, rotates refresh tokens and revokes access tokens.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/dbx"
	"github.com/dmitrijs2005/gophvault/internal/logging"
	"github.com/dmitrijs2005/gophvault/internal/server/auth"
	"github.com/dmitrijs2005/gophvault/internal/server/config"
	"github.com/dmitrijs2005/gophvault/internal/server/models"
	"github.com/dmitrijs2005/gophvault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophvault/internal/server/sessions"
	"github.com/dmitrijs2005/gophvault/internal/telemetry"
)

// TokenPair bundles a short-lived access token and a single-use refresh token.
type TokenPair struct {
	AccessToken   string
	AccessTokenID string
	ExpiresIn     time.Duration
	RefreshToken  string
}

// LoginResult is a TokenPair plus the summary of the principal that logged in.
type LoginResult struct {
	TokenPair
	UserName string
	Roles    []models.Role
}

type AuthService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	authority   *auth.Authority
	sessions    *sessions.Registry
	accessTTL   time.Duration
	logger      logging.Logger
}

func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, authority *auth.Authority,
	registry *sessions.Registry, cfg *config.Config, logger logging.Logger) *AuthService {
	return &AuthService{
		db:          db,
		repomanager: m,
		authority:   authority,
		sessions:    registry,
		accessTTL:   cfg.AccessTokenValidityDuration,
		logger:      logger.With("module", "auth"),
	}
}

// Login checks the password and issues a token pair. Unknown users and wrong
// passwords both yield common.ErrAuthenticationFailed; only the log tells
// them apart.
func (s *AuthService) Login(ctx context.Context, userName, password string) (*LoginResult, error) {
	user, err := s.repomanager.Users(s.db).GetUserByLogin(ctx, userName)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			_, _ = checkSecret(dummyHash(), password)
			s.authFailed(ctx, "login", "user_not_found", "username", userName)
			return nil, common.ErrAuthenticationFailed
		}
		s.logger.Error(ctx, "user lookup failed", "error", err)
		return nil, common.ErrorInternal
	}

	ok, err := checkSecret(user.PasswordHash, password)
	if err != nil {
		s.logger.Error(ctx, "password hash check failed", "user_id", user.ID, "error", err)
		return nil, common.ErrorInternal
	}
	if !ok {
		s.authFailed(ctx, "login", "bad_password", "user_id", user.ID)
		return nil, common.ErrAuthenticationFailed
	}

	pair, err := s.issue(ctx, user)
	if err != nil {
		return nil, err
	}

	telemetry.AuthEventsTotal.WithLabelValues("login", "ok").Inc()
	return &LoginResult{TokenPair: *pair, UserName: user.UserName, Roles: []models.Role{user.Role}}, nil
}

// Register creates a principal. role may be empty (USER) or USER/ADMIN with
// or without the ROLE_ prefix.
func (s *AuthService) Register(ctx context.Context, userName, password, email, role string) (*models.User, error) {
	userName = strings.TrimSpace(userName)
	email = strings.TrimSpace(email)
	if userName == "" || email == "" || password == "" {
		return nil, fmt.Errorf("%w: username, password and email are required", common.ErrValidation)
	}
	if len(password) > maxSecretLen {
		return nil, fmt.Errorf("%w: password must be at most %d bytes", common.ErrValidation, maxSecretLen)
	}
	r, err := models.ParseRole(role)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrValidation, err)
	}

	hash, err := hashSecret(password)
	if err != nil {
		s.logger.Error(ctx, "password hashing failed", "error", err)
		return nil, common.ErrorInternal
	}

	var user *models.User
	err = dbx.WithTx(ctx, s.db, dbx.Serializable, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		exists, err := repo.Exists(ctx, userName, email)
		if err != nil {
			return err
		}
		if exists {
			return common.ErrConflict
		}

		user, err = repo.Create(ctx, &models.User{UserName: userName, Email: email, PasswordHash: hash, Role: r})
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrConflict) {
			telemetry.AuthEventsTotal.WithLabelValues("register", "conflict").Inc()
			return nil, common.ErrConflict
		}
		s.logger.Error(ctx, "user create failed", "error", err)
		return nil, common.ErrorInternal
	}

	s.logger.Info(ctx, "user registered", "user_id", user.ID, "role", user.Role)
	telemetry.AuthEventsTotal.WithLabelValues("register", "ok").Inc()
	return user, nil
}

// Refresh redeems refreshToken and returns a new pair. The old token is
// unusable afterwards even if this call fails later on.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	next, err := s.sessions.Redeem(ctx, refreshToken)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrorNotFound):
			s.authFailed(ctx, "refresh", "not_found")
		case errors.Is(err, common.ErrRefreshTokenExpired):
			s.authFailed(ctx, "refresh", "expired")
		default:
			s.logger.Error(ctx, "refresh redeem failed", "error", err)
			return nil, common.ErrorInternal
		}
		return nil, err
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, next.UserID)
	if err != nil {
		_ = s.sessions.Discard(ctx, next.Token)
		if errors.Is(err, common.ErrorNotFound) {
			s.authFailed(ctx, "refresh", "user_gone", "user_id", next.UserID)
			return nil, common.ErrorNotFound
		}
		s.logger.Error(ctx, "user lookup failed", "error", err)
		return nil, common.ErrorInternal
	}

	access, err := s.authority.Mint(user.ID, user.UserName, []models.Role{user.Role}, s.accessTTL)
	if err != nil {
		_ = s.sessions.Discard(ctx, next.Token)
		s.logger.Error(ctx, "mint access token failed", "error", err)
		return nil, common.ErrorInternal
	}

	telemetry.AuthEventsTotal.WithLabelValues("refresh", "ok").Inc()
	return &TokenPair{
		AccessToken:   access.Token,
		AccessTokenID: access.ID,
		ExpiresIn:     s.accessTTL,
		RefreshToken:  next.Token,
	}, nil
}

// Logout revokes accessToken, expired or not, and drops refreshToken when
// one is given.
func (s *AuthService) Logout(ctx context.Context, accessToken, refreshToken string) error {
	claims, err := s.authority.VerifyIgnoringExpiry(accessToken)
	if err != nil {
		s.authFailed(ctx, "logout", "invalid_token")
		return err
	}

	if err := s.sessions.RevokeAccess(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		s.logger.Error(ctx, "revoke access token failed", "error", err)
		return common.ErrorInternal
	}

	if refreshToken != "" {
		if err := s.sessions.Discard(ctx, refreshToken); err != nil {
			s.logger.Error(ctx, "discard refresh token failed", "error", err)
			return common.ErrorInternal
		}
	}

	s.logger.Info(ctx, "user logged out", "user_id", claims.UserID)
	telemetry.AuthEventsTotal.WithLabelValues("logout", "ok").Inc()
	return nil
}

// Authenticate verifies accessToken and rejects revoked ones. Callers must
// use it rather than auth.Authority.Verify alone.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*auth.Claims, error) {
	claims, err := s.authority.Verify(accessToken)
	if err != nil {
		s.authFailed(ctx, "authenticate", outcome(err))
		return nil, err
	}

	revoked, err := s.sessions.IsRevoked(ctx, claims.ID)
	if err != nil {
		s.logger.Error(ctx, "revocation check failed", "error", err)
		return nil, common.ErrorInternal
	}
	if revoked {
		s.authFailed(ctx, "authenticate", "revoked", "user_id", claims.UserID)
		return nil, common.ErrTokenRevoked
	}
	return claims, nil
}

func (s *AuthService) issue(ctx context.Context, user *models.User) (*TokenPair, error) {
	access, err := s.authority.Mint(user.ID, user.UserName, []models.Role{user.Role}, s.accessTTL)
	if err != nil {
		s.logger.Error(ctx, "mint access token failed", "error", err)
		return nil, common.ErrorInternal
	}
	refresh, err := s.sessions.IssueRefresh(ctx, user.ID)
	if err != nil {
		s.logger.Error(ctx, "issue refresh token failed", "error", err)
		return nil, common.ErrorInternal
	}
	return &TokenPair{
		AccessToken:   access.Token,
		AccessTokenID: access.ID,
		ExpiresIn:     s.accessTTL,
		RefreshToken:  refresh.Token,
	}, nil
}

func (s *AuthService) authFailed(ctx context.Context, op, reason string, args ...any) {
	telemetry.AuthEventsTotal.WithLabelValues(op, reason).Inc()
	s.logger.Warn(ctx, op+" rejected", append([]any{"reason", reason}, args...)...)
}

func outcome(err error) string {
	switch {
	case errors.Is(err, common.ErrTokenExpired):
		return "expired"
	case errors.Is(err, common.ErrInvalidSignature):
		return "bad_signature"
	case errors.Is(err, common.ErrTokenRevoked):
		return "revoked"
	default:
		return "invalid_token"
	}
}
