package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/cryptox"
	"github.com/dmitrijs2005/gophvault/internal/dbx"
	"github.com/dmitrijs2005/gophvault/internal/forge"
	"github.com/dmitrijs2005/gophvault/internal/logging"
	"github.com/dmitrijs2005/gophvault/internal/server/models"
	"github.com/dmitrijs2005/gophvault/internal/server/repositories/repomanager"
)

// shareTokenBytes of randomness back each share access token.
const shareTokenBytes = 24

// NewCredential is the input of CredentialService.Create. Exactly one of
// Password and Generate must be set.
type NewCredential struct {
	Name       string
	ServiceURL string
	Notes      string
	CategoryID *string
	Password   string
	Generate   *forge.Options
}

// CredentialService is the write path for credentials and their sharing
// grants. It is the only place plaintext secrets are encrypted.
type CredentialService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	cipher      cryptox.Cipher
	logger      logging.Logger
	now         func() time.Time
}

func NewCredentialService(db *sql.DB, m repomanager.RepositoryManager, cipher cryptox.Cipher, logger logging.Logger) *CredentialService {
	return &CredentialService{
		db:          db,
		repomanager: m,
		cipher:      cipher,
		logger:      logger.With("module", "credentials"),
		now:         time.Now,
	}
}

// Create encrypts the secret (generating it first if asked to) and stores it
// together with its generation metadata.
func (s *CredentialService) Create(ctx context.Context, userID string, in NewCredential) (*models.Credential, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", common.ErrValidation)
	}

	var (
		secret string
		meta   forge.Options
		err    error
	)
	switch {
	case in.Generate != nil && in.Password != "":
		return nil, fmt.Errorf("%w: password and generate are mutually exclusive", common.ErrValidation)
	case in.Generate != nil:
		if secret, err = forge.Generate(*in.Generate); err != nil {
			return nil, err
		}
		meta = *in.Generate
	case in.Password != "":
		secret = in.Password
		meta = forge.Describe(secret)
	default:
		return nil, fmt.Errorf("%w: password is required", common.ErrValidation)
	}

	ciphertext, err := s.cipher.Encrypt(secret)
	if err != nil {
		s.logger.Error(ctx, "credential encrypt failed", "user_id", userID)
		return nil, common.ErrCrypto
	}

	cred := &models.Credential{
		UserID:     userID,
		Name:       name,
		Ciphertext: ciphertext,
		ServiceURL: in.ServiceURL,
		Notes:      in.Notes,
		CategoryID: in.CategoryID,
		Length:     meta.Length,
		UseLower:   meta.UseLower,
		UseUpper:   meta.UseUpper,
		UseDigits:  meta.UseDigits,
		UseSymbols: meta.UseSymbols,
		Strength:   forge.EvaluateStrength(secret),
	}

	created, err := s.repomanager.Credentials(s.db).Create(ctx, cred)
	if err != nil {
		s.logger.Error(ctx, "credential create failed", "user_id", userID, "error", err)
		return nil, common.ErrorInternal
	}

	s.logger.Info(ctx, "credential created", "user_id", userID, "credential_id", created.ID)
	return created, nil
}

// List returns the caller's own credentials.
func (s *CredentialService) List(ctx context.Context, userID string) ([]*models.Credential, error) {
	list, err := s.repomanager.Credentials(s.db).ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error(ctx, "credential list failed", "user_id", userID, "error", err)
		return nil, common.ErrorInternal
	}
	return list, nil
}

// Share grants targetUserName read access to credentialID until expiresAt.
// Only the owner may share; the grant starts unaccepted.
func (s *CredentialService) Share(ctx context.Context, ownerID, credentialID, targetUserName string, expiresAt time.Time) (*models.Sharing, error) {
	cred, err := s.repomanager.Credentials(s.db).GetByID(ctx, credentialID)
	if err != nil {
		return nil, s.mapLookupErr(ctx, err)
	}
	if cred.UserID != ownerID {
		return nil, common.ErrorNotFound
	}

	target, err := s.repomanager.Users(s.db).GetUserByLogin(ctx, targetUserName)
	if err != nil {
		return nil, s.mapLookupErr(ctx, err)
	}
	if target.ID == ownerID {
		return nil, fmt.Errorf("%w: cannot share with yourself", common.ErrValidation)
	}

	token, err := common.MakeRandHexString(shareTokenBytes)
	if err != nil {
		return nil, common.ErrorInternal
	}

	sharing, err := s.repomanager.Sharings(s.db).Create(ctx, &models.Sharing{
		OwnerID:      ownerID,
		TargetID:     target.ID,
		CredentialID: credentialID,
		ExpiresAt:    expiresAt,
		AccessToken:  token,
	})
	if err != nil {
		s.logger.Error(ctx, "sharing create failed", "error", err)
		return nil, common.ErrorInternal
	}

	s.logger.Info(ctx, "credential shared", "owner_id", ownerID, "target_id", target.ID, "credential_id", credentialID)
	return sharing, nil
}

// AcceptShare marks the grant identified by accessToken as accepted. Only the
// target may accept, and only while the grant is active.
func (s *CredentialService) AcceptShare(ctx context.Context, userID, accessToken string) (*models.Sharing, error) {
	repo := s.repomanager.Sharings(s.db)

	sharing, err := repo.GetByAccessToken(ctx, accessToken)
	if err != nil {
		return nil, s.mapLookupErr(ctx, err)
	}
	if sharing.TargetID != userID || !sharing.Active(s.now()) {
		return nil, common.ErrorNotFound
	}

	if err := repo.Accept(ctx, sharing.ID); err != nil {
		return nil, s.mapLookupErr(ctx, err)
	}
	sharing.Accepted = true
	return sharing, nil
}

// RevokeShare hard-deletes a grant. Either party may revoke it.
func (s *CredentialService) RevokeShare(ctx context.Context, userID, sharingID string) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Sharings(tx)

		sharing, err := repo.GetByID(ctx, sharingID)
		if err != nil {
			return err
		}
		if sharing.OwnerID != userID && sharing.TargetID != userID {
			return common.ErrorNotFound
		}
		return repo.Delete(ctx, sharingID)
	})
	if err != nil {
		return s.mapLookupErr(ctx, err)
	}

	s.logger.Info(ctx, "sharing revoked", "user_id", userID, "sharing_id", sharingID)
	return nil
}

func (s *CredentialService) mapLookupErr(ctx context.Context, err error) error {
	if errors.Is(err, common.ErrorNotFound) {
		return common.ErrorNotFound
	}
	s.logger.Error(ctx, "lookup failed", "error", err)
	return common.ErrorInternal
}
