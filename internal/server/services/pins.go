package services

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/cryptox"
	"github.com/dmitrijs2005/gophvault/internal/logging"
	"github.com/dmitrijs2005/gophvault/internal/server/models"
	"github.com/dmitrijs2005/gophvault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophvault/internal/telemetry"
)

var pinFormat = regexp.MustCompile(`^[0-9]{4,6}$`)

// PinService guards decryption of stored secrets behind a per-user PIN.
type PinService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	cipher      cryptox.Cipher
	logger      logging.Logger
	now         func() time.Time
}

func NewPinService(db *sql.DB, m repomanager.RepositoryManager, cipher cryptox.Cipher, logger logging.Logger) *PinService {
	return &PinService{
		db:          db,
		repomanager: m,
		cipher:      cipher,
		logger:      logger.With("module", "pin"),
		now:         time.Now,
	}
}

// SetPin stores a bcrypt hash of pin, replacing any previous PIN.
// pin must be 4 to 6 ASCII digits.
func (s *PinService) SetPin(ctx context.Context, userID, pin string) error {
	if !pinFormat.MatchString(pin) {
		return common.ErrInvalidPinFormat
	}

	hash, err := hashSecret(pin)
	if err != nil {
		s.logger.Error(ctx, "pin hashing failed", "error", err)
		return common.ErrorInternal
	}

	if err := s.repomanager.Users(s.db).SetPinHash(ctx, userID, hash); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		s.logger.Error(ctx, "pin update failed", "user_id", userID, "error", err)
		return common.ErrorInternal
	}

	s.logger.Info(ctx, "pin set", "user_id", userID)
	return nil
}

// AuthorizeReveal returns the plaintext of credentialID once pin checks out
// and the credential is owned by userID or shared with them through an
// accepted, unexpired grant. The PIN is checked before the credential is
// looked up.
//
// Errors: common.ErrPinNotSet, common.ErrPinMismatch, common.ErrorNotFound.
func (s *PinService) AuthorizeReveal(ctx context.Context, userID, credentialID, pin string) (string, error) {
	plaintext, err := s.reveal(ctx, userID, credentialID, pin)
	telemetry.RevealAttemptsTotal.WithLabelValues(revealOutcome(err)).Inc()
	return plaintext, err
}

func (s *PinService) reveal(ctx context.Context, userID, credentialID, pin string) (string, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.ErrorNotFound
		}
		s.logger.Error(ctx, "user lookup failed", "error", err)
		return "", common.ErrorInternal
	}

	if !user.HasPin() {
		return "", common.ErrPinNotSet
	}

	ok, err := checkSecret(user.PinHash, pin)
	if err != nil {
		s.logger.Error(ctx, "pin hash check failed", "user_id", userID, "error", err)
		return "", common.ErrorInternal
	}
	if !ok {
		s.logger.Warn(ctx, "reveal rejected", "reason", "pin_mismatch", "user_id", userID, "credential_id", credentialID)
		return "", common.ErrPinMismatch
	}

	cred, err := s.accessible(ctx, userID, credentialID)
	if err != nil {
		return "", err
	}

	plaintext, err := s.cipher.Decrypt(cred.Ciphertext)
	if err != nil {
		s.logger.Error(ctx, "credential decrypt failed", "credential_id", credentialID)
		return "", common.ErrCrypto
	}

	s.logger.Info(ctx, "credential revealed", "user_id", userID, "credential_id", credentialID)
	return plaintext, nil
}

// accessible loads the credential if userID owns it or holds a usable grant.
func (s *PinService) accessible(ctx context.Context, userID, credentialID string) (*models.Credential, error) {
	cred, err := s.repomanager.Credentials(s.db).GetByID(ctx, credentialID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		s.logger.Error(ctx, "credential lookup failed", "error", err)
		return nil, common.ErrorInternal
	}

	if cred.UserID == userID {
		return cred, nil
	}

	grants, err := s.repomanager.Sharings(s.db).ListForTarget(ctx, credentialID, userID)
	if err != nil {
		s.logger.Error(ctx, "sharing lookup failed", "error", err)
		return nil, common.ErrorInternal
	}

	now := s.now()
	for _, g := range grants {
		if g.Usable(now) {
			return cred, nil
		}
	}

	s.logger.Warn(ctx, "reveal rejected", "reason", "no_usable_grant", "user_id", userID, "credential_id", credentialID)
	return nil, common.ErrorNotFound
}

func revealOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, common.ErrPinNotSet):
		return "pin_not_set"
	case errors.Is(err, common.ErrPinMismatch):
		return "pin_mismatch"
	case errors.Is(err, common.ErrorNotFound):
		return "not_found"
	default:
		return "error"
	}
}
