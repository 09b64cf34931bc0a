// Package refreshtokens declares the server-side repository contract for
// persisting outstanding refresh tokens.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/server/models"
)

// Repository defines operations for issuing, redeeming and revoking refresh tokens.
type Repository interface {
	// Create stores a new refresh token row.
	Create(ctx context.Context, token *models.RefreshToken) error

	// Find looks up a refresh token by its opaque token string.
	// Implementations return common.ErrorNotFound when the token is absent.
	Find(ctx context.Context, token string) (*models.RefreshToken, error)

	// Take deletes the token and returns the deleted row in one statement, so
	// that of several concurrent callers only one observes the row.
	Take(ctx context.Context, token string) (*models.RefreshToken, error)

	// Delete removes a refresh token. Deleting a missing token is not an error.
	Delete(ctx context.Context, token string) error

	// DeleteExpired removes rows whose expiry is not after now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
