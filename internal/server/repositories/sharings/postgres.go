package sharings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/dbx"
	"github.com/dmitrijs2005/gophvault/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, s *models.Sharing) (*models.Sharing, error) {
	query := `
		INSERT INTO sharings (owner_id, target_id, credential_id, expires_at, access_token)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, accepted, created_at
	`
	err := r.db.QueryRowContext(ctx, query, s.OwnerID, s.TargetID, s.CredentialID, s.ExpiresAt, s.AccessToken).
		Scan(&s.ID, &s.Accepted, &s.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}

const selectSharing = `
		SELECT id, owner_id, target_id, credential_id, expires_at, access_token, accepted, created_at
		FROM sharings`

type scanner interface {
	Scan(dest ...any) error
}

func scanSharing(row scanner) (*models.Sharing, error) {
	s := &models.Sharing{}
	err := row.Scan(&s.ID, &s.OwnerID, &s.TargetID, &s.CredentialID, &s.ExpiresAt, &s.AccessToken, &s.Accepted, &s.CreatedAt)
	return s, err
}

func (r *PostgresRepository) getOne(ctx context.Context, where string, arg any) (*models.Sharing, error) {
	s, err := scanSharing(r.db.QueryRowContext(ctx, selectSharing+where, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || dbx.IsMalformedParam(err) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Sharing, error) {
	return r.getOne(ctx, ` WHERE id = $1`, id)
}

func (r *PostgresRepository) GetByAccessToken(ctx context.Context, token string) (*models.Sharing, error) {
	return r.getOne(ctx, ` WHERE access_token = $1`, token)
}

func (r *PostgresRepository) ListForTarget(ctx context.Context, credentialID, targetID string) ([]*models.Sharing, error) {
	rows, err := r.db.QueryContext(ctx, selectSharing+` WHERE credential_id = $1 AND target_id = $2`, credentialID, targetID)
	if err != nil {
		if dbx.IsMalformedParam(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Sharing
	for rows.Next() {
		s, err := scanSharing(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) exec(ctx context.Context, query, id string) error {
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		if dbx.IsMalformedParam(err) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) Accept(ctx context.Context, id string) error {
	return r.exec(ctx, `UPDATE sharings SET accepted = TRUE WHERE id = $1`, id)
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	return r.exec(ctx, `DELETE FROM sharings WHERE id = $1`, id)
}
