package credentials

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

func (r *PostgresRepository) Create(ctx context.Context, c *models.Credential) (*models.Credential, error) {
	query := `
		INSERT INTO credentials (user_id, name, ciphertext, service_url, notes, category_id,
			length, use_lower, use_upper, use_digits, use_symbols, strength)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		c.UserID, c.Name, c.Ciphertext, c.ServiceURL, c.Notes, c.CategoryID,
		c.Length, c.UseLower, c.UseUpper, c.UseDigits, c.UseSymbols, c.Strength,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

const selectCredential = `
		SELECT id, user_id, name, ciphertext, service_url, notes, category_id,
			length, use_lower, use_upper, use_digits, use_symbols, strength,
			created_at, updated_at
		FROM credentials`

type scanner interface {
	Scan(dest ...any) error
}

func scanCredential(s scanner) (*models.Credential, error) {
	c := &models.Credential{}
	var category sql.NullString
	err := s.Scan(&c.ID, &c.UserID, &c.Name, &c.Ciphertext, &c.ServiceURL, &c.Notes, &category,
		&c.Length, &c.UseLower, &c.UseUpper, &c.UseDigits, &c.UseSymbols, &c.Strength,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if category.Valid {
		c.CategoryID = &category.String
	}
	return c, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Credential, error) {
	c, err := scanCredential(r.db.QueryRowContext(ctx, selectCredential+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || dbx.IsMalformedParam(err) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*models.Credential, error) {
	rows, err := r.db.QueryContext(ctx, selectCredential+` WHERE user_id = $1 ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Credential, 0)
	for rows.Next() {
		c, err := scanCredential(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}
