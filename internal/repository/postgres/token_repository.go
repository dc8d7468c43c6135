package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cagongu/blog-backend/internal/domain"
)

const queryTimeout = 5 * time.Second

type RefreshTokenRepository struct {
	db *pgxpool.Pool
}

func NewRefreshTokenRepository(db *pgxpool.Pool) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

const (
	qTokenCreate = `
INSERT INTO refresh_tokens (user_id, token, expires_at, revoked, created_at)
VALUES ($1, $2, $3, FALSE, $4)
RETURNING id`

	qTokenGet = `
SELECT id, user_id, token, expires_at, revoked, created_at
FROM refresh_tokens
WHERE token = $1`

	qTokenRevoke = `
UPDATE refresh_tokens SET revoked = TRUE WHERE token = $1`

	// The WHERE clause is the compare-and-swap: only a record that still
	// holds the old token, unrevoked and unexpired, is overwritten. Racing
	// rotations are decided by the affected-row count.
	qTokenRotate = `
UPDATE refresh_tokens
SET token = $2, expires_at = $3, revoked = FALSE
WHERE token = $1 AND NOT revoked AND expires_at > NOW()`
)

func (r *RefreshTokenRepository) Create(ctx context.Context, token *domain.RefreshToken) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	token.CreatedAt = time.Now()
	return r.db.QueryRow(ctx, qTokenCreate,
		token.UserID, token.Token, token.ExpiresAt, token.CreatedAt,
	).Scan(&token.ID)
}

func (r *RefreshTokenRepository) GetByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	record := &domain.RefreshToken{}
	err := r.db.QueryRow(ctx, qTokenGet, token).Scan(
		&record.ID, &record.UserID, &record.Token,
		&record.ExpiresAt, &record.Revoked, &record.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (r *RefreshTokenRepository) Revoke(ctx context.Context, token string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := r.db.Exec(ctx, qTokenRevoke, token)
	return err
}

func (r *RefreshTokenRepository) Rotate(ctx context.Context, oldToken, newToken string, expiresAt time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tag, err := r.db.Exec(ctx, qTokenRotate, oldToken, newToken, expiresAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
