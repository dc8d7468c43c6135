package domain

import (
	"context"
	"time"
)

// RefreshToken is the persistent record of an issued refresh token. Rotation
// overwrites the same record's token and expiry in place; a record with
// Revoked set or a past expiry is dead and only ever rejected.
type RefreshToken struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Token     string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	Revoked   bool      `json:"revoked"`
	CreatedAt time.Time `json:"created_at"`
}

// Usable reports whether the record can still be exchanged at the given time.
func (t *RefreshToken) Usable(now time.Time) bool {
	return !t.Revoked && t.ExpiresAt.After(now)
}

type RefreshTokenRepository interface {
	Create(ctx context.Context, token *RefreshToken) error
	// GetByToken returns nil without error when no record matches.
	GetByToken(ctx context.Context, token string) (*RefreshToken, error)
	// Revoke marks the record revoked. Revoking an unknown or already
	// revoked token is not an error.
	Revoke(ctx context.Context, token string) error
	// Rotate atomically replaces oldToken with newToken and the new expiry,
	// clearing the revoked flag, iff the stored record still holds oldToken
	// unrevoked and unexpired. Returns false when the swap did not happen,
	// which is how a lost rotation race is observed.
	Rotate(ctx context.Context, oldToken, newToken string, expiresAt time.Time) (bool, error)
}
