package token

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/cagongu/blog-backend/internal/domain"
)

// IssuerConfig carries the immutable signing parameters. AccessTTL is the
// access-token validity (hour granularity in configuration), RefreshTTL the
// refresh-token validity (second granularity).
type IssuerConfig struct {
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Now        func() time.Time
}

// Issuer mints signed access and refresh tokens. It is a pure function of
// its inputs and the clock; persisting the refresh record is the
// authentication workflow's responsibility.
type Issuer struct {
	codec *Codec
	cfg   IssuerConfig
}

func NewIssuer(codec *Codec, cfg IssuerConfig) *Issuer {
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Issuer{codec: codec, cfg: cfg}
}

// AccessToken signs an access token carrying the user's active role slugs as
// scope.
func (i *Issuer) AccessToken(user *domain.User) (string, error) {
	now := i.cfg.Now()
	claims := &Claims{
		Email: user.Email,
		Kind:  KindAccess,
		Scope: BuildScope(user.ActiveRoleSlugs()),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(user.ID, 10),
			Issuer:    i.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.cfg.AccessTTL)),
		},
	}
	signed, err := i.codec.Encode(claims)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// RefreshToken signs a refresh token. No scope: a refresh token only proves
// the right to mint a new pair, never to act.
func (i *Issuer) RefreshToken(user *domain.User) (string, error) {
	now := i.cfg.Now()
	claims := &Claims{
		Email: user.Email,
		Kind:  KindRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(user.ID, 10),
			Issuer:    i.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.cfg.RefreshTTL)),
		},
	}
	signed, err := i.codec.Encode(claims)
	if err != nil {
		return "", fmt.Errorf("sign refresh token: %w", err)
	}
	return signed, nil
}
