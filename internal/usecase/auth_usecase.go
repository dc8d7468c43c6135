package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/cagongu/blog-backend/internal/domain"
	"github.com/cagongu/blog-backend/internal/metrics"
	"github.com/cagongu/blog-backend/internal/token"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrInvalidCredentials  = errors.New("invalid username or password")
	ErrInactiveAccount     = errors.New("user account is inactive")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrRefreshTokenRevoked = errors.New("refresh token is revoked or expired")
)

// IsAuthFailure reports whether err is one of the authentication failures
// the HTTP layer collapses into a single 401 response. Anything else is a
// dependency failure and surfaces as a 500.
func IsAuthFailure(err error) bool {
	for _, target := range []error{
		ErrUserNotFound, ErrInvalidCredentials, ErrInactiveAccount,
		ErrInvalidRefreshToken, ErrRefreshTokenRevoked,
		token.ErrMalformed, token.ErrBadSignature, token.ErrBadIssuer,
		token.ErrExpired, token.ErrWrongKind, token.ErrInvalidClaims,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// AuthResult is the credential pair and principal view returned by login and
// refresh.
type AuthResult struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	User         domain.UserView `json:"user"`
}

type AuthConfig struct {
	// RefreshTTL is the validity of the persisted refresh record. It mirrors
	// the refresh token's own expiry claim.
	RefreshTTL time.Duration
	Now        func() time.Time
}

// AuthUsecase orchestrates the token lifecycle: login, introspection,
// logout and refresh-with-rotation. It holds no state of its own; the
// refresh record belongs to the repository and is only held for the span of
// one request.
type AuthUsecase struct {
	users    domain.UserRepository
	tokens   domain.RefreshTokenRepository
	issuer   *token.Issuer
	verifier *token.Verifier
	cfg      AuthConfig
	log      *zap.Logger
}

func NewAuthUsecase(
	users domain.UserRepository,
	tokens domain.RefreshTokenRepository,
	issuer *token.Issuer,
	verifier *token.Verifier,
	cfg AuthConfig,
	log *zap.Logger,
) *AuthUsecase {
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthUsecase{
		users:    users,
		tokens:   tokens,
		issuer:   issuer,
		verifier: verifier,
		cfg:      cfg,
		log:      log,
	}
}

// Login verifies the credentials and mints an access/refresh pair, persisting
// a new refresh record. The distinct failure reasons exist for logs and
// metrics only; the HTTP layer answers all of them identically.
func (u *AuthUsecase) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	user, err := u.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("look up user: %w", err)
	}
	if user == nil {
		u.log.Debug("login attempt for unknown user", zap.String("username", username))
		return nil, ErrUserNotFound
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		metrics.LoginAttempts.WithLabelValues(metrics.ResultFailure).Inc()
		u.log.Debug("login attempt with bad password", zap.Int64("user_id", user.ID))
		return nil, ErrInvalidCredentials
	}
	if !user.Active {
		u.log.Debug("login attempt for inactive account", zap.Int64("user_id", user.ID))
		return nil, ErrInactiveAccount
	}

	metrics.LoginAttempts.WithLabelValues(metrics.ResultSuccess).Inc()

	access, err := u.issuer.AccessToken(user)
	if err != nil {
		return nil, err
	}
	refresh, err := u.issuer.RefreshToken(user)
	if err != nil {
		return nil, err
	}

	record := &domain.RefreshToken{
		UserID:    user.ID,
		Token:     refresh,
		ExpiresAt: u.cfg.Now().Add(u.cfg.RefreshTTL),
	}
	if err := u.tokens.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("persist refresh token: %w", err)
	}

	return &AuthResult{AccessToken: access, RefreshToken: refresh, User: user.View()}, nil
}

// Introspect reports whether the token is a currently valid access token.
// The failure reason is deliberately not exposed to the caller.
func (u *AuthUsecase) Introspect(ctx context.Context, raw string) bool {
	_, err := u.verifier.Verify(raw, token.KindAccess)
	metrics.TokenVerifications.WithLabelValues(token.Outcome(err)).Inc()
	if err != nil {
		u.log.Debug("introspection rejected token", zap.Error(err))
		return false
	}
	return true
}

// Logout revokes the refresh record behind the token. Idempotent: unknown
// and already-revoked tokens are not errors.
func (u *AuthUsecase) Logout(ctx context.Context, raw string) error {
	record, err := u.tokens.GetByToken(ctx, raw)
	if err != nil {
		return fmt.Errorf("look up refresh token: %w", err)
	}
	if record == nil {
		return nil
	}
	if err := u.tokens.Revoke(ctx, record.Token); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// Refresh exchanges a refresh token for a new pair, rotating the stored
// record in place. The compare-and-swap in Rotate makes the exchange
// linearizable per token value: when two requests race, exactly one commits
// and the other observes ErrInvalidRefreshToken.
func (u *AuthUsecase) Refresh(ctx context.Context, raw string) (*AuthResult, error) {
	claims, err := u.verifier.Verify(raw, token.KindRefresh)
	if err != nil {
		u.log.Debug("refresh rejected token", zap.Error(err))
		return nil, err
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad subject", token.ErrInvalidClaims)
	}
	user, err := u.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("look up user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	record, err := u.tokens.GetByToken(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("look up refresh token: %w", err)
	}
	if record == nil {
		return nil, ErrInvalidRefreshToken
	}
	if !record.Usable(u.cfg.Now()) {
		return nil, ErrRefreshTokenRevoked
	}

	access, err := u.issuer.AccessToken(user)
	if err != nil {
		return nil, err
	}
	refresh, err := u.issuer.RefreshToken(user)
	if err != nil {
		return nil, err
	}

	rotated, err := u.tokens.Rotate(ctx, raw, refresh, u.cfg.Now().Add(u.cfg.RefreshTTL))
	if err != nil {
		return nil, fmt.Errorf("rotate refresh token: %w", err)
	}
	if !rotated {
		// Another request rotated this token first; its string no longer
		// matches any live record.
		return nil, ErrInvalidRefreshToken
	}
	metrics.RefreshRotations.Inc()

	return &AuthResult{AccessToken: access, RefreshToken: refresh, User: user.View()}, nil
}
