package token

import "errors"

var (
	// ErrMalformed means the wire string could not be parsed at all.
	ErrMalformed = errors.New("malformed token")
	// ErrBadSignature means the MAC does not match the header and payload.
	ErrBadSignature = errors.New("invalid token signature")
	// ErrBadIssuer means the issuer claim differs from the configured value.
	ErrBadIssuer = errors.New("invalid token issuer")
	// ErrExpired means the expiry claim is absent or in the past.
	ErrExpired = errors.New("token expired")
	// ErrWrongKind means the type claim does not match the caller's
	// expectation (access vs refresh).
	ErrWrongKind = errors.New("unexpected token type")
	// ErrInvalidClaims is returned by the strict request-boundary variant
	// for tokens missing a subject or carrying a future issue time.
	ErrInvalidClaims = errors.New("invalid token claims")
)

// Outcome maps a verification result to a stable metric label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrMalformed):
		return "malformed"
	case errors.Is(err, ErrBadSignature):
		return "bad_signature"
	case errors.Is(err, ErrBadIssuer):
		return "bad_issuer"
	case errors.Is(err, ErrExpired):
		return "expired"
	case errors.Is(err, ErrWrongKind):
		return "wrong_kind"
	case errors.Is(err, ErrInvalidClaims):
		return "invalid_claims"
	default:
		return "error"
	}
}
