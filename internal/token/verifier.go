package token

import (
	"strings"
	"time"
)

// VerifierConfig carries the verification parameters. Leeway is applied
// symmetrically to expiry and issue-time comparisons to tolerate clock skew
// between distributed issuers and verifiers.
type VerifierConfig struct {
	Issuer string
	Leeway time.Duration
	Now    func() time.Time
}

type Verifier struct {
	codec *Codec
	cfg   VerifierConfig
}

func NewVerifier(codec *Codec, cfg VerifierConfig) *Verifier {
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Verifier{codec: codec, cfg: cfg}
}

// Verify validates the wire token as the expected kind. Checks run in a
// fixed order and the first failure wins: structure, signature, issuer,
// expiry, kind.
func (v *Verifier) Verify(raw string, kind Kind) (*Claims, error) {
	if _, err := v.codec.Decode(raw); err != nil {
		return nil, err
	}
	claims, err := v.codec.verify(raw)
	if err != nil {
		return nil, err
	}
	now := v.cfg.Now()
	if claims.Issuer != v.cfg.Issuer {
		return nil, ErrBadIssuer
	}
	if claims.ExpiresAt == nil || claims.ExpiresAt.Add(v.cfg.Leeway).Before(now) {
		return nil, ErrExpired
	}
	if claims.Kind != kind {
		return nil, ErrWrongKind
	}
	return claims, nil
}

// VerifyRequest is the stricter variant used at the request-authentication
// boundary. On top of Verify it rejects forged minimal tokens: the issue
// time must be present and not in the future, the subject must be non-blank.
func (v *Verifier) VerifyRequest(raw string) (*Claims, error) {
	claims, err := v.Verify(raw, KindAccess)
	if err != nil {
		return nil, err
	}
	now := v.cfg.Now()
	if claims.IssuedAt == nil || claims.IssuedAt.After(now.Add(v.cfg.Leeway)) {
		return nil, ErrInvalidClaims
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrInvalidClaims
	}
	return claims, nil
}
