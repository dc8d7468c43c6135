package token

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Codec encodes and decodes the compact signed wire form. Signing uses an
// HS512 MAC over the shared secret; the secret is handed in already decoded
// from its stored base64 form and is never read from process state.
type Codec struct {
	secret []byte
}

func NewCodec(secret []byte) *Codec {
	return &Codec{secret: secret}
}

// Encode signs the claims into the three-part wire string.
func (c *Codec) Encode(claims *Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(c.secret)
}

// Decode splits and parses the wire string without verifying anything, so
// structural failures are distinguishable from verification failures.
func (c *Codec) Decode(raw string) (*Claims, error) {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return &claims, nil
}

// verify recomputes the MAC and returns the claims. Claim validation is left
// to the Verifier so the check order stays explicit.
func (c *Codec) verify(raw string) (*Claims, error) {
	var claims Claims
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	_, err := parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
		return c.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	return &claims, nil
}
