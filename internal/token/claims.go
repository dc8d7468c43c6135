package token

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Kind distinguishes the two credentials this service signs.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// RolePrefix is prepended to every role slug carried in the scope claim.
const RolePrefix = "ROLE_"

// Claims is the decoded payload of a signed token. The claim set is decoded
// once into this struct; callers branch on Kind, never on raw claim keys.
type Claims struct {
	Email string `json:"email,omitempty"`
	Kind  Kind   `json:"type"`
	Scope string `json:"scope,omitempty"`
	jwt.RegisteredClaims
}

// Scopes splits the space-joined scope claim into individual entries.
func (c *Claims) Scopes() []string {
	return strings.Fields(c.Scope)
}

// BuildScope joins role slugs into the scope claim form, e.g. "ROLE_admin
// ROLE_editor".
func BuildScope(slugs []string) string {
	parts := make([]string, 0, len(slugs))
	for _, slug := range slugs {
		parts = append(parts, RolePrefix+slug)
	}
	return strings.Join(parts, " ")
}
