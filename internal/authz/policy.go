// Package authz holds the policy predicates the business layer's
// access-control decorators evaluate over an already-verified principal.
// The predicates are pure except for the single owner lookup behind
// OwnerResolver; nothing here runs before verification.
package authz

import (
	"context"
	"strconv"

	"github.com/cagongu/blog-backend/internal/token"
)

// AdminRole is the role slug that grants unconditional edit and delete.
const AdminRole = "admin"

// Principal is the verified identity attached to the request context by the
// authentication middleware.
type Principal struct {
	Subject string
	Scopes  []string
}

func (p Principal) HasRole(role string) bool {
	want := token.RolePrefix + role
	for _, scope := range p.Scopes {
		if scope == want {
			return true
		}
	}
	return false
}

func (p Principal) IsAdmin() bool {
	return p.HasRole(AdminRole)
}

// IsSelfOrAdmin allows a user to act on their own record, or an admin on any.
func (p Principal) IsSelfOrAdmin(userID int64) bool {
	return p.IsAdmin() || p.Subject == strconv.FormatInt(userID, 10)
}

// OwnerResolver is the collaborator-facing contract for ownership checks:
// given a resource id it returns the owning user's id.
type OwnerResolver interface {
	OwnerID(ctx context.Context, resourceID int64) (int64, error)
}

// OwnerResolverFunc adapts a function to the OwnerResolver interface.
type OwnerResolverFunc func(ctx context.Context, resourceID int64) (int64, error)

func (f OwnerResolverFunc) OwnerID(ctx context.Context, resourceID int64) (int64, error) {
	return f(ctx, resourceID)
}

type Policy struct {
	owners OwnerResolver
}

func NewPolicy(owners OwnerResolver) *Policy {
	return &Policy{owners: owners}
}

// IsOwner reports whether the principal owns the resource. A missing
// resource or lookup failure denies.
func (p *Policy) IsOwner(ctx context.Context, pr Principal, resourceID int64) bool {
	ownerID, err := p.owners.OwnerID(ctx, resourceID)
	if err != nil {
		return false
	}
	return pr.Subject == strconv.FormatInt(ownerID, 10)
}

// CanEdit admits the owner or an admin.
func (p *Policy) CanEdit(ctx context.Context, pr Principal, resourceID int64) bool {
	if pr.IsAdmin() {
		return true
	}
	return p.IsOwner(ctx, pr, resourceID)
}

// CanDelete admits admins only.
func (p *Policy) CanDelete(pr Principal) bool {
	return pr.IsAdmin()
}
