package authz

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func adminPrincipal() Principal {
	return Principal{Subject: "1", Scopes: []string{"ROLE_admin", "ROLE_editor"}}
}

func userPrincipal(subject string) Principal {
	return Principal{Subject: subject, Scopes: []string{"ROLE_user"}}
}

func TestHasRole(t *testing.T) {
	p := adminPrincipal()
	assert.True(t, p.HasRole("admin"))
	assert.True(t, p.HasRole("editor"))
	assert.False(t, p.HasRole("user"))
	assert.False(t, Principal{}.HasRole("admin"))
}

func TestIsAdmin(t *testing.T) {
	assert.True(t, adminPrincipal().IsAdmin())
	assert.False(t, userPrincipal("7").IsAdmin())
}

func TestIsSelfOrAdmin(t *testing.T) {
	assert.True(t, userPrincipal("7").IsSelfOrAdmin(7))
	assert.False(t, userPrincipal("7").IsSelfOrAdmin(8))
	assert.True(t, adminPrincipal().IsSelfOrAdmin(8))
}

func staticOwners(owners map[int64]int64) OwnerResolver {
	return OwnerResolverFunc(func(_ context.Context, resourceID int64) (int64, error) {
		owner, ok := owners[resourceID]
		if !ok {
			return 0, errors.New("resource not found")
		}
		return owner, nil
	})
}

func TestIsOwner(t *testing.T) {
	policy := NewPolicy(staticOwners(map[int64]int64{100: 7}))
	ctx := context.Background()

	assert.True(t, policy.IsOwner(ctx, userPrincipal("7"), 100))
	assert.False(t, policy.IsOwner(ctx, userPrincipal("8"), 100))
	// Missing resource denies instead of erroring.
	assert.False(t, policy.IsOwner(ctx, userPrincipal("7"), 999))
}

func TestCanEdit(t *testing.T) {
	policy := NewPolicy(staticOwners(map[int64]int64{100: 7}))
	ctx := context.Background()

	assert.True(t, policy.CanEdit(ctx, userPrincipal("7"), 100), "owner edits")
	assert.True(t, policy.CanEdit(ctx, adminPrincipal(), 100), "admin edits anything")
	assert.False(t, policy.CanEdit(ctx, userPrincipal("8"), 100))
}

func TestCanDelete(t *testing.T) {
	policy := NewPolicy(staticOwners(map[int64]int64{100: 7}))

	assert.True(t, policy.CanDelete(adminPrincipal()))
	// Even the owner cannot delete; admin only.
	assert.False(t, policy.CanDelete(userPrincipal("7")))
}
