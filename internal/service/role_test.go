package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/globalmoves/community/internal/model"
	"github.com/globalmoves/community/internal/service"
)

func TestGrantRole(t *testing.T) {
	ctx := context.Background()
	f := newFixture(
		&model.User{ID: "admin", Email: "admin@example.com"},
		&model.User{ID: "nadia", Email: "nadia@example.com"},
	)
	f.roles.admins["admin"] = true

	require.NoError(t, f.roleSvc.Grant(ctx, "admin", "nadia", "moderator"))
	isMod, err := f.roles.HasRole(ctx, "nadia", model.RoleModerator)
	require.NoError(t, err)
	assert.True(t, isMod)

	// Granting an already-held role stays a no-op.
	require.NoError(t, f.roleSvc.Grant(ctx, "admin", "nadia", "moderator"))

	err = f.roleSvc.Grant(ctx, "nadia", "admin", "admin")
	assert.Equal(t, service.KindPermission, service.KindOf(err), "moderators cannot grant")

	err = f.roleSvc.Grant(ctx, "admin", "ghost", "moderator")
	assert.Equal(t, service.KindNotFound, service.KindOf(err))

	err = f.roleSvc.Grant(ctx, "admin", "nadia", "superuser")
	assert.Equal(t, service.KindValidation, service.KindOf(err))
}

func TestRevokeRole(t *testing.T) {
	ctx := context.Background()
	f := newFixture(
		&model.User{ID: "admin", Email: "admin@example.com"},
		&model.User{ID: "nadia", Email: "nadia@example.com"},
	)
	f.roles.admins["admin"] = true
	f.roles.mods["nadia"] = true

	err := f.roleSvc.Revoke(ctx, "nadia", "nadia", "moderator")
	assert.Equal(t, service.KindPermission, service.KindOf(err))

	require.NoError(t, f.roleSvc.Revoke(ctx, "admin", "nadia", "moderator"))
	isMod, err := f.roles.HasRole(ctx, "nadia", model.RoleModerator)
	require.NoError(t, err)
	assert.False(t, isMod)

	err = f.roleSvc.Revoke(ctx, "admin", "admin", "admin")
	assert.Equal(t, service.KindState, service.KindOf(err), "self-revoke of admin is refused")
	isAdmin, err := f.roles.HasRole(ctx, "admin", model.RoleAdmin)
	require.NoError(t, err)
	assert.True(t, isAdmin)
}
