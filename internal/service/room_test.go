package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/globalmoves/community/internal/model"
	"github.com/globalmoves/community/internal/service"
)

func TestCreatePrivateRoom_Defaults(t *testing.T) {
	f := newFixture(&model.User{ID: "u1", Email: "ana@example.com"})
	ctx := context.Background()

	rm, err := f.roomSvc.CreatePrivate(ctx, "u1", "  Visa Help  ", "Immigration Law", "weekly sync", nil)
	require.NoError(t, err)

	assert.Equal(t, "Visa Help", rm.Name)
	assert.True(t, rm.IsPrivate)
	require.NotNil(t, rm.MaxMembers)
	assert.Equal(t, 10, *rm.MaxMembers)
	require.NotNil(t, rm.CreatedBy)
	assert.Equal(t, "u1", *rm.CreatedBy)

	role, err := f.members.GetRole(ctx, rm.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, model.RoomRoleOwner, role)
}

func TestCreatePrivateRoom_Validation(t *testing.T) {
	f := newFixture(&model.User{ID: "u1"})
	ctx := context.Background()

	_, err := f.roomSvc.CreatePrivate(ctx, "u1", "   ", "Tech", "", nil)
	assert.Equal(t, service.KindValidation, service.KindOf(err))

	_, err = f.roomSvc.CreatePrivate(ctx, "u1", "Room", "", "", nil)
	assert.Equal(t, service.KindValidation, service.KindOf(err))

	one := 1
	_, err = f.roomSvc.CreatePrivate(ctx, "u1", "Room", "Tech", "", &one)
	assert.Equal(t, service.KindValidation, service.KindOf(err))

	big := 51
	_, err = f.roomSvc.CreatePrivate(ctx, "u1", "Room", "Tech", "", &big)
	assert.Equal(t, service.KindValidation, service.KindOf(err))
}

func TestCreatePrivateRoom_TwoPersonRoom(t *testing.T) {
	f := newFixture(&model.User{ID: "u1"})
	two := 2

	rm, err := f.roomSvc.CreatePrivate(context.Background(), "u1", "Pair Mentoring", "Tech", "", &two)
	require.NoError(t, err)
	require.NotNil(t, rm.MaxMembers)
	assert.Equal(t, 2, *rm.MaxMembers)
}

func TestCreatePublicRoom_AdminOnly(t *testing.T) {
	f := newFixture(&model.User{ID: "admin"}, &model.User{ID: "u1"})
	f.roles.admins["admin"] = true
	ctx := context.Background()

	_, err := f.roomSvc.CreatePublic(ctx, "u1", "Tech Circle", "Tech", "")
	assert.Equal(t, service.KindPermission, service.KindOf(err))

	rm, err := f.roomSvc.CreatePublic(ctx, "admin", "Tech Circle", "Tech", "open to all")
	require.NoError(t, err)
	assert.False(t, rm.IsPrivate)
	assert.Nil(t, rm.MaxMembers)
	assert.Nil(t, rm.CreatedBy)

	count, err := f.members.Count(ctx, rm.ID)
	require.NoError(t, err)
	assert.Zero(t, count, "public rooms carry no membership rows")
}

func TestDeleteRoom(t *testing.T) {
	f := newFixture(&model.User{ID: "owner"}, &model.User{ID: "admin"}, &model.User{ID: "other"})
	f.roles.admins["admin"] = true
	ctx := context.Background()

	private, err := f.roomSvc.CreatePrivate(ctx, "owner", "My Room", "Tech", "", nil)
	require.NoError(t, err)
	public, err := f.roomSvc.CreatePublic(ctx, "admin", "Lounge", "General", "")
	require.NoError(t, err)

	_, err = f.roomSvc.Delete(ctx, "other", private.ID)
	assert.Equal(t, service.KindPermission, service.KindOf(err))

	_, err = f.roomSvc.Delete(ctx, "admin", public.ID)
	assert.Equal(t, service.KindPermission, service.KindOf(err))

	deleted, err := f.roomSvc.Delete(ctx, "owner", private.ID)
	require.NoError(t, err)
	assert.Equal(t, private.ID, deleted.ID)

	_, err = f.roomSvc.Get(ctx, private.ID)
	assert.Equal(t, service.KindNotFound, service.KindOf(err))

	_, err = f.roomSvc.Delete(ctx, "owner", private.ID)
	assert.Equal(t, service.KindNotFound, service.KindOf(err))
}

func TestListRooms_VisibilityAndFieldMatch(t *testing.T) {
	f := newFixture(
		&model.User{ID: "admin"},
		&model.User{ID: "viewer", FieldOfWork: "immigration law"},
		&model.User{ID: "outsider"},
	)
	f.roles.admins["admin"] = true
	ctx := context.Background()

	_, err := f.roomSvc.CreatePublic(ctx, "admin", "Law Corner", "Immigration Law", "")
	require.NoError(t, err)
	private, err := f.roomSvc.CreatePrivate(ctx, "viewer", "Private Law", "Immigration Law", "", nil)
	require.NoError(t, err)

	rooms, err := f.roomSvc.List(ctx, "viewer")
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	for _, r := range rooms {
		assert.True(t, r.FieldMatch, "field match is case-insensitive")
	}

	rooms, err = f.roomSvc.List(ctx, "outsider")
	require.NoError(t, err)
	require.Len(t, rooms, 1, "private rooms are invisible to non-members")
	assert.NotEqual(t, private.ID, rooms[0].Room.ID)
	assert.False(t, rooms[0].FieldMatch)
}
