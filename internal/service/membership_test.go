package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/globalmoves/community/internal/model"
	"github.com/globalmoves/community/internal/repository"
	"github.com/globalmoves/community/internal/service"
)

func membershipFixture(t *testing.T) (*fixture, *model.Room) {
	t.Helper()
	f := newFixture(
		&model.User{ID: "owner", Email: "owner@example.com", DisplayName: "Olga"},
		&model.User{ID: "guest", Email: "guest@example.com", DisplayName: "Gero"},
		&model.User{ID: "third", Email: "third@example.com"},
	)
	rm, err := f.roomSvc.CreatePrivate(context.Background(), "owner", "Visa Help", "Immigration Law", "", nil)
	require.NoError(t, err)
	return f, rm
}

func TestInvite_HappyPath(t *testing.T) {
	f, rm := membershipFixture(t)
	ctx := context.Background()

	inv, err := f.memberSvc.Invite(ctx, "owner", rm.ID, "Guest@Example.com ", "join us")
	require.NoError(t, err)
	assert.Equal(t, "guest", inv.InvitedUserID)
	assert.Equal(t, model.InvitationPending, inv.Status)
	assert.Equal(t, "join us", inv.Message)
	require.NotNil(t, inv.InvitedBy)
	assert.Equal(t, "owner", *inv.InvitedBy)

	inbox, err := f.memberSvc.Inbox(ctx, "guest")
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, "Visa Help", inbox[0].RoomName)
}

func TestInvite_Rejections(t *testing.T) {
	f, rm := membershipFixture(t)
	f.roles.admins["owner"] = true
	ctx := context.Background()

	_, err := f.memberSvc.Invite(ctx, "owner", rm.ID, "", "")
	assert.Equal(t, service.KindValidation, service.KindOf(err))

	public, err := f.roomSvc.CreatePublic(ctx, "owner", "Lounge", "General", "")
	require.NoError(t, err)
	_, err = f.memberSvc.Invite(ctx, "owner", public.ID, "guest@example.com", "")
	assert.Equal(t, service.KindValidation, service.KindOf(err))

	_, err = f.memberSvc.Invite(ctx, "guest", rm.ID, "third@example.com", "")
	assert.Equal(t, service.KindPermission, service.KindOf(err))

	_, err = f.memberSvc.Invite(ctx, "owner", rm.ID, "nobody@example.com", "")
	assert.Equal(t, service.KindNotFound, service.KindOf(err))

	_, err = f.memberSvc.Invite(ctx, "owner", rm.ID, "owner@example.com", "")
	assert.Equal(t, service.KindConflict, service.KindOf(err))
}

func TestInvite_FullRoom(t *testing.T) {
	f := newFixture(
		&model.User{ID: "owner", Email: "owner@example.com"},
		&model.User{ID: "guest", Email: "guest@example.com"},
		&model.User{ID: "third", Email: "third@example.com"},
	)
	ctx := context.Background()
	two := 2
	rm, err := f.roomSvc.CreatePrivate(ctx, "owner", "Pair Room", "Tech", "", &two)
	require.NoError(t, err)

	inv, err := f.memberSvc.Invite(ctx, "owner", rm.ID, "guest@example.com", "")
	require.NoError(t, err)
	_, err = f.memberSvc.Respond(ctx, "guest", inv.ID, true)
	require.NoError(t, err)

	_, err = f.memberSvc.Invite(ctx, "owner", rm.ID, "third@example.com", "")
	assert.Equal(t, service.KindConflict, service.KindOf(err))
}

func TestInvite_AnyPriorInvitationBlocks(t *testing.T) {
	f, rm := membershipFixture(t)
	ctx := context.Background()

	inv, err := f.memberSvc.Invite(ctx, "owner", rm.ID, "guest@example.com", "")
	require.NoError(t, err)
	_, err = f.memberSvc.Respond(ctx, "guest", inv.ID, false)
	require.NoError(t, err)

	// A declined invitation still blocks a repeat invite.
	_, err = f.memberSvc.Invite(ctx, "owner", rm.ID, "guest@example.com", "")
	assert.Equal(t, service.KindConflict, service.KindOf(err))
}

func TestRespond_Accept(t *testing.T) {
	f, rm := membershipFixture(t)
	ctx := context.Background()

	inv, err := f.memberSvc.Invite(ctx, "owner", rm.ID, "guest@example.com", "")
	require.NoError(t, err)

	answered, err := f.memberSvc.Respond(ctx, "guest", inv.ID, true)
	require.NoError(t, err)
	assert.Equal(t, model.InvitationAccepted, answered.Status)
	assert.NotNil(t, answered.RespondedAt)

	role, err := f.members.GetRole(ctx, rm.ID, "guest")
	require.NoError(t, err)
	assert.Equal(t, model.RoomRoleMember, role)
}

func TestRespond_WrongAddressee(t *testing.T) {
	f, rm := membershipFixture(t)
	ctx := context.Background()

	inv, err := f.memberSvc.Invite(ctx, "owner", rm.ID, "guest@example.com", "")
	require.NoError(t, err)

	_, err = f.memberSvc.Respond(ctx, "third", inv.ID, true)
	assert.Equal(t, service.KindPermission, service.KindOf(err))
}

func TestRespond_AlreadyAnswered(t *testing.T) {
	f, rm := membershipFixture(t)
	ctx := context.Background()

	inv, err := f.memberSvc.Invite(ctx, "owner", rm.ID, "guest@example.com", "")
	require.NoError(t, err)
	_, err = f.memberSvc.Respond(ctx, "guest", inv.ID, true)
	require.NoError(t, err)

	_, err = f.memberSvc.Respond(ctx, "guest", inv.ID, true)
	assert.Equal(t, service.KindState, service.KindOf(err))

	count, err := f.members.Count(ctx, rm.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count, "a repeat accept must not add a second membership")
}

func TestRespond_LostAcceptRaceLeavesNoMembership(t *testing.T) {
	f, rm := membershipFixture(t)
	ctx := context.Background()

	inv, err := f.memberSvc.Invite(ctx, "owner", rm.ID, "guest@example.com", "")
	require.NoError(t, err)
	_, err = f.memberSvc.Respond(ctx, "guest", inv.ID, false)
	require.NoError(t, err)

	// A concurrent accept that lost the race reaches the store after the
	// invitation is already answered: conflict, and no partial write.
	err = f.invitations.Accept(ctx, inv.ID, rm.ID, "guest")
	assert.ErrorIs(t, err, repository.ErrConflict)

	isMember, err := f.members.IsMember(ctx, rm.ID, "guest")
	require.NoError(t, err)
	assert.False(t, isMember)
}

func TestRespond_AcceptIntoFullRoom(t *testing.T) {
	f := newFixture(
		&model.User{ID: "owner", Email: "owner@example.com"},
		&model.User{ID: "a", Email: "a@example.com"},
		&model.User{ID: "b", Email: "b@example.com"},
	)
	ctx := context.Background()
	two := 2
	rm, err := f.roomSvc.CreatePrivate(ctx, "owner", "Pair Room", "Tech", "", &two)
	require.NoError(t, err)

	invA, err := f.memberSvc.Invite(ctx, "owner", rm.ID, "a@example.com", "")
	require.NoError(t, err)
	invB, err := f.memberSvc.Invite(ctx, "owner", rm.ID, "b@example.com", "")
	require.NoError(t, err)

	_, err = f.memberSvc.Respond(ctx, "a", invA.ID, true)
	require.NoError(t, err)

	// The room filled up between the invite and the answer.
	_, err = f.memberSvc.Respond(ctx, "b", invB.ID, true)
	assert.Equal(t, service.KindConflict, service.KindOf(err))
}

func TestLeave(t *testing.T) {
	f, rm := membershipFixture(t)
	ctx := context.Background()

	inv, err := f.memberSvc.Invite(ctx, "owner", rm.ID, "guest@example.com", "")
	require.NoError(t, err)
	_, err = f.memberSvc.Respond(ctx, "guest", inv.ID, true)
	require.NoError(t, err)

	err = f.memberSvc.Leave(ctx, "owner", rm.ID)
	assert.Equal(t, service.KindPermission, service.KindOf(err))

	err = f.memberSvc.Leave(ctx, "third", rm.ID)
	assert.Equal(t, service.KindState, service.KindOf(err))

	require.NoError(t, f.memberSvc.Leave(ctx, "guest", rm.ID))
	isMember, err := f.members.IsMember(ctx, rm.ID, "guest")
	require.NoError(t, err)
	assert.False(t, isMember)
}

func TestRemoveMember(t *testing.T) {
	f, rm := membershipFixture(t)
	ctx := context.Background()

	inv, err := f.memberSvc.Invite(ctx, "owner", rm.ID, "guest@example.com", "")
	require.NoError(t, err)
	_, err = f.memberSvc.Respond(ctx, "guest", inv.ID, true)
	require.NoError(t, err)

	err = f.memberSvc.RemoveMember(ctx, "guest", rm.ID, "owner")
	assert.Equal(t, service.KindPermission, service.KindOf(err))

	err = f.memberSvc.RemoveMember(ctx, "owner", rm.ID, "owner")
	assert.Equal(t, service.KindPermission, service.KindOf(err))

	err = f.memberSvc.RemoveMember(ctx, "owner", rm.ID, "third")
	assert.Equal(t, service.KindNotFound, service.KindOf(err))

	require.NoError(t, f.memberSvc.RemoveMember(ctx, "owner", rm.ID, "guest"))
}

func TestMembers_PrivateRoomRosterIsMemberOnly(t *testing.T) {
	f, rm := membershipFixture(t)
	ctx := context.Background()

	_, err := f.memberSvc.Members(ctx, "guest", rm.ID)
	assert.Equal(t, service.KindPermission, service.KindOf(err))

	roster, err := f.memberSvc.Members(ctx, "owner", rm.ID)
	require.NoError(t, err)
	require.Len(t, roster, 1)
	assert.Equal(t, model.RoomRoleOwner, roster[0].Role)
}
