package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/globalmoves/community/internal/model"
	"github.com/globalmoves/community/internal/service"
)

func TestPost_ContentValidation(t *testing.T) {
	f := newFixture(&model.User{ID: "admin"}, &model.User{ID: "u1"})
	f.roles.admins["admin"] = true
	ctx := context.Background()
	rm, err := f.roomSvc.CreatePublic(ctx, "admin", "Lounge", "General", "")
	require.NoError(t, err)

	_, err = f.chatSvc.Post(ctx, "u1", rm.ID, "   \n\t ")
	assert.Equal(t, service.KindValidation, service.KindOf(err))

	msg, err := f.chatSvc.Post(ctx, "u1", rm.ID, "  hello  ")
	require.NoError(t, err)
	assert.Equal(t, "hello", msg.Content)
	assert.NotEmpty(t, msg.ID)
	assert.False(t, msg.CreatedAt.IsZero())
}

func TestPost_PublicRoomIsOpenToEveryone(t *testing.T) {
	f := newFixture(&model.User{ID: "admin"}, &model.User{ID: "stranger"})
	f.roles.admins["admin"] = true
	ctx := context.Background()
	rm, err := f.roomSvc.CreatePublic(ctx, "admin", "Lounge", "General", "")
	require.NoError(t, err)

	_, err = f.chatSvc.Post(ctx, "stranger", rm.ID, "hi all")
	assert.NoError(t, err)
}

func TestPost_PrivateRoomMembersOnly(t *testing.T) {
	f := newFixture(
		&model.User{ID: "owner", Email: "owner@example.com"},
		&model.User{ID: "guest", Email: "guest@example.com"},
	)
	ctx := context.Background()
	rm, err := f.roomSvc.CreatePrivate(ctx, "owner", "Private", "Tech", "", nil)
	require.NoError(t, err)

	_, err = f.chatSvc.Post(ctx, "guest", rm.ID, "knock knock")
	assert.Equal(t, service.KindPermission, service.KindOf(err))

	inv, err := f.memberSvc.Invite(ctx, "owner", rm.ID, "guest@example.com", "")
	require.NoError(t, err)
	_, err = f.memberSvc.Respond(ctx, "guest", inv.ID, true)
	require.NoError(t, err)

	_, err = f.chatSvc.Post(ctx, "guest", rm.ID, "hello")
	require.NoError(t, err)

	// Once removed, posting is forbidden again.
	require.NoError(t, f.memberSvc.RemoveMember(ctx, "owner", rm.ID, "guest"))
	_, err = f.chatSvc.Post(ctx, "guest", rm.ID, "still here?")
	assert.Equal(t, service.KindPermission, service.KindOf(err))
}

func TestPost_UnknownRoom(t *testing.T) {
	f := newFixture(&model.User{ID: "u1"})
	_, err := f.chatSvc.Post(context.Background(), "u1", "missing", "hello")
	assert.Equal(t, service.KindNotFound, service.KindOf(err))
}

func TestHistory_ChronologicalAndGuarded(t *testing.T) {
	f := newFixture(&model.User{ID: "admin"}, &model.User{ID: "u1"})
	f.roles.admins["admin"] = true
	ctx := context.Background()
	rm, err := f.roomSvc.CreatePublic(ctx, "admin", "Lounge", "General", "")
	require.NoError(t, err)

	for _, text := range []string{"first", "second", "third"} {
		_, err := f.chatSvc.Post(ctx, "u1", rm.ID, text)
		require.NoError(t, err)
	}

	history, err := f.chatSvc.History(ctx, "u1", rm.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "first", history[0].Content)
	assert.Equal(t, "third", history[2].Content)
}

func TestSenderName_FallbackChain(t *testing.T) {
	f := newFixture(
		&model.User{ID: "named", Email: "named@example.com", DisplayName: "Nadia"},
		&model.User{ID: "emailonly", Email: "pavel@example.com"},
		&model.User{ID: "blank", Email: "@broken"},
	)
	ctx := context.Background()

	assert.Equal(t, "Nadia", f.chatSvc.SenderName(ctx, "named"))
	assert.Equal(t, "pavel", f.chatSvc.SenderName(ctx, "emailonly"))
	assert.Equal(t, "Anonymous", f.chatSvc.SenderName(ctx, "blank"))
	assert.Equal(t, "Anonymous", f.chatSvc.SenderName(ctx, "missing-user"))
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(&model.User{ID: "u1", Email: "u1@example.com", DisplayName: "Uri"})
	ctx := context.Background()

	empty := "   "
	_, err := f.profileSvc.Update(ctx, "u1", model.ProfileUpdate{DisplayName: &empty})
	assert.Equal(t, service.KindValidation, service.KindOf(err))

	field := "Data Science"
	updated, err := f.profileSvc.Update(ctx, "u1", model.ProfileUpdate{FieldOfWork: &field})
	require.NoError(t, err)
	assert.Equal(t, "Data Science", updated.FieldOfWork)
	assert.Equal(t, "Uri", updated.DisplayName, "omitted fields stay unchanged")
}
