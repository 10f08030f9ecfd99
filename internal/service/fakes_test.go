package service_test

import (
	"context"
	"sort"
	"time"

	"github.com/globalmoves/community/internal/model"
	"github.com/globalmoves/community/internal/repository"
	"github.com/globalmoves/community/internal/service"
)

// fixture wires every service against shared in-memory fakes.
type fixture struct {
	users         *fakeUsers
	rooms         *fakeRooms
	members       *fakeMembers
	invitations   *fakeInvitations
	messages      *fakeMessages
	opportunities *fakeOpportunities
	shares        *fakeShares
	roles         *fakeRoles

	roomSvc    *service.RoomService
	memberSvc  *service.MembershipService
	chatSvc    *service.ChatService
	boardSvc   *service.BoardService
	profileSvc *service.ProfileService
	roleSvc    *service.RoleService
}

func newFixture(users ...*model.User) *fixture {
	f := &fixture{
		users:         newFakeUsers(users...),
		messages:      &fakeMessages{},
		opportunities: newFakeOpportunities(),
		shares:        &fakeShares{},
		roles:         &fakeRoles{admins: make(map[string]bool), mods: make(map[string]bool)},
	}
	f.members = newFakeMembers(f.users)
	f.rooms = newFakeRooms(f.members)
	f.invitations = newFakeInvitations(f.rooms, f.members)

	f.roomSvc = service.NewRoomService(f.rooms, f.users, f.roles)
	f.memberSvc = service.NewMembershipService(f.rooms, f.members, f.invitations, f.users)
	f.chatSvc = service.NewChatService(f.rooms, f.members, f.messages, f.users)
	f.boardSvc = service.NewBoardService(f.chatSvc, f.opportunities, f.shares, f.users)
	f.profileSvc = service.NewProfileService(f.users)
	f.roleSvc = service.NewRoleService(f.roles, f.users)
	return f
}

// In-memory fakes backing the service tests. They follow the repository
// contracts: sentinel errors for missing rows and conflicts, and the same
// atomicity rules as the SQL implementations.

type fakeUsers struct {
	byID map[string]*model.User
}

func newFakeUsers(users ...*model.User) *fakeUsers {
	f := &fakeUsers{byID: make(map[string]*model.User)}
	for _, u := range users {
		f.byID[u.ID] = u
	}
	return f
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*model.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range f.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUsers) UpdateProfile(_ context.Context, userID string, upd model.ProfileUpdate) error {
	u, ok := f.byID[userID]
	if !ok {
		return repository.ErrNotFound
	}
	if upd.DisplayName != nil {
		u.DisplayName = *upd.DisplayName
	}
	if upd.FieldOfWork != nil {
		u.FieldOfWork = *upd.FieldOfWork
	}
	if upd.Country != nil {
		u.Country = *upd.Country
	}
	if upd.AvatarURL != nil {
		u.AvatarURL = *upd.AvatarURL
	}
	return nil
}

type fakeRooms struct {
	rooms   map[string]*model.Room
	members *fakeMembers
}

func newFakeRooms(members *fakeMembers) *fakeRooms {
	return &fakeRooms{rooms: make(map[string]*model.Room), members: members}
}

func (f *fakeRooms) Create(_ context.Context, rm *model.Room) error {
	f.rooms[rm.ID] = rm
	return nil
}

func (f *fakeRooms) CreateWithOwner(ctx context.Context, rm *model.Room, ownerID string) error {
	f.rooms[rm.ID] = rm
	return f.members.Add(ctx, rm.ID, ownerID, model.RoomRoleOwner)
}

func (f *fakeRooms) GetByID(_ context.Context, id string) (*model.Room, error) {
	rm, ok := f.rooms[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *rm
	return &cp, nil
}

func (f *fakeRooms) Delete(_ context.Context, id string) error {
	if _, ok := f.rooms[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.rooms, id)
	return nil
}

func (f *fakeRooms) ListVisible(_ context.Context, viewerID string) ([]model.RoomSummary, error) {
	var out []model.RoomSummary
	for _, rm := range f.rooms {
		role, isMember := f.members.rooms[rm.ID][viewerID]
		if rm.IsPrivate && !isMember {
			continue
		}
		s := model.RoomSummary{
			Room:        *rm,
			MemberCount: len(f.members.rooms[rm.ID]),
			IsMember:    isMember,
		}
		if isMember {
			r := role
			s.Role = &r
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Room.IsPrivate != out[j].Room.IsPrivate {
			return !out[i].Room.IsPrivate
		}
		return out[i].Room.Name < out[j].Room.Name
	})
	return out, nil
}

type fakeMembers struct {
	rooms map[string]map[string]model.RoomRole
	users *fakeUsers
}

func newFakeMembers(users *fakeUsers) *fakeMembers {
	return &fakeMembers{rooms: make(map[string]map[string]model.RoomRole), users: users}
}

func (f *fakeMembers) Add(_ context.Context, roomID, userID string, role model.RoomRole) error {
	room := f.rooms[roomID]
	if room == nil {
		room = make(map[string]model.RoomRole)
		f.rooms[roomID] = room
	}
	if _, ok := room[userID]; ok {
		return repository.ErrConflict
	}
	room[userID] = role
	return nil
}

func (f *fakeMembers) Remove(_ context.Context, roomID, userID string) error {
	if _, ok := f.rooms[roomID][userID]; !ok {
		return repository.ErrNotFound
	}
	delete(f.rooms[roomID], userID)
	return nil
}

func (f *fakeMembers) GetRole(_ context.Context, roomID, userID string) (model.RoomRole, error) {
	role, ok := f.rooms[roomID][userID]
	if !ok {
		return "", repository.ErrNotFound
	}
	return role, nil
}

func (f *fakeMembers) IsMember(_ context.Context, roomID, userID string) (bool, error) {
	_, ok := f.rooms[roomID][userID]
	return ok, nil
}

func (f *fakeMembers) Count(_ context.Context, roomID string) (int, error) {
	return len(f.rooms[roomID]), nil
}

func (f *fakeMembers) List(_ context.Context, roomID string) ([]model.RoomMemberInfo, error) {
	var out []model.RoomMemberInfo
	for userID, role := range f.rooms[roomID] {
		info := model.RoomMemberInfo{Role: role}
		if u, ok := f.users.byID[userID]; ok {
			info.User = u.ToPublic()
		} else {
			info.User = model.UserPublic{ID: userID}
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].User.ID < out[j].User.ID })
	return out, nil
}

type fakeInvitations struct {
	byID    map[string]*model.Invitation
	rooms   *fakeRooms
	members *fakeMembers
}

func newFakeInvitations(rooms *fakeRooms, members *fakeMembers) *fakeInvitations {
	return &fakeInvitations{byID: make(map[string]*model.Invitation), rooms: rooms, members: members}
}

func (f *fakeInvitations) Create(_ context.Context, inv *model.Invitation) error {
	for _, other := range f.byID {
		if other.RoomID == inv.RoomID && other.InvitedUserID == inv.InvitedUserID {
			return repository.ErrConflict
		}
	}
	cp := *inv
	f.byID[inv.ID] = &cp
	return nil
}

func (f *fakeInvitations) GetByID(_ context.Context, id string) (*model.Invitation, error) {
	inv, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *inv
	return &cp, nil
}

func (f *fakeInvitations) ExistsForUser(_ context.Context, roomID, userID string) (bool, error) {
	for _, inv := range f.byID {
		if inv.RoomID == roomID && inv.InvitedUserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeInvitations) ListPendingForUser(_ context.Context, userID string) ([]model.InvitationView, error) {
	var out []model.InvitationView
	for _, inv := range f.byID {
		if inv.InvitedUserID != userID || inv.Status != model.InvitationPending {
			continue
		}
		view := model.InvitationView{Invitation: *inv}
		if rm, ok := f.rooms.rooms[inv.RoomID]; ok {
			view.RoomName = rm.Name
			view.RoomField = rm.Field
		}
		out = append(out, view)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Invitation.CreatedAt.After(out[j].Invitation.CreatedAt)
	})
	return out, nil
}

// Accept mirrors the outcome of the SQL transaction: a failure at any step
// leaves no membership behind. There is no rollback here, so every check runs
// before the membership insert.
func (f *fakeInvitations) Accept(ctx context.Context, invitationID, roomID, userID string) error {
	inv, ok := f.byID[invitationID]
	if !ok {
		return repository.ErrNotFound
	}
	rm, ok := f.rooms.rooms[roomID]
	if !ok {
		return repository.ErrNotFound
	}
	if rm.MaxMembers != nil && len(f.members.rooms[roomID]) >= *rm.MaxMembers {
		return repository.ErrRoomFull
	}
	if inv.Status != model.InvitationPending {
		return repository.ErrConflict
	}
	if err := f.members.Add(ctx, roomID, userID, model.RoomRoleMember); err != nil {
		return err
	}
	now := time.Now().UTC()
	inv.Status = model.InvitationAccepted
	inv.RespondedAt = &now
	return nil
}

func (f *fakeInvitations) Decline(_ context.Context, invitationID string) error {
	inv, ok := f.byID[invitationID]
	if !ok {
		return repository.ErrNotFound
	}
	if inv.Status != model.InvitationPending {
		return repository.ErrConflict
	}
	now := time.Now().UTC()
	inv.Status = model.InvitationDeclined
	inv.RespondedAt = &now
	return nil
}

type fakeMessages struct {
	list []model.Message
}

func (f *fakeMessages) Create(_ context.Context, m *model.Message) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	f.list = append(f.list, *m)
	return nil
}

func (f *fakeMessages) ListByRoom(_ context.Context, roomID string) ([]model.Message, error) {
	var out []model.Message
	for _, m := range f.list {
		if m.RoomID == roomID {
			out = append(out, m)
		}
	}
	return out, nil
}

type fakeOpportunities struct {
	byID map[string]*model.Opportunity
}

func newFakeOpportunities(opps ...*model.Opportunity) *fakeOpportunities {
	f := &fakeOpportunities{byID: make(map[string]*model.Opportunity)}
	for _, o := range opps {
		f.byID[o.ID] = o
	}
	return f
}

func (f *fakeOpportunities) GetByID(_ context.Context, id string) (*model.Opportunity, error) {
	o, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeOpportunities) ListActive(_ context.Context) ([]model.Opportunity, error) {
	var out []model.Opportunity
	for _, o := range f.byID {
		if o.IsActive {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

type fakeShares struct {
	list []model.SharedOpportunity
}

func (f *fakeShares) Create(_ context.Context, s *model.SharedOpportunity) error {
	for _, other := range f.list {
		if other.RoomID == s.RoomID && other.OpportunityID == s.OpportunityID {
			return repository.ErrConflict
		}
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	f.list = append(f.list, *s)
	return nil
}

func (f *fakeShares) ListByRoom(_ context.Context, roomID string) ([]model.SharedOpportunity, error) {
	var out []model.SharedOpportunity
	for i := len(f.list) - 1; i >= 0; i-- {
		if f.list[i].RoomID == roomID {
			out = append(out, f.list[i])
		}
	}
	return out, nil
}

type fakeRoles struct {
	admins map[string]bool
	mods   map[string]bool
}

func (f *fakeRoles) HasRole(_ context.Context, userID string, role model.Role) (bool, error) {
	switch role {
	case model.RoleAdmin:
		return f.admins[userID], nil
	case model.RoleModerator:
		return f.mods[userID], nil
	}
	return false, nil
}

func (f *fakeRoles) Grant(_ context.Context, userID string, role model.Role) error {
	switch role {
	case model.RoleAdmin:
		f.admins[userID] = true
	case model.RoleModerator:
		f.mods[userID] = true
	}
	return nil
}

func (f *fakeRoles) Revoke(_ context.Context, userID string, role model.Role) error {
	switch role {
	case model.RoleAdmin:
		delete(f.admins, userID)
	case model.RoleModerator:
		delete(f.mods, userID)
	}
	return nil
}
