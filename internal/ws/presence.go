package ws

import "sort"

// presenceEntry tracks one user's presence in a room. conns counts the
// user's open connections that joined the room; presence is per user,
// so only the first and last connection produce a roster change.
type presenceEntry struct {
	displayName string
	conns       int
}

// presenceTable holds the in-memory roster of every room. It is owned
// by the hub run loop and must never be touched from other goroutines.
type presenceTable struct {
	rooms map[string]map[string]*presenceEntry
}

func newPresenceTable() *presenceTable {
	return &presenceTable{rooms: make(map[string]map[string]*presenceEntry)}
}

// Join records one connection of userID in roomID. It returns true when
// this is the user's first connection in the room, i.e. the user just
// became present.
func (p *presenceTable) Join(roomID, userID, displayName string) bool {
	room := p.rooms[roomID]
	if room == nil {
		room = make(map[string]*presenceEntry)
		p.rooms[roomID] = room
	}
	e := room[userID]
	if e == nil {
		room[userID] = &presenceEntry{displayName: displayName, conns: 1}
		return true
	}
	e.conns++
	return false
}

// Leave drops one connection of userID from roomID. It returns true when
// that was the user's last connection in the room. Leaving a room or user
// that is not tracked is a no-op.
func (p *presenceTable) Leave(roomID, userID string) bool {
	room := p.rooms[roomID]
	if room == nil {
		return false
	}
	e := room[userID]
	if e == nil {
		return false
	}
	e.conns--
	if e.conns > 0 {
		return false
	}
	delete(room, userID)
	if len(room) == 0 {
		delete(p.rooms, roomID)
	}
	return true
}

// Snapshot returns the current roster of roomID sorted by display name,
// with user ID as tiebreaker so the order is stable.
func (p *presenceTable) Snapshot(roomID string) []PresenceEntry {
	room := p.rooms[roomID]
	users := make([]PresenceEntry, 0, len(room))
	for id, e := range room {
		users = append(users, PresenceEntry{UserID: id, DisplayName: e.displayName})
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].DisplayName != users[j].DisplayName {
			return users[i].DisplayName < users[j].DisplayName
		}
		return users[i].UserID < users[j].UserID
	})
	return users
}

// Drop removes a whole room from the table, returning the user IDs that
// were present.
func (p *presenceTable) Drop(roomID string) []string {
	room := p.rooms[roomID]
	if room == nil {
		return nil
	}
	ids := make([]string, 0, len(room))
	for id := range room {
		ids = append(ids, id)
	}
	delete(p.rooms, roomID)
	return ids
}
