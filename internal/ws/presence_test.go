package ws

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPresenceTable_CollapsesConnectionsPerUser(t *testing.T) {
	p := newPresenceTable()

	assert.True(t, p.Join("room1", "u1", "Ana"), "first connection makes the user present")
	assert.False(t, p.Join("room1", "u1", "Ana"), "second connection changes nothing")
	assert.True(t, p.Join("room1", "u2", "Ben"))

	assert.False(t, p.Leave("room1", "u1"), "one connection remains")
	assert.True(t, p.Leave("room1", "u1"), "last connection removes presence")
	assert.True(t, p.Leave("room1", "u2"))
}

func TestPresenceTable_LeaveUnknownIsNoop(t *testing.T) {
	p := newPresenceTable()

	assert.False(t, p.Leave("ghost-room", "u1"))

	p.Join("room1", "u1", "Ana")
	assert.False(t, p.Leave("room1", "u2"))
	assert.True(t, p.Leave("room1", "u1"))
	assert.False(t, p.Leave("room1", "u1"), "repeated leave stays a no-op")
}

func TestPresenceTable_SnapshotSorted(t *testing.T) {
	p := newPresenceTable()
	p.Join("room1", "u3", "Chloe")
	p.Join("room1", "u1", "Ana")
	p.Join("room1", "u2", "Ana")

	users := p.Snapshot("room1")
	assert.Equal(t, []PresenceEntry{
		{UserID: "u1", DisplayName: "Ana"},
		{UserID: "u2", DisplayName: "Ana"},
		{UserID: "u3", DisplayName: "Chloe"},
	}, users)

	assert.Empty(t, p.Snapshot("empty-room"))
}

func TestPresenceTable_RoomsAreIndependent(t *testing.T) {
	p := newPresenceTable()
	p.Join("room1", "u1", "Ana")
	p.Join("room2", "u1", "Ana")

	assert.True(t, p.Leave("room1", "u1"))
	users := p.Snapshot("room2")
	assert.Len(t, users, 1)
}

func TestPresenceTable_Drop(t *testing.T) {
	p := newPresenceTable()
	p.Join("room1", "u1", "Ana")
	p.Join("room1", "u2", "Ben")

	ids := p.Drop("room1")
	assert.ElementsMatch(t, []string{"u1", "u2"}, ids)
	assert.Empty(t, p.Snapshot("room1"))
	assert.Nil(t, p.Drop("room1"))
}
