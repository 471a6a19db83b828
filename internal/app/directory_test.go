package app

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holysmokas/translation-server/internal/core"
	"github.com/holysmokas/translation-server/internal/domain"
)

func addParticipant(t *testing.T, room core.RoomService, id, name string, lang domain.Language) *memorySignal {
	t.Helper()
	meta, err := domain.NewParticipant(domain.UserID(id), name, lang)
	require.NoError(t, err)
	sig := &memorySignal{}
	room.AddParticipant(core.NewParticipantSession(meta, sig))
	return sig
}

func TestCreateRoomCodeShape(t *testing.T) {
	d := NewDirectory()
	room := d.CreateRoom()
	code := string(room.Room().Code)

	assert.Len(t, code, domain.RoomCodeLength)
	for _, r := range code {
		assert.Contains(t, domain.RoomCodeAlphabet, string(r))
	}
	assert.True(t, room.Room().Active)
}

func TestCreateRoomCodesAreUnique(t *testing.T) {
	d := NewDirectory()
	seen := make(map[domain.RoomCode]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		code := d.CreateRoom().Room().Code
		_, dup := seen[code]
		require.False(t, dup, "duplicate code %s", code)
		seen[code] = struct{}{}
	}
}

func TestGetRoomCaseInsensitive(t *testing.T) {
	d := NewDirectory()
	room := d.CreateRoom()
	code := string(room.Room().Code)

	got, ok := d.GetRoom(strings.ToLower(code))
	require.True(t, ok)
	assert.Equal(t, room.Room().Code, got.Room().Code)

	_, ok = d.GetRoom("NOPE99")
	assert.False(t, ok)
}

func TestCloseRoomIdempotent(t *testing.T) {
	d := NewDirectory()
	room := d.CreateRoom()
	code := room.Room().Code

	d.CloseRoom(code)
	assert.False(t, room.Room().Active)
	_, ok := d.GetRoom(string(code))
	assert.False(t, ok)

	// Closing an absent room is a no-op.
	d.CloseRoom(code)
	d.CloseRoom("GHOST1")
}

func TestRemoveLastParticipantClosesRoom(t *testing.T) {
	d := NewDirectory()
	room := d.CreateRoom()
	code := room.Room().Code

	addParticipant(t, room, "u1", "Alice", "en")
	addParticipant(t, room, "u2", "Bob", "es")

	removed, closed := d.RemoveParticipant(code, "u1", nil)
	assert.True(t, removed)
	assert.False(t, closed)
	_, ok := d.GetRoom(string(code))
	assert.True(t, ok)

	removed, closed = d.RemoveParticipant(code, "u2", nil)
	assert.True(t, removed)
	assert.True(t, closed)
	_, ok = d.GetRoom(string(code))
	assert.False(t, ok)

	// Room already gone: safe no-op.
	removed, closed = d.RemoveParticipant(code, "u2", nil)
	assert.False(t, removed)
	assert.False(t, closed)
}

func TestRemoveParticipantSessionConditional(t *testing.T) {
	d := NewDirectory()
	room := d.CreateRoom()
	code := room.Room().Code

	meta, err := domain.NewParticipant("u1", "Alice", "en")
	require.NoError(t, err)
	stale := core.NewParticipantSession(meta, &memorySignal{})
	fresh := core.NewParticipantSession(meta, &memorySignal{})
	room.AddParticipant(stale)
	room.AddParticipant(fresh)

	// The stale handler's cleanup must not evict the reconnected
	// session or close the room.
	removed, closed := d.RemoveParticipant(code, "u1", stale)
	assert.False(t, removed)
	assert.False(t, closed)
	_, ok := d.GetRoom(string(code))
	require.True(t, ok)

	removed, closed = d.RemoveParticipant(code, "u1", fresh)
	assert.True(t, removed)
	assert.True(t, closed)
}

func TestDescribeRoom(t *testing.T) {
	d := NewDirectory()
	room := d.CreateRoom()
	code := string(room.Room().Code)
	addParticipant(t, room, "u1", "Alice", "en")

	detail, ok := d.Describe(strings.ToLower(code))
	require.True(t, ok)
	assert.Equal(t, room.Room().Code, detail.Code)
	assert.True(t, detail.Active)
	assert.Len(t, detail.Participants, 1)

	d.CloseRoom(room.Room().Code)
	_, ok = d.Describe(code)
	assert.False(t, ok)
}

func TestSweepIdle(t *testing.T) {
	d := NewDirectory()

	aged := d.CreateRoom()
	aged.Room().CreatedAt = time.Now().Add(-25 * time.Hour)
	addParticipant(t, aged, "u1", "Alice", "en")

	emptyOld := d.CreateRoom()
	emptyOld.Room().CreatedAt = time.Now().Add(-2 * time.Hour)

	emptyFresh := d.CreateRoom()

	occupied := d.CreateRoom()
	occupied.Room().CreatedAt = time.Now().Add(-2 * time.Hour)
	addParticipant(t, occupied, "u2", "Bob", "es")

	removed := d.SweepIdle(24*time.Hour, time.Hour)
	assert.Equal(t, 2, removed)

	_, ok := d.GetRoom(string(aged.Room().Code))
	assert.False(t, ok, "room past max age should be swept even when occupied")
	_, ok = d.GetRoom(string(emptyOld.Room().Code))
	assert.False(t, ok)
	_, ok = d.GetRoom(string(emptyFresh.Room().Code))
	assert.True(t, ok)
	_, ok = d.GetRoom(string(occupied.Room().Code))
	assert.True(t, ok)
}

func TestDirectoryStats(t *testing.T) {
	d := NewDirectory()
	room := d.CreateRoom()
	addParticipant(t, room, "u1", "Alice", "en")
	addParticipant(t, room, "u2", "Bob", "es")
	room.BumpMessages()

	s := d.Stats()
	assert.Equal(t, 1, s.TotalRooms)
	assert.Equal(t, 1, s.ActiveRooms)
	assert.Equal(t, 2, s.TotalParticipants)
	assert.Equal(t, 1, s.TotalMessages)
	assert.Equal(t, 1, s.LanguagePairs["en ↔ es"])
	require.Len(t, s.Rooms, 1)
	assert.Len(t, s.Rooms[0].Participants, 2)
}
