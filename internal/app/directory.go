package app

import (
	"context"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/holysmokas/translation-server/internal/core"
	"github.com/holysmokas/translation-server/internal/domain"
)

// Directory owns all rooms. It is injected where needed, never a
// package global, so tests can tear it down explicitly.
type Directory struct {
	mu    sync.RWMutex
	rooms map[domain.RoomCode]core.RoomService
}

func NewDirectory() *Directory {
	return &Directory{rooms: make(map[domain.RoomCode]core.RoomService)}
}

func (d *Directory) generateCode() domain.RoomCode {
	b := make([]byte, domain.RoomCodeLength)
	for i := range b {
		b[i] = domain.RoomCodeAlphabet[rand.IntN(len(domain.RoomCodeAlphabet))]
	}
	return domain.RoomCode(b)
}

// CreateRoom inserts an empty active room under a fresh code,
// retrying on collision against the live set.
func (d *Directory) CreateRoom() core.RoomService {
	d.mu.Lock()
	defer d.mu.Unlock()
	var code domain.RoomCode
	for {
		code = d.generateCode()
		if _, taken := d.rooms[code]; !taken {
			break
		}
	}
	room := core.NewRoomService(domain.NewRoom(code))
	d.rooms[code] = room
	log.Info().Str("module", "app.directory").Str("room", string(code)).Msg("room created")
	return room
}

// GetRoom looks a room up by code, case-insensitively. Absence is a
// first-class result, never an error.
func (d *Directory) GetRoom(code string) (core.RoomService, bool) {
	normalized := domain.RoomCode(strings.ToUpper(code))
	d.mu.RLock()
	defer d.mu.RUnlock()
	room, ok := d.rooms[normalized]
	return room, ok
}

// CloseRoom marks the room inactive and removes it. Closing an absent
// room is a no-op.
func (d *Directory) CloseRoom(code domain.RoomCode) {
	d.mu.Lock()
	defer d.mu.Unlock()
	room, ok := d.rooms[code]
	if !ok {
		return
	}
	room.Room().Active = false
	delete(d.rooms, code)
	log.Info().Str("module", "app.directory").Str("room", string(code)).Msg("room closed")
}

// RemoveParticipant deletes the participant from the room and closes
// the room when it empties, in one critical section so a concurrent
// join cannot land between the empty-check and the close. A non-nil
// session restricts removal to that exact session; a stale handler
// passing its own session cannot evict a reconnect's fresh one.
// Reports whether the participant was removed and whether the room
// was closed by this call.
func (d *Directory) RemoveParticipant(code domain.RoomCode, id domain.UserID, s core.ParticipantSession) (removed, closed bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	room, ok := d.rooms[code]
	if !ok {
		return false, false
	}
	remaining, removed := room.RemoveParticipant(id, s)
	if removed && remaining == 0 {
		room.Room().Active = false
		delete(d.rooms, code)
		log.Info().Str("module", "app.directory").Str("room", string(code)).Msg("room closed")
		return true, true
	}
	return removed, false
}

// SweepIdle removes rooms past the age policy: older than maxAge, or
// empty and older than emptyAge. Returns the number of rooms removed.
func (d *Directory) SweepIdle(maxAge, emptyAge time.Duration) int {
	now := time.Now()
	d.mu.Lock()
	var stale []domain.RoomCode
	for code, room := range d.rooms {
		age := now.Sub(room.Room().CreatedAt)
		if age > maxAge || (room.Count() == 0 && age > emptyAge) {
			stale = append(stale, code)
		}
	}
	for _, code := range stale {
		d.rooms[code].Room().Active = false
		delete(d.rooms, code)
	}
	d.mu.Unlock()
	if len(stale) > 0 {
		log.Info().Str("module", "app.directory").Int("removed", len(stale)).Msg("idle room sweep")
	}
	return len(stale)
}

// RunSweeper runs SweepIdle on a ticker until ctx is canceled.
func (d *Directory) RunSweeper(ctx context.Context, interval, maxAge, emptyAge time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "app.directory").Msg("sweeper stopped")
			return
		case <-t.C:
			d.SweepIdle(maxAge, emptyAge)
		}
	}
}

type RoomDetail struct {
	Code         domain.RoomCode       `json:"code"`
	Participants []core.ParticipantDTO `json:"participants"`
	CreatedAt    time.Time             `json:"created_at"`
	Active       bool                  `json:"is_active"`
}

// Describe returns a point-in-time view of one room. The Active flag
// is written by CloseRoom and SweepIdle under the directory lock, so
// it must be read under the same lock.
func (d *Directory) Describe(code string) (RoomDetail, bool) {
	normalized := domain.RoomCode(strings.ToUpper(code))
	d.mu.RLock()
	defer d.mu.RUnlock()
	room, ok := d.rooms[normalized]
	if !ok {
		return RoomDetail{}, false
	}
	return RoomDetail{
		Code:         room.Room().Code,
		Participants: room.Snapshot(),
		CreatedAt:    room.Room().CreatedAt,
		Active:       room.Room().Active,
	}, true
}

type DirectoryStats struct {
	TotalRooms        int            `json:"total_rooms"`
	ActiveRooms       int            `json:"active_rooms"`
	TotalParticipants int            `json:"total_participants"`
	TotalMessages     int            `json:"total_messages"`
	LanguagePairs     map[string]int `json:"language_pairs"`
	Rooms             []RoomDetail   `json:"rooms"`
}

func (d *Directory) Stats() DirectoryStats {
	d.mu.RLock()
	defer d.mu.RUnlock()
	stats := DirectoryStats{
		TotalRooms:    len(d.rooms),
		LanguagePairs: make(map[string]int),
	}
	for _, room := range d.rooms {
		if room.Room().Active {
			stats.ActiveRooms++
		}
		stats.TotalParticipants += room.Count()
		stats.TotalMessages += room.MessageCount()
		if pair := languagePair(room.Languages()); pair != "" {
			stats.LanguagePairs[pair]++
		}
		stats.Rooms = append(stats.Rooms, RoomDetail{
			Code:         room.Room().Code,
			Participants: room.Snapshot(),
			CreatedAt:    room.Room().CreatedAt,
			Active:       room.Room().Active,
		})
	}
	return stats
}

// languagePair renders the distinct language set of a room as a
// histogram key, empty when fewer than two languages are present.
func languagePair(langs []domain.Language) string {
	set := make(map[domain.Language]struct{}, len(langs))
	for _, l := range langs {
		set[l] = struct{}{}
	}
	if len(set) < 2 {
		return ""
	}
	distinct := make([]string, 0, len(set))
	for l := range set {
		distinct = append(distinct, string(l))
	}
	sort.Strings(distinct)
	return strings.Join(distinct, " ↔ ")
}
