package core

import (
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/holysmokas/translation-server/internal/domain"
)

var ErrParticipantAbsent = errors.New("participant not in room")

// roomImpl is a threadsafe in-memory room.
// It never closes adapter-owned resources.
type roomImpl struct {
	room     *domain.Room
	mu       sync.RWMutex
	byUser   map[domain.UserID]ParticipantSession
	messages int
}

func NewRoomService(room *domain.Room) RoomService {
	return &roomImpl{
		room:   room,
		byUser: make(map[domain.UserID]ParticipantSession),
	}
}

func (r *roomImpl) Room() *domain.Room { return r.room }

func (r *roomImpl) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}

func (r *roomImpl) MessageCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.messages
}

func (r *roomImpl) BumpMessages() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages++
}

func (r *roomImpl) AddParticipant(s ParticipantSession) ParticipantSession {
	id := s.Meta().UserID
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.byUser[id]
	r.byUser[id] = s
	if prev != nil {
		log.Info().Str("module", "core.room").Str("room", string(r.room.Code)).Str("user", string(id)).Msg("participant reconnected, stale session replaced")
	} else {
		log.Info().Str("module", "core.room").Str("room", string(r.room.Code)).Str("user", string(id)).Str("lang", string(s.Meta().Language)).Msg("participant added")
	}
	return prev
}

func (r *roomImpl) RemoveParticipant(id domain.UserID, s ParticipantSession) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.byUser[id]
	if !ok || (s != nil && cur != s) {
		return len(r.byUser), false
	}
	delete(r.byUser, id)
	log.Info().Str("module", "core.room").Str("room", string(r.room.Code)).Str("user", string(id)).Int("remaining", len(r.byUser)).Msg("participant removed")
	return len(r.byUser), true
}

func (r *roomImpl) Participant(id domain.UserID) (ParticipantSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byUser[id]
	return s, ok
}

func (r *roomImpl) TranslationTargets(sender domain.UserID) []Target {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byUser[sender]
	if !ok {
		return nil
	}
	src := s.Meta().Language
	out := make([]Target, 0, len(r.byUser)-1)
	for id, p := range r.byUser {
		if id == sender {
			continue
		}
		out = append(out, Target{Session: p, Source: src, Dest: p.Meta().Language})
	}
	return out
}

func (r *roomImpl) Broadcast(exclude domain.UserID, f Frame) DeliveryResult {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := DeliveryResult{}
	for id, p := range r.byUser {
		if id == exclude {
			continue
		}
		if err := p.Signal().TrySend(f); err != nil {
			res.Failed = append(res.Failed, id)
			continue
		}
		res.Delivered++
	}
	log.Debug().Str("module", "core.room").Str("room", string(r.room.Code)).Int("delivered", res.Delivered).Int("failed", len(res.Failed)).Msg("broadcast result")
	return res
}

func (r *roomImpl) SendTo(id domain.UserID, f Frame) error {
	r.mu.RLock()
	p, ok := r.byUser[id]
	r.mu.RUnlock()
	if !ok {
		return ErrParticipantAbsent
	}
	return p.Signal().TrySend(f)
}

func (r *roomImpl) Snapshot() []ParticipantDTO {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ParticipantDTO, 0, len(r.byUser))
	for _, p := range r.byUser {
		m := p.Meta()
		out = append(out, ParticipantDTO{
			UserID:   m.UserID,
			Name:     m.Name,
			Language: m.Language,
			JoinedAt: m.JoinedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	return out
}

func (r *roomImpl) Languages() []domain.Language {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Language, 0, len(r.byUser))
	for _, p := range r.byUser {
		out = append(out, p.Meta().Language)
	}
	return out
}
