package core

import "github.com/holysmokas/translation-server/internal/domain"

// Frame is a marshaled envelope ready for the wire.
type Frame []byte

// SignalConnection abstracts a participant's messaging transport.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// ParticipantSession binds a domain.Participant and its transport
// endpoint. This is what a room stores and fans out to.
type ParticipantSession interface {
	Meta() *domain.Participant
	Signal() SignalConnection
}

// Target is one pending delivery: the recipient session plus the
// language pair a translation job for it must use.
type Target struct {
	Session ParticipantSession
	Source  domain.Language
	Dest    domain.Language
}

// DeliveryResult reports per-recipient send outcomes. A failed send
// never short-circuits the rest of a broadcast.
type DeliveryResult struct {
	Delivered int
	Failed    []domain.UserID
}

// ParticipantDTO is a read-only view for APIs (no transport fields).
type ParticipantDTO struct {
	UserID   domain.UserID   `json:"user_id"`
	Name     string          `json:"user_name"`
	Language domain.Language `json:"language"`
	JoinedAt string          `json:"joined_at"`
}

// RoomService is the core-facing API of a room. It owns the
// membership set but never touches transport resources.
type RoomService interface {
	Room() *domain.Room
	Count() int
	Snapshot() []ParticipantDTO
	Languages() []domain.Language
	MessageCount() int
	BumpMessages()

	// AddParticipant inserts the session. A session already present
	// under the same user id is replaced and returned so the adapter
	// can close its stale connection.
	AddParticipant(s ParticipantSession) (prev ParticipantSession)
	// RemoveParticipant deletes the session under id and reports the
	// remaining participant count. A non-nil s restricts removal to
	// that exact session, so a stale handler unwinding after a
	// reconnect cannot evict the fresh registration.
	RemoveParticipant(id domain.UserID, s ParticipantSession) (remaining int, removed bool)
	Participant(id domain.UserID) (ParticipantSession, bool)

	// TranslationTargets pairs every other participant with the
	// sender's language as source and its own as destination. An
	// absent sender yields an empty slice.
	TranslationTargets(sender domain.UserID) []Target

	Broadcast(exclude domain.UserID, f Frame) DeliveryResult
	SendTo(id domain.UserID, f Frame) error
}
