package core

import "github.com/holysmokas/translation-server/internal/domain"

// participantSession implements ParticipantSession by pairing meta +
// transport.
type participantSession struct {
	meta   *domain.Participant
	signal SignalConnection
}

func NewParticipantSession(meta *domain.Participant, signal SignalConnection) ParticipantSession {
	return &participantSession{meta: meta, signal: signal}
}

func (s *participantSession) Meta() *domain.Participant { return s.meta }
func (s *participantSession) Signal() SignalConnection  { return s.signal }
