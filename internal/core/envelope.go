package core

import (
	"encoding/json"

	"github.com/holysmokas/translation-server/internal/domain"
)

// Envelope type tags used on the wire.
const (
	EnvelopeJoin        = "join"
	EnvelopeText        = "text"
	EnvelopeAudio       = "audio"
	EnvelopeAudioChunk  = "audio_chunk"
	EnvelopePing        = "ping"
	EnvelopePong        = "pong"
	EnvelopeSent        = "sent"
	EnvelopeProcessed   = "processed"
	EnvelopeSystem      = "system"
	EnvelopeError       = "error"
	EnvelopeTranslation = "translation"
)

// TranslationEnvelope carries one translated message to one recipient.
type TranslationEnvelope struct {
	Type            string          `json:"type"`
	Sender          string          `json:"sender"`
	SenderLanguage  domain.Language `json:"sender_language"`
	OriginalText    string          `json:"original_text"`
	TranslatedText  string          `json:"translated_text"`
	TranslatedAudio string          `json:"translated_audio"`
	YourLanguage    domain.Language `json:"your_language"`
}

// SystemEnvelope carries join/leave/shutdown notices.
type SystemEnvelope struct {
	Type         string `json:"type"`
	Message      string `json:"message"`
	Participants int    `json:"participants,omitempty"`
	Action       string `json:"action,omitempty"`
}

// ErrorEnvelope reports a declined operation without closing the
// connection.
type ErrorEnvelope struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func MarshalFrame(v any) (Frame, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return Frame(b), nil
}
