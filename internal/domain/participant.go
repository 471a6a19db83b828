// Package domain contains entities without logic, just meta-data.
package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	MaxUserNameLen = 36
	UserIDLen      = 8
)

var (
	ErrUserNameTooLong = errors.New("user name too long")
	ErrUserNameEmpty   = errors.New("user name empty")
)

type UserID string

// NewUserID returns a fresh opaque id, assigned at join time.
func NewUserID() UserID {
	return UserID(uuid.NewString()[:UserIDLen])
}

// Participant is one connected user within a room. The language is
// fixed for the duration of the room.
type Participant struct {
	UserID   UserID    `json:"user_id"`
	Name     string    `json:"user_name"`
	Language Language  `json:"language"`
	JoinedAt time.Time `json:"joined_at"`
}

// NewParticipant avoids ad-hoc struct literals in adapters and keeps
// validation in one place.
func NewParticipant(id UserID, name string, lang Language) (*Participant, error) {
	if len(name) == 0 {
		return nil, ErrUserNameEmpty
	}
	if len(name) > MaxUserNameLen {
		return nil, ErrUserNameTooLong
	}
	if !lang.Supported() {
		return nil, ErrLanguageNotSupported
	}
	return &Participant{
		UserID:   id,
		Name:     name,
		Language: lang,
		JoinedAt: time.Now(),
	}, nil
}
