package domain

import "time"

const RoomCodeLength = 6

// RoomCodeAlphabet: uppercase letters and digits only.
const RoomCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

type RoomCode string

// Room holds room meta-data. Membership and transport live in core.
type Room struct {
	Code      RoomCode
	CreatedAt time.Time
	Active    bool
}

func NewRoom(code RoomCode) *Room {
	return &Room{Code: code, CreatedAt: time.Now(), Active: true}
}
