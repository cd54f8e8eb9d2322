package domain

import (
	"errors"
	"time"
)

var (
	ErrEventIDEmpty   = errors.New("event id empty")
	ErrEventIDTooLong = errors.New("event id too long")
)

// EventID identifies a live event and therefore its room.
type EventID string

func (id EventID) Validate() error {
	if len(id) == 0 {
		return ErrEventIDEmpty
	}
	if len(id) > MaxEventIDLen {
		return ErrEventIDTooLong
	}
	return nil
}

type Participant struct {
	UserID   UserID    `json:"userId"`
	IsHost   bool      `json:"isHost"`
	JoinedAt time.Time `json:"joinedAt"`
}

// MediaState mirrors the host's current broadcast flags.
type MediaState struct {
	HasVideo  bool `json:"hasVideo"`
	HasAudio  bool `json:"hasAudio"`
	HasScreen bool `json:"hasScreen"`
}
