package domain

import "time"

type ViewerState int

const (
	// ViewerPending: the viewer announced itself, no offer routed yet.
	ViewerPending ViewerState = iota
	ViewerOffered
	ViewerConnected
)

// ScreenShareSession exists only while a host is sharing. It is rebuilt
// from live signaling traffic and never persisted.
type ScreenShareSession struct {
	HostID    UserID
	StartedAt time.Time
	Viewers   map[UserID]ViewerState
}

func NewScreenShareSession(host UserID, now time.Time) *ScreenShareSession {
	return &ScreenShareSession{
		HostID:    host,
		StartedAt: now,
		Viewers:   make(map[UserID]ViewerState),
	}
}

func (s *ScreenShareSession) IsHost(id UserID) bool { return s.HostID == id }
