package signal

import (
	"sort"

	"github.com/dkeye/Stage/internal/domain"
)

func (ctl *SignalWSController) handleWhoAmI(c *WsSignalConn) {
	rooms := make([]domain.EventID, 0, len(c.rooms))
	for id := range c.rooms {
		rooms = append(rooms, id)
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i] < rooms[j] })

	resp := struct {
		Type  string           `json:"type"`
		User  domain.Identity  `json:"user"`
		Rooms []domain.EventID `json:"rooms"`
	}{
		Type:  "whoami",
		User:  c.user,
		Rooms: rooms,
	}
	ctl.sendJSON(c, resp)
}
