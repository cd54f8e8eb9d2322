package signal

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dkeye/Stage/internal/core"
	"github.com/dkeye/Stage/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serverConn returns the server side of a live WebSocket.
func serverConn(t *testing.T) *websocket.Conn {
	t.Helper()
	accepted := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		accepted <- ws
	}))
	t.Cleanup(srv.Close)

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return <-accepted
}

func TestConnSend(t *testing.T) {
	c := newConn(serverConn(t), domain.Identity{UserID: "u1"}, 1)
	assert.Equal(t, domain.UserID("u1"), c.UserID())

	require.NoError(t, c.Send(core.Frame(`{"type":"a"}`)))
	assert.ErrorIs(t, c.Send(core.Frame(`{"type":"b"}`)), core.ErrBackpressure)

	c.Close()
	assert.ErrorIs(t, c.Send(core.Frame(`{"type":"c"}`)), core.ErrSinkClosed)
	assert.NotPanics(t, c.Close)
}
