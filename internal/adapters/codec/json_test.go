package codec

import (
	"testing"

	"github.com/dkeye/Stage/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeRoomEvent(t *testing.T) {
	f, err := JSON{}.EncodeRoomEvent("evt1", domain.RoomEvent{
		Type:    domain.UserJoined,
		UserID:  "u1",
		Payload: `{"isHost":false}`,
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"channel":"room",
		"eventId":"evt1",
		"type":"USER_JOINED",
		"userId":"u1",
		"payloadJson":"{\"isHost\":false}"
	}`, string(f))
}

func TestEncodeInteractionOmitsEmptyUser(t *testing.T) {
	f, err := JSON{}.EncodeInteraction("evt1", domain.InteractionEvent{
		Type:    domain.PollResults,
		Payload: `{"tally":[1,2]}`,
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"channel":"interaction",
		"eventId":"evt1",
		"type":"POLL_RESULTS",
		"payloadJson":"{\"tally\":[1,2]}"
	}`, string(f))
}

func TestEncodeSignalPayloads(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
		want    string
	}{
		{"json object", []byte(`{"sdp":"v=0"}`), `{"sdp":"v=0"}`},
		{"opaque text", []byte("candidate:1 1 udp"), `"candidate:1 1 udp"`},
		{"empty", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := JSON{}.EncodeSignal(domain.SignalEvent{
				Type:    domain.Offer,
				EventID: "evt1",
				From:    "h1",
				Target:  "u1",
				Payload: tt.payload,
			})
			require.NoError(t, err)
			want := `{"channel":"signal","type":"offer","eventId":"evt1","from":"h1","target":"u1"`
			if tt.want != "" {
				want += `,"payload":` + tt.want
			}
			assert.JSONEq(t, want+"}", string(f))
		})
	}
}
