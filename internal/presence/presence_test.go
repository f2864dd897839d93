package presence

import (
	"testing"
	"time"

	"github.com/erilali/messenger/internal/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sent struct {
	origin    message.ConnectionID
	eventType string
	data      any
}

type recordingFanout struct {
	calls []sent
}

func (r *recordingFanout) BroadcastOthers(origin message.ConnectionID, eventType string, data any) {
	r.calls = append(r.calls, sent{origin: origin, eventType: eventType, data: data})
}

func TestBroadcaster_Announce(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	fanout := &recordingFanout{}
	b := NewBroadcaster(fanout, func() time.Time { return now })

	tests := []struct {
		name   string
		online bool
	}{
		{"online", true},
		{"offline", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fanout.calls = nil
			evt := b.Announce("conn-a", "alice", tt.online)

			want := message.PresenceEvent{Handle: "alice", Online: tt.online, LastActive: now}
			assert.Equal(t, want, evt)

			require.Len(t, fanout.calls, 1)
			assert.Equal(t, message.ConnectionID("conn-a"), fanout.calls[0].origin)
			assert.Equal(t, message.TypeFriendStatus, fanout.calls[0].eventType)
			assert.Equal(t, want, fanout.calls[0].data)
		})
	}
}

func TestNewBroadcaster_DefaultsClock(t *testing.T) {
	b := NewBroadcaster(&recordingFanout{}, nil)
	before := time.Now()
	evt := b.Announce("c", "bob", true)
	assert.False(t, evt.LastActive.Before(before))
}
