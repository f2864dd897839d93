// internal/presence/presence.go
// Package presence builds online/offline notifications and hands them to the
// hub's fan-out. It holds no state of its own.
package presence

import (
	"time"

	"github.com/erilali/messenger/internal/message"
)

// Fanout delivers an event to every connection except origin.
type Fanout interface {
	BroadcastOthers(origin message.ConnectionID, eventType string, data any)
}

type Broadcaster struct {
	fanout Fanout
	now    func() time.Time
}

func NewBroadcaster(fanout Fanout, now func() time.Time) *Broadcaster {
	if now == nil {
		now = time.Now
	}
	return &Broadcaster{fanout: fanout, now: now}
}

// Announce tells everyone but origin that username went online or offline,
// and returns the event it sent.
func (b *Broadcaster) Announce(origin message.ConnectionID, username string, online bool) message.PresenceEvent {
	evt := message.PresenceEvent{
		Handle:     username,
		Online:     online,
		LastActive: b.now(),
	}
	b.fanout.BroadcastOthers(origin, message.TypeFriendStatus, evt)
	return evt
}
