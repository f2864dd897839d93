// internal/hub/messaging.go
// Fan-out helpers, eviction of slow consumers and error frames.
package hub

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/erilali/messenger/internal/auth"
	"github.com/erilali/messenger/internal/errors"
	"github.com/erilali/messenger/internal/message"
)

// validateUsername applies the same handle rules as account registration.
func validateUsername(username string) error {
	return auth.ValidateHandle(username)
}

// validateMessageContent trims whitespace and checks the length (1 to max characters).
func validateMessageContent(content string, max int) error {
	n := len([]rune(strings.TrimSpace(content)))
	if n < 1 || n > max {
		return fmt.Errorf("%w: message content must be 1-%d characters", errors.ErrInvalidInput, max)
	}
	return nil
}

// BroadcastAll delivers an event to every connection.
func (h *Hub) BroadcastAll(eventType string, data any) {
	h.broadcast("", eventType, data)
}

// BroadcastOthers delivers an event to every connection except origin.
func (h *Hub) BroadcastOthers(origin message.ConnectionID, eventType string, data any) {
	h.broadcast(origin, eventType, data)
}

func (h *Hub) broadcast(exclude message.ConnectionID, eventType string, data any) {
	frame, err := message.Encode(eventType, data)
	if err != nil {
		h.Logger.Errorf("Failed to encode %s event: %v", eventType, err)
		return
	}

	// Copy the client set so no lock is held while enqueueing.
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for id, client := range h.clients {
		if id != exclude {
			targets = append(targets, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range targets {
		h.deliver(client, frame)
	}
}

// sendTo delivers an event to a single connection.
func (h *Hub) sendTo(client *Client, eventType string, data any) {
	frame, err := message.Encode(eventType, data)
	if err != nil {
		h.Logger.Errorf("Failed to encode %s event: %v", eventType, err)
		return
	}
	h.deliver(client, frame)
}

func (h *Hub) deliver(client *Client, frame []byte) {
	if err := client.enqueue(frame); stderrors.Is(err, errOutboxFull) {
		// The caller may hold fanoutMu, which OnDisconnect takes.
		h.Logger.Warnf("Connection %s removed due to full send buffer", client.ID)
		go h.OnDisconnect(client.ID)
	}
}

// SendErrorMessage tells one connection why its last event was refused.
func (h *Hub) SendErrorMessage(client *Client, err error) {
	h.sendTo(client, message.TypeError, message.ErrorData{
		Code:    errorCode(err),
		Message: err.Error(),
	})
}

func errorCode(err error) string {
	switch {
	case stderrors.Is(err, errors.ErrUnauthenticated):
		return "unauthenticated"
	case stderrors.Is(err, errors.ErrIdentityConflict):
		return "identity_conflict"
	case stderrors.Is(err, errors.ErrNotFound):
		return "not_found"
	case stderrors.Is(err, errors.ErrNotAuthor):
		return "not_author"
	case stderrors.Is(err, errors.ErrInvalidInput):
		return "invalid_input"
	case stderrors.Is(err, errors.ErrUnknownEvent):
		return "unknown_event"
	}
	return "internal"
}
