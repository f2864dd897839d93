// internal/hub/nats.go
//go:generate go run go.uber.org/mock/mockgen -source=nats.go -destination=../mocks/mock_journal.go -package=mocks
package hub

import (
	"encoding/json"

	"github.com/erilali/messenger/internal/message"
	"github.com/nats-io/nats.go"
)

// Journal subjects.
const (
	SubjectMessageCreated = "chat.messages.created"
	SubjectMessageEdited  = "chat.messages.edited"
	SubjectMessageDeleted = "chat.messages.deleted"
	subjectPresencePrefix = "chat.presence."
)

// Journal receives a copy of every state change the hub makes. It is write
// only; nothing is read back.
type Journal interface {
	Publish(subject string, data []byte) error
}

// NATSJournal publishes to JetStream without waiting for acknowledgements.
type NATSJournal struct {
	js nats.JetStreamContext
}

func NewNATSJournal(js nats.JetStreamContext) *NATSJournal {
	return &NATSJournal{js: js}
}

func (j *NATSJournal) Publish(subject string, data []byte) error {
	_, err := j.js.PublishAsync(subject, data)
	return err
}

// PresenceSubject returns the journal subject for a username's presence changes.
func PresenceSubject(username string) string {
	return subjectPresencePrefix + username
}

type deletedRecord struct {
	ID        string `json:"id"`
	DeletedBy string `json:"deletedBy,omitempty"`
}

func (h *Hub) publishMessageCreated(m message.Message) {
	h.publish(SubjectMessageCreated, m)
}

func (h *Hub) publishMessageEdited(m message.Message) {
	h.publish(SubjectMessageEdited, m)
}

func (h *Hub) publishMessageDeleted(id, deletedBy string) {
	h.publish(SubjectMessageDeleted, deletedRecord{ID: id, DeletedBy: deletedBy})
}

func (h *Hub) publishPresence(evt message.PresenceEvent) {
	h.publish(PresenceSubject(evt.Handle), evt)
}

func (h *Hub) publish(subject string, v any) {
	if h.journal == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		h.Logger.Errorf("Failed to marshal journal entry for %s: %v", subject, err)
		return
	}
	if err := h.journal.Publish(subject, data); err != nil {
		h.Logger.Errorf("Failed to publish to NATS subject %s: %v", subject, err)
	}
}
