// internal/message/message.go
// Contains data structures for frames exchanged between clients and server:
// the wire envelope, chat messages, presence events and inbound event variants.
package message

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/erilali/messenger/internal/errors"
	"github.com/samber/lo"
)

// Version is stamped on every frame the server writes.
const Version = "1.0"

// Event names on the wire.
const (
	TypeIdentify      = "identify"
	TypeUserConnected = "user_connected"
	TypeMessage       = "message"
	TypeEditMessage   = "editMessage"
	TypeDeleteMessage = "deleteMessage"
	TypeTyping        = "typing"
	TypeStopTyping    = "stopTyping"

	TypeMessageEdited  = "messageEdited"
	TypeMessageDeleted = "messageDeleted"
	TypeFriendStatus   = "friend-status-update"
	TypeOnlineFriends  = "online-friends"
	TypeError          = "error"
)

// ConnectionID identifies one live transport session.
type ConnectionID string

// WSMessage is a frame as read from a client. Data is decoded according to Type.
type WSMessage struct {
	Version string          `json:"version,omitempty"`
	Type    string          `json:"type"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Envelope is a frame written by the server.
type Envelope struct {
	Version string `json:"version"`
	Type    string `json:"type"`
	Data    any    `json:"data"`
}

// Encode wraps data in an Envelope and marshals it.
func Encode(eventType string, data any) ([]byte, error) {
	return json.Marshal(Envelope{Version: Version, Type: eventType, Data: data})
}

// ErrorData is the payload of an error frame.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Draft is the client-supplied part of a new message.
type Draft struct {
	Content string
	Fields  map[string]any
}

// Message is a chat message as held by the store and broadcast to clients.
// Fields carries client-supplied extras which are flattened into the JSON
// object next to the server-owned keys.
type Message struct {
	ID        string
	Author    string
	Content   string
	Fields    map[string]any
	CreatedAt time.Time
	Edited    bool
	EditedAt  *time.Time
}

var reservedKeys = []string{"id", "author", "content", "timestamp", "edited", "editedAt"}

func (m Message) MarshalJSON() ([]byte, error) {
	out := lo.Assign(lo.OmitByKeys(m.Fields, reservedKeys), map[string]any{
		"id":        m.ID,
		"author":    m.Author,
		"content":   m.Content,
		"timestamp": m.CreatedAt,
		"edited":    m.Edited,
	})
	if m.EditedAt != nil {
		out["editedAt"] = *m.EditedAt
	}
	return json.Marshal(out)
}

func (m *Message) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var known struct {
		ID        string     `json:"id"`
		Author    string     `json:"author"`
		Content   string     `json:"content"`
		Timestamp time.Time  `json:"timestamp"`
		Edited    bool       `json:"edited"`
		EditedAt  *time.Time `json:"editedAt"`
	}
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}
	fields := make(map[string]any)
	for k, v := range lo.OmitByKeys(raw, reservedKeys) {
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			return err
		}
		fields[k] = val
	}
	*m = Message{
		ID:        known.ID,
		Author:    known.Author,
		Content:   known.Content,
		Fields:    fields,
		CreatedAt: known.Timestamp,
		Edited:    known.Edited,
		EditedAt:  known.EditedAt,
	}
	return nil
}

// PresenceEvent reports a username going online or offline.
type PresenceEvent struct {
	Handle     string    `json:"handle"`
	Online     bool      `json:"online"`
	LastActive time.Time `json:"lastActive"`
}

// EditRequest is the payload of an editMessage frame.
type EditRequest struct {
	MessageID  string `json:"messageId"`
	NewContent string `json:"newContent"`
}

// Event is an inbound event for the hub. The set of variants is closed.
type Event interface {
	Type() string
	event()
}

type Identify struct{ Username string }

type NewMessage struct{ Draft Draft }

type EditMessage struct {
	MessageID  string
	NewContent string
}

type DeleteMessage struct{ MessageID string }

type Typing struct{ Username string }

type StopTyping struct{ Username string }

// Disconnect is raised by the transport when the session ends.
type Disconnect struct{}

func (Identify) Type() string      { return TypeIdentify }
func (NewMessage) Type() string    { return TypeMessage }
func (EditMessage) Type() string   { return TypeEditMessage }
func (DeleteMessage) Type() string { return TypeDeleteMessage }
func (Typing) Type() string        { return TypeTyping }
func (StopTyping) Type() string    { return TypeStopTyping }
func (Disconnect) Type() string    { return "disconnect" }

func (Identify) event()      {}
func (NewMessage) event()    {}
func (EditMessage) event()   {}
func (DeleteMessage) event() {}
func (Typing) event()        {}
func (StopTyping) event()    {}
func (Disconnect) event()    {}

// Decode parses a client frame into an Event.
func Decode(frame []byte) (Event, error) {
	var msg WSMessage
	if err := json.Unmarshal(frame, &msg); err != nil {
		return nil, fmt.Errorf("%w: malformed frame: %v", errors.ErrInvalidInput, err)
	}

	switch msg.Type {
	case TypeIdentify, TypeUserConnected:
		username, err := decodeString(msg)
		if err != nil {
			return nil, err
		}
		return Identify{Username: username}, nil

	case TypeMessage:
		var fields map[string]any
		if err := json.Unmarshal(msg.Data, &fields); err != nil || fields == nil {
			return nil, fmt.Errorf("%w: %s expects an object", errors.ErrInvalidInput, msg.Type)
		}
		var content string
		if raw, ok := fields["content"]; ok {
			s, ok := raw.(string)
			if !ok {
				return nil, fmt.Errorf("%w: content must be a string", errors.ErrInvalidInput)
			}
			content = s
		}
		return NewMessage{Draft: Draft{
			Content: content,
			Fields:  lo.OmitByKeys(fields, reservedKeys),
		}}, nil

	case TypeEditMessage:
		var req EditRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			return nil, fmt.Errorf("%w: %s expects {messageId, newContent}", errors.ErrInvalidInput, msg.Type)
		}
		if req.MessageID == "" {
			return nil, fmt.Errorf("%w: messageId is required", errors.ErrInvalidInput)
		}
		return EditMessage{MessageID: req.MessageID, NewContent: req.NewContent}, nil

	case TypeDeleteMessage:
		id, err := decodeString(msg)
		if err != nil {
			return nil, err
		}
		return DeleteMessage{MessageID: id}, nil

	case TypeTyping:
		username, err := decodeString(msg)
		if err != nil {
			return nil, err
		}
		return Typing{Username: username}, nil

	case TypeStopTyping:
		username, err := decodeString(msg)
		if err != nil {
			return nil, err
		}
		return StopTyping{Username: username}, nil
	}

	return nil, fmt.Errorf("%w: %q", errors.ErrUnknownEvent, msg.Type)
}

func decodeString(msg WSMessage) (string, error) {
	var s string
	if err := json.Unmarshal(msg.Data, &s); err != nil {
		return "", fmt.Errorf("%w: %s expects a string", errors.ErrInvalidInput, msg.Type)
	}
	return s, nil
}
