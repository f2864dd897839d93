// internal/hub/hub.go
// Provides the Hub: it owns live connections, routes inbound events to the
// identity registry and message store, and fans results out to clients.
package hub

import (
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/erilali/messenger/internal/errors"
	"github.com/erilali/messenger/internal/logger"
	"github.com/erilali/messenger/internal/message"
	"github.com/erilali/messenger/internal/presence"
	"github.com/erilali/messenger/internal/registry"
	"github.com/erilali/messenger/internal/store"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/samber/lo"
)

const (
	defaultOutboxSize       = 256
	defaultMaxContentLength = 2000
)

// Config tunes hub behaviour.
type Config struct {
	OutboxSize       int
	MaxContentLength int
	// AuthorOnlyEdits restricts edit and delete to the message author. Off by
	// default: any identified connection may edit and anyone may delete.
	AuthorOnlyEdits bool
	// RequireToken makes ServeWs refuse upgrades without a valid credential.
	RequireToken   bool
	AllowedOrigins []string
}

// Authenticator resolves a credential to the username it was issued to.
type Authenticator interface {
	Authenticate(credential string) (string, error)
}

type Option func(*Hub)

func WithJournal(j Journal) Option {
	return func(h *Hub) { h.journal = j }
}

func WithAuthenticator(a Authenticator) Option {
	return func(h *Hub) { h.auth = a }
}

// WithClock replaces time.Now for message and presence timestamps.
func WithClock(now func() time.Time) Option {
	return func(h *Hub) { h.now = now }
}

// Hub represents the chat core shared by every connection.
type Hub struct {
	mu      sync.RWMutex
	clients map[message.ConnectionID]*Client

	// fanoutMu is held from a state change until its frames are queued, so
	// every client sees changes in the order they were applied. Lock order:
	// fanoutMu, then mu, then the registry and store locks.
	fanoutMu sync.Mutex

	registry *registry.Registry
	store    *store.Store
	presence *presence.Broadcaster
	journal  Journal
	auth     Authenticator
	config   Config
	now      func() time.Time

	StartTime time.Time
	Logger    *logger.Logger
}

// NewHub creates a Hub with an empty registry and store.
func NewHub(config Config, logger *logger.Logger, opts ...Option) *Hub {
	if config.OutboxSize <= 0 {
		config.OutboxSize = defaultOutboxSize
	}
	if config.MaxContentLength <= 0 {
		config.MaxContentLength = defaultMaxContentLength
	}

	h := &Hub{
		clients:   make(map[message.ConnectionID]*Client),
		registry:  registry.New(),
		config:    config,
		now:       time.Now,
		StartTime: time.Now(),
		Logger:    logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.store = store.New(store.WithClock(h.now), store.WithAuthorOnly(config.AuthorOnlyEdits))
	h.presence = presence.NewBroadcaster(h, h.now)
	return h
}

// OnConnect registers a connection that has no transport attached.
func (h *Hub) OnConnect() *Client {
	return h.Attach(nil, "")
}

// Attach registers a connection. Nothing is broadcast until it identifies.
func (h *Hub) Attach(conn *websocket.Conn, principal string) *Client {
	client := newClient(message.ConnectionID(uuid.NewString()), conn, principal, h.config.OutboxSize)

	h.mu.Lock()
	h.clients[client.ID] = client
	count := len(h.clients)
	h.mu.Unlock()

	h.Logger.WithField("connections", count).LogEvent("info", "client_connected", principal, string(client.ID))
	return client
}

// Dispatch routes one inbound event from conn.
func (h *Hub) Dispatch(conn message.ConnectionID, event message.Event) error {
	switch e := event.(type) {
	case message.Identify:
		_, err := h.OnIdentify(conn, e.Username)
		return err
	case message.NewMessage:
		_, err := h.OnMessage(conn, e.Draft)
		return err
	case message.EditMessage:
		_, err := h.OnEditMessage(conn, e.MessageID, e.NewContent)
		return err
	case message.DeleteMessage:
		return h.OnDeleteMessage(conn, e.MessageID)
	case message.Typing:
		h.OnTyping(conn, e.Username)
		return nil
	case message.StopTyping:
		h.OnStopTyping(conn, e.Username)
		return nil
	case message.Disconnect:
		h.OnDisconnect(conn)
		return nil
	}
	return fmt.Errorf("%w: %T", errors.ErrUnknownEvent, event)
}

// OnIdentify binds conn to username, announces it to everyone else and sends
// conn the usernames already online. Re-identifying with the same username is
// harmless and only re-sends the snapshot.
func (h *Hub) OnIdentify(conn message.ConnectionID, username string) ([]string, error) {
	if err := validateUsername(username); err != nil {
		return nil, err
	}

	h.fanoutMu.Lock()
	defer h.fanoutMu.Unlock()

	// Holding the read lock keeps a concurrent OnDisconnect from removing the
	// client between the membership check and the bind.
	h.mu.RLock()
	client, ok := h.clients[conn]
	if !ok {
		h.mu.RUnlock()
		return nil, fmt.Errorf("%w: unknown connection %s", errors.ErrUnauthenticated, conn)
	}
	if client.Principal != "" && client.Principal != username {
		h.mu.RUnlock()
		return nil, fmt.Errorf("%w: credential was issued to %q", errors.ErrUnauthenticated, client.Principal)
	}
	created, err := h.registry.Bind(conn, username)
	h.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	online := lo.Without(h.registry.AllUsernames(), username)
	if created {
		evt := h.presence.Announce(conn, username, true)
		h.publishPresence(evt)
		h.Logger.LogEvent("info", "client_identified", username, "")
	}
	h.sendTo(client, message.TypeOnlineFriends, online)
	return online, nil
}

// OnMessage stores a new message from conn and echoes it to every connection,
// the sender included, so it learns the server-assigned id.
func (h *Hub) OnMessage(conn message.ConnectionID, draft message.Draft) (message.Message, error) {
	username, ok := h.registry.LookupByConnection(conn)
	if !ok {
		return message.Message{}, errors.ErrUnauthenticated
	}
	if err := validateMessageContent(draft.Content, h.config.MaxContentLength); err != nil {
		return message.Message{}, err
	}

	h.fanoutMu.Lock()
	defer h.fanoutMu.Unlock()

	m := h.store.Create(username, draft)
	h.BroadcastAll(message.TypeMessage, m)
	h.publishMessageCreated(m)
	h.Logger.LogEvent("debug", "message_created", username, m.Content)
	return m, nil
}

// OnEditMessage replaces a message's content. Unknown ids are a benign miss:
// nothing is broadcast and ErrNotFound goes back to the caller only.
func (h *Hub) OnEditMessage(conn message.ConnectionID, id, content string) (message.Message, error) {
	username, ok := h.registry.LookupByConnection(conn)
	if !ok {
		return message.Message{}, errors.ErrUnauthenticated
	}
	if err := validateMessageContent(content, h.config.MaxContentLength); err != nil {
		return message.Message{}, err
	}

	h.fanoutMu.Lock()
	defer h.fanoutMu.Unlock()

	m, err := h.store.Edit(id, username, content)
	if err != nil {
		if stderrors.Is(err, errors.ErrNotFound) {
			h.Logger.LogEvent("debug", "edit_missed", username, id)
		}
		return message.Message{}, err
	}

	h.BroadcastAll(message.TypeMessageEdited, m)
	h.publishMessageEdited(m)
	h.Logger.LogEvent("debug", "message_edited", username, id)
	return m, nil
}

// OnDeleteMessage removes a message and broadcasts its id. Identity is only
// required when edits are restricted to authors.
func (h *Hub) OnDeleteMessage(conn message.ConnectionID, id string) error {
	username, ok := h.registry.LookupByConnection(conn)
	if !ok && h.config.AuthorOnlyEdits {
		return errors.ErrUnauthenticated
	}

	h.fanoutMu.Lock()
	defer h.fanoutMu.Unlock()

	if _, err := h.store.Delete(id, username); err != nil {
		if stderrors.Is(err, errors.ErrNotFound) {
			h.Logger.LogEvent("debug", "delete_missed", username, id)
		}
		return err
	}

	h.BroadcastAll(message.TypeMessageDeleted, id)
	h.publishMessageDeleted(id, username)
	h.Logger.LogEvent("debug", "message_deleted", username, id)
	return nil
}

// OnTyping relays a typing notice to everyone but conn. The username is taken
// from the client as-is and the connection need not be identified.
func (h *Hub) OnTyping(conn message.ConnectionID, username string) {
	h.BroadcastOthers(conn, message.TypeTyping, username)
}

func (h *Hub) OnStopTyping(conn message.ConnectionID, username string) {
	h.BroadcastOthers(conn, message.TypeStopTyping, username)
}

// OnDisconnect removes conn, closes its outbox and announces its username as
// offline if it had one. Calling it again for the same conn does nothing.
func (h *Hub) OnDisconnect(conn message.ConnectionID) {
	h.fanoutMu.Lock()
	defer h.fanoutMu.Unlock()

	h.mu.Lock()
	client, ok := h.clients[conn]
	delete(h.clients, conn)
	count := len(h.clients)
	h.mu.Unlock()

	if ok {
		client.close()
	}

	username, bound := h.registry.Unbind(conn)
	if bound {
		evt := h.presence.Announce(conn, username, false)
		h.publishPresence(evt)
	}
	if ok {
		h.Logger.WithField("connections", count).LogEvent("info", "client_disconnected", username, "")
	}
}

// Online returns the identified usernames in the order they came online.
func (h *Hub) Online() []string {
	return h.registry.AllUsernames()
}

func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Client returns the live connection with the given id.
func (h *Hub) Client(conn message.ConnectionID) (*Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[conn]
	return c, ok
}

// Shutdown disconnects every client.
func (h *Hub) Shutdown() {
	h.mu.RLock()
	clients := lo.Values(h.clients)
	h.mu.RUnlock()

	for _, client := range clients {
		h.OnDisconnect(client.ID)
	}
	h.Logger.Infof("Closed %d client connections", len(clients))
}
