// internal/hub/websocket.go
package hub

import (
	stderrors "errors"
	"net/http"
	"time"

	"github.com/erilali/messenger/internal/errors"
	"github.com/erilali/messenger/internal/message"
	"github.com/gorilla/websocket"
	"github.com/samber/lo"
)

const (
	webSocketReadDeadline  = 60 * time.Second
	webSocketWriteDeadline = 10 * time.Second
	webSocketPingPeriod    = (webSocketReadDeadline * 9) / 10 // Must be less than readDeadline
	maxFrameSize           = 16 * 1024
)

func (h *Hub) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
}

// checkOrigin allows every origin when none are configured, and requests
// without an Origin header, which browsers always send.
func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.config.AllowedOrigins) == 0 {
		return true
	}
	return lo.Contains(h.config.AllowedOrigins, origin)
}

// ServeWs upgrades the HTTP connection to a WebSocket and registers the client.
// A credential may be passed as the token query parameter; its username
// becomes the only identity the connection may take.
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	var principal string
	token := r.URL.Query().Get("token")
	if token != "" || h.config.RequireToken {
		if h.auth == nil {
			http.Error(w, "authentication unavailable", http.StatusServiceUnavailable)
			return
		}
		username, err := h.auth.Authenticate(token)
		if err != nil {
			http.Error(w, "invalid or missing token", http.StatusUnauthorized)
			return
		}
		principal = username
	}

	conn, err := h.upgrader().Upgrade(w, r, nil)
	if err != nil {
		h.Logger.Errorf("WebSocket upgrade error: %v", err)
		return
	}

	client := h.Attach(conn, principal)
	go h.WritePump(client)
	go h.ReadPump(client)
}

// ReadPump reads frames from the WebSocket connection and dispatches them.
func (h *Hub) ReadPump(client *Client) {
	defer func() {
		_ = h.Dispatch(client.ID, message.Disconnect{})
		client.Conn.Close()
	}()

	client.Conn.SetReadLimit(maxFrameSize)
	client.Conn.SetReadDeadline(time.Now().Add(webSocketReadDeadline))
	client.Conn.SetPongHandler(func(string) error {
		client.Conn.SetReadDeadline(time.Now().Add(webSocketReadDeadline))
		return nil
	})

	for {
		_, frame, err := client.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.Logger.LogEvent("error", "read_error", string(client.ID), err.Error())
			}
			return
		}

		event, err := message.Decode(frame)
		if err == nil {
			err = h.Dispatch(client.ID, event)
		}
		if err != nil && !stderrors.Is(err, errors.ErrNotFound) {
			h.Logger.Debugf("Event from %s refused: %v", client.ID, err)
			h.SendErrorMessage(client, err)
		}
	}
}

// WritePump drains the client's outbox into the WebSocket connection, one
// frame per event.
func (h *Hub) WritePump(client *Client) {
	ticker := time.NewTicker(webSocketPingPeriod)
	defer func() {
		ticker.Stop()
		client.Conn.Close()
	}()

	for {
		select {
		case frame, ok := <-client.send:
			client.Conn.SetWriteDeadline(time.Now().Add(webSocketWriteDeadline))
			if !ok {
				// The hub closed the channel.
				client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.Conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

		case <-ticker.C:
			client.Conn.SetWriteDeadline(time.Now().Add(webSocketWriteDeadline))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return // Client connection is likely broken
			}
		}
	}
}
