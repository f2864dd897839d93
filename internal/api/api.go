// internal/api/api.go
// Provides StartServer and the HTTP API: account routes, the WebSocket
// endpoint and health reporting.
package api

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/erilali/messenger/internal/auth"
	"github.com/erilali/messenger/internal/errors"
	"github.com/erilali/messenger/internal/hub"
	"github.com/erilali/messenger/internal/logger"
	"github.com/erilali/messenger/internal/util"
	"github.com/nats-io/nats.go"
)

const (
	version         = "1.0.0"
	shutdownTimeout = 10 * time.Second
)

var journalStreams = []struct {
	Name     string
	Subjects []string
}{
	{Name: "CHAT_MESSAGES", Subjects: []string{"chat.messages.*"}},
	{Name: "CHAT_PRESENCE", Subjects: []string{"chat.presence.*"}},
}

// SessionGateway registers and logs in users.
type SessionGateway interface {
	Register(username, password string) (auth.Credential, error)
	Login(username, password string) (auth.Credential, error)
}

// Server holds everything the HTTP handlers need.
type Server struct {
	Hub      *hub.Hub
	Sessions SessionGateway
	NatsConn *nats.Conn
	Js       nats.JetStreamContext
	Origins  []string
	Logger   *logger.Logger
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// ConnectNATS connects to NATS and makes sure the journal streams exist.
// Both return values are nil when NATS is unreachable; the server keeps
// running without a journal.
func ConnectNATS(natsURL string, retention time.Duration, serverLogger *logger.Logger) (*nats.Conn, nats.JetStreamContext) {
	serverLogger.Infof("Connecting to NATS at %s", natsURL)
	nc, err := nats.Connect(natsURL, nats.Name("messenger"))
	if err != nil {
		serverLogger.Errorf("Error connecting to NATS: %v", err)
		serverLogger.Warn("Running without NATS connection. The event journal will be disabled.")
		return nil, nil
	}
	serverLogger.Info("Successfully connected to NATS")

	js, err := nc.JetStream()
	if err != nil {
		serverLogger.Errorf("Error getting JetStream context: %v", err)
		serverLogger.Warn("Running without JetStream. The event journal will be disabled.")
		return nc, nil
	}

	for _, s := range journalStreams {
		streamConfig := &nats.StreamConfig{
			Name:     s.Name,
			Subjects: s.Subjects,
			Storage:  nats.FileStorage,
			MaxAge:   retention,
		}
		if _, err := js.StreamInfo(streamConfig.Name); err != nil {
			if _, err = js.AddStream(streamConfig); err != nil {
				serverLogger.Errorf("Error creating stream %s: %v", s.Name, err)
			} else {
				serverLogger.Infof("Created stream: %s", s.Name)
			}
		} else {
			if _, err = js.UpdateStream(streamConfig); err != nil {
				serverLogger.Errorf("Error updating stream %s: %v", s.Name, err)
			} else {
				serverLogger.Infof("Updated stream: %s", s.Name)
			}
		}
	}
	return nc, js
}

// StartServer wires the hub, the session gateway and NATS, serves HTTP and
// blocks until SIGINT or SIGTERM.
func StartServer(config util.Config, serverLogger *logger.Logger) error {
	nc, js := ConnectNATS(config.NatsURL, config.JournalRetention, serverLogger)
	if nc != nil {
		defer nc.Drain()
	}

	tokens := auth.NewTokenIssuer([]byte(config.JWTSecret), config.TokenTTL)
	gateway := auth.NewGateway(auth.NewMemoryUserRepository(), tokens)

	opts := []hub.Option{hub.WithAuthenticator(gateway)}
	if js != nil {
		opts = append(opts, hub.WithJournal(hub.NewNATSJournal(js)))
	}
	h := hub.NewHub(hub.Config{
		OutboxSize:       config.OutboxSize,
		MaxContentLength: config.MaxContentLength,
		AuthorOnlyEdits:  config.AuthorOnlyEdits,
		RequireToken:     config.RequireToken,
		AllowedOrigins:   config.AllowedOrigins(),
	}, logger.NewLogger("hub"), opts...)

	srv := &Server{
		Hub:      h,
		Sessions: gateway,
		NatsConn: nc,
		Js:       js,
		Origins:  config.AllowedOrigins(),
		Logger:   serverLogger,
	}

	httpServer := &http.Server{
		Addr:        fmt.Sprintf(":%d", config.Port),
		Handler:     srv.Routes(),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		serverLogger.Infof("Server started at %s", httpServer.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		serverLogger.Infof("Received %s, shutting down", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	h.Shutdown()
	return httpServer.Shutdown(ctx)
}

// Routes returns the HTTP handler with CORS applied.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("GET /ws", s.Hub.ServeWs)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "Welcome to the Messenger API"})
	})
	return withCORS(s.Origins, mux)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" || req.Password == "" {
		writeMessage(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	token, err := s.Sessions.Register(req.Username, req.Password)
	switch {
	case err == nil:
		s.Logger.Infof("User registered successfully: %s", req.Username)
		writeJSON(w, http.StatusCreated, map[string]string{"token": string(token), "message": "Registration successful"})
	case stderrors.Is(err, errors.ErrUsernameTaken):
		writeMessage(w, http.StatusBadRequest, "Username already exists")
	case stderrors.Is(err, errors.ErrInvalidInput):
		writeMessage(w, http.StatusBadRequest, err.Error())
	default:
		s.Logger.Errorf("Registration error: %v", err)
		writeMessage(w, http.StatusInternalServerError, "Error creating user")
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	token, err := s.Sessions.Login(req.Username, req.Password)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"token": string(token)})
	case stderrors.Is(err, errors.ErrInvalidCredentials):
		writeMessage(w, http.StatusUnauthorized, "Invalid credentials")
	default:
		s.Logger.Errorf("Login error: %v", err)
		writeMessage(w, http.StatusInternalServerError, "Error logging in")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	natsStatus := "disconnected"
	if s.NatsConn != nil && s.NatsConn.Status() == nats.CONNECTED {
		natsStatus = "connected"
	}
	health := map[string]interface{}{
		"status":      "ok",
		"version":     version,
		"nats":        natsStatus,
		"connections": s.Hub.ConnectionCount(),
		"online":      s.Hub.Online(),
		"uptime":      time.Since(s.Hub.StartTime).Round(time.Second).String(),
	}
	if s.Js != nil {
		streamInfo := make(map[string]interface{})
		for _, stream := range journalStreams {
			info, err := s.Js.StreamInfo(stream.Name)
			if err != nil {
				streamInfo[stream.Name] = map[string]interface{}{"error": err.Error()}
				continue
			}
			streamInfo[stream.Name] = map[string]interface{}{
				"messages":  info.State.Msgs,
				"bytes":     info.State.Bytes,
				"subjects":  info.Config.Subjects,
				"retention": fmt.Sprintf("%v", info.Config.MaxAge),
			}
		}
		health["jetstream"] = map[string]interface{}{"streams": streamInfo}
	}
	writeJSON(w, http.StatusOK, health)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
