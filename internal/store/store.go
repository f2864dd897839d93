// internal/store/store.go
// Package store is the authoritative in-memory record of live chat messages.
package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/erilali/messenger/internal/errors"
	"github.com/erilali/messenger/internal/message"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Store owns every live message. Callers only ever receive copies.
type Store struct {
	mu         sync.Mutex
	messages   map[string]*message.Message
	now        func() time.Time
	newID      func() string
	authorOnly bool
}

type Option func(*Store)

// WithClock replaces time.Now for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator replaces the UUIDv7 generator.
func WithIDGenerator(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

// WithAuthorOnly restricts Edit and Delete to the message author.
func WithAuthorOnly(enabled bool) Option {
	return func(s *Store) { s.authorOnly = enabled }
}

func New(opts ...Option) *Store {
	s := &Store{
		messages: make(map[string]*message.Message),
		now:      time.Now,
		newID:    func() string { return uuid.Must(uuid.NewV7()).String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create stores a new message authored by author and returns it.
func (s *Store) Create(author string, draft message.Draft) message.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.newID()
	for s.messages[id] != nil {
		id = s.newID()
	}

	m := &message.Message{
		ID:        id,
		Author:    author,
		Content:   draft.Content,
		Fields:    lo.Assign(draft.Fields),
		CreatedAt: s.now(),
	}
	s.messages[id] = m
	return clone(m)
}

func (s *Store) Get(id string) (message.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.messages[id]
	if !ok {
		return message.Message{}, fmt.Errorf("%w: %s", errors.ErrNotFound, id)
	}
	return clone(m), nil
}

// Edit replaces the content of message id. editor is checked against the
// author only when the store is author-only.
func (s *Store) Edit(id, editor, content string) (message.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.lookup(id, editor)
	if err != nil {
		return message.Message{}, err
	}

	editedAt := s.now()
	if editedAt.Before(m.CreatedAt) {
		editedAt = m.CreatedAt
	}
	if m.EditedAt != nil && editedAt.Before(*m.EditedAt) {
		editedAt = *m.EditedAt
	}
	m.Content = content
	m.Edited = true
	m.EditedAt = &editedAt
	return clone(m), nil
}

// Delete removes message id and returns its last state.
func (s *Store) Delete(id, editor string) (message.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.lookup(id, editor)
	if err != nil {
		return message.Message{}, err
	}
	delete(s.messages, id)
	return clone(m), nil
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

func (s *Store) lookup(id, editor string) (*message.Message, error) {
	m, ok := s.messages[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errors.ErrNotFound, id)
	}
	if s.authorOnly && m.Author != editor {
		return nil, fmt.Errorf("%w: %s", errors.ErrNotAuthor, id)
	}
	return m, nil
}

func clone(m *message.Message) message.Message {
	out := *m
	out.Fields = lo.Assign(m.Fields)
	if m.EditedAt != nil {
		editedAt := *m.EditedAt
		out.EditedAt = &editedAt
	}
	return out
}
