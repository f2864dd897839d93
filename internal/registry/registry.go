// internal/registry/registry.go
// Package registry keeps the bidirectional mapping between live connections
// and the usernames they are operating as.
package registry

import (
	"cmp"
	"fmt"
	"slices"
	"sync"

	"github.com/erilali/messenger/internal/errors"
	"github.com/erilali/messenger/internal/message"
	"github.com/samber/lo"
)

type binding struct {
	conn message.ConnectionID
	seq  uint64
}

// Registry maps connections to usernames and back. Both maps are guarded by
// one mutex and always mutated together, so they stay exact inverses.
type Registry struct {
	mu         sync.RWMutex
	byConn     map[message.ConnectionID]string
	byUsername map[string]binding
	seq        uint64
}

func New() *Registry {
	return &Registry{
		byConn:     make(map[message.ConnectionID]string),
		byUsername: make(map[string]binding),
	}
}

// Bind associates conn with username. Binding the same pair twice is a no-op
// and reports created=false. A username held by another connection, or a
// connection already bound to another username, yields ErrIdentityConflict.
func (r *Registry) Bind(conn message.ConnectionID, username string) (created bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.byConn[conn]; ok {
		if current == username {
			return false, nil
		}
		return false, fmt.Errorf("%w: connection already identified as %q", errors.ErrIdentityConflict, current)
	}
	if holder, ok := r.byUsername[username]; ok && holder.conn != conn {
		return false, fmt.Errorf("%w: %q", errors.ErrIdentityConflict, username)
	}

	r.seq++
	r.byConn[conn] = username
	r.byUsername[username] = binding{conn: conn, seq: r.seq}
	return true, nil
}

// Unbind removes the binding for conn and returns the username it held.
func (r *Registry) Unbind(conn message.ConnectionID) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	username, ok := r.byConn[conn]
	if !ok {
		return "", false
	}
	delete(r.byConn, conn)
	delete(r.byUsername, username)
	return username, true
}

func (r *Registry) LookupByConnection(conn message.ConnectionID) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	username, ok := r.byConn[conn]
	return username, ok
}

func (r *Registry) LookupByUsername(username string) (message.ConnectionID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.byUsername[username]
	return b.conn, ok
}

// AllUsernames returns the online usernames in the order they were bound.
func (r *Registry) AllUsernames() []string {
	r.mu.RLock()
	entries := lo.Entries(r.byUsername)
	r.mu.RUnlock()

	slices.SortFunc(entries, func(a, b lo.Entry[string, binding]) int {
		return cmp.Compare(a.Value.seq, b.Value.seq)
	})
	return lo.Map(entries, func(e lo.Entry[string, binding], _ int) string {
		return e.Key
	})
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byConn)
}
