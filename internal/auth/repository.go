// internal/auth/repository.go
//go:generate go run go.uber.org/mock/mockgen -source=repository.go -destination=../mocks/mock_user_repository.go -package=mocks
package auth

import (
	"fmt"
	"sync"
	"time"

	"github.com/erilali/messenger/internal/errors"
)

type User struct {
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

type UserRepository interface {
	CreateUser(username, passwordHash string) error
	GetUser(username string) (User, error)
}

// MemoryUserRepository keeps accounts for the lifetime of the process.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]User
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[string]User)}
}

func (r *MemoryUserRepository) CreateUser(username, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[username]; ok {
		return fmt.Errorf("%w: %s", errors.ErrUsernameTaken, username)
	}
	r.users[username] = User{Username: username, PasswordHash: passwordHash, CreatedAt: time.Now()}
	return nil
}

func (r *MemoryUserRepository) GetUser(username string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[username]
	if !ok {
		return User{}, fmt.Errorf("%w: user %s", errors.ErrNotFound, username)
	}
	return u, nil
}
