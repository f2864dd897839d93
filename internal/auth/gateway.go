// internal/auth/gateway.go
// Package auth registers accounts, checks passwords and issues the
// credentials a connection must present before it may identify.
package auth

import (
	stderrors "errors"
	"fmt"

	"github.com/erilali/messenger/internal/errors"
)

// Credential is a signed token naming the user it was issued to.
type Credential string

type Gateway struct {
	users  UserRepository
	tokens *TokenIssuer
	cost   int
}

type Option func(*Gateway)

// WithBcryptCost overrides DefaultCost.
func WithBcryptCost(cost int) Option {
	return func(g *Gateway) { g.cost = cost }
}

func NewGateway(users UserRepository, tokens *TokenIssuer, opts ...Option) *Gateway {
	g := &Gateway{users: users, tokens: tokens, cost: DefaultCost}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gateway) Register(username, password string) (Credential, error) {
	if err := ValidateRegister(RegisterRequest{Username: username, Password: password}); err != nil {
		return "", err
	}

	hash, err := HashPassword(password, g.cost)
	if err != nil {
		return "", fmt.Errorf("hashing failed: %w", err)
	}

	if err := g.users.CreateUser(username, hash); err != nil {
		return "", err
	}
	return g.issue(username)
}

func (g *Gateway) Login(username, password string) (Credential, error) {
	user, err := g.users.GetUser(username)
	if err != nil {
		// Same error for unknown users and bad passwords.
		return "", errors.ErrInvalidCredentials
	}
	if !ComparePassword(password, user.PasswordHash) {
		return "", errors.ErrInvalidCredentials
	}
	return g.issue(username)
}

// Authenticate returns the username a credential was issued to.
func (g *Gateway) Authenticate(credential string) (string, error) {
	claims, err := g.tokens.Verify(credential)
	if err != nil {
		return "", err
	}
	if _, err := g.users.GetUser(claims.Username); err != nil {
		if stderrors.Is(err, errors.ErrNotFound) {
			return "", fmt.Errorf("%w: unknown user", errors.ErrInvalidCredentials)
		}
		return "", err
	}
	return claims.Username, nil
}

func (g *Gateway) issue(username string) (Credential, error) {
	token, err := g.tokens.Issue(username)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrTokenGeneration, err)
	}
	return Credential(token), nil
}
