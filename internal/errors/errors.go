// internal/errors/errors.go
// Package errors holds the sentinel errors shared by the chat core, the
// session gateway and the HTTP layer.
package errors

import "errors"

var (
	ErrUnauthenticated    = errors.New("connection is not identified")
	ErrIdentityConflict   = errors.New("identity already bound to another connection")
	ErrNotFound           = errors.New("message not found")
	ErrNotAuthor          = errors.New("only the author may change this message")
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnknownEvent       = errors.New("unknown event type")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenGeneration    = errors.New("failed to generate token")
)
