package session

import (
	"context"
	"errors"
)

var (
	ErrInvalidSession = errors.New("invalid session")
	ErrNotFound       = errors.New("key not found")
)

// Stored keys. They match what the web client keeps in local storage.
const (
	KeyAccessToken  = "accessToken"
	KeyRefreshToken = "refreshToken"
	KeyUser         = "user"
)

var allKeys = []string{KeyAccessToken, KeyRefreshToken, KeyUser}

// State is where the session stands.
type State int

const (
	// StateUnresolved is the initial state while a stored token awaits verification.
	StateUnresolved State = iota
	StateAbsent
	StatePresent
)

func (s State) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StatePresent:
		return "present"
	}
	return "unresolved"
}

// Storage is a small persistent key/value store for the token pair and the
// user snapshot.
type Storage interface {
	// Get returns ErrNotFound for missing keys.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}
