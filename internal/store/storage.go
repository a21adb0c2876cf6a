package store

import (
	"context"
	"errors"
)

// Keys for the two persisted records.
const (
	KeyUsers       = "users"       // JSON array of User, the full directory
	KeyCurrentUser = "currentUser" // JSON-encoded user id of the active session
)

var (
	ErrDuplicateEmail = errors.New("email already registered")
	ErrStorageCorrupt = errors.New("storage corrupt")
)

// Storage is the key-value persistence boundary. Get returns (nil, nil)
// when the key is absent.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
