package store

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// UserDirectory is the durable collection of registered users. The whole
// directory is serialized as one JSON record under KeyUsers on every read
// and write. A malformed record degrades to an empty directory instead of
// failing, so the application stays usable after storage tampering.
type UserDirectory struct {
	storage Storage
	logger  *zap.Logger
}

func NewUserDirectory(storage Storage, logger *zap.Logger) *UserDirectory {
	return &UserDirectory{
		storage: storage,
		logger:  logger,
	}
}

func (d *UserDirectory) load(ctx context.Context) ([]User, error) {
	raw, err := d.storage.Get(ctx, KeyUsers)
	if err != nil {
		return nil, fmt.Errorf("failed to read user directory: %w", err)
	}
	if raw == nil {
		return []User{}, nil
	}

	var users []User
	if err := json.Unmarshal(raw, &users); err != nil {
		d.logger.Warn("user directory record is malformed, treating as empty",
			zap.Error(fmt.Errorf("%w: %v", ErrStorageCorrupt, err)))
		return []User{}, nil
	}
	return users, nil
}

func (d *UserDirectory) save(ctx context.Context, users []User) error {
	raw, err := json.Marshal(users)
	if err != nil {
		return fmt.Errorf("failed to encode user directory: %w", err)
	}
	if err := d.storage.Set(ctx, KeyUsers, raw); err != nil {
		return fmt.Errorf("failed to write user directory: %w", err)
	}
	return nil
}

// All returns every registered user.
func (d *UserDirectory) All(ctx context.Context) ([]User, error) {
	return d.load(ctx)
}

// FindByEmail returns the user with an exact, case-sensitive email match,
// or nil when no user matches.
func (d *UserDirectory) FindByEmail(ctx context.Context, email string) (*User, error) {
	users, err := d.load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].Email == email {
			return &users[i], nil
		}
	}
	return nil, nil
}

// ByID returns the user with the given id, or nil when absent.
func (d *UserDirectory) ByID(ctx context.Context, id string) (*User, error) {
	users, err := d.load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].ID == id {
			return &users[i], nil
		}
	}
	return nil, nil
}

// Insert appends a new user. Fails with ErrDuplicateEmail when the email
// is already registered.
func (d *UserDirectory) Insert(ctx context.Context, user User) error {
	users, err := d.load(ctx)
	if err != nil {
		return err
	}
	for i := range users {
		if users[i].Email == user.Email {
			return ErrDuplicateEmail
		}
	}
	return d.save(ctx, append(users, user))
}

// Replace swaps the directory entry whose id matches. When no entry
// matches the directory is left untouched.
func (d *UserDirectory) Replace(ctx context.Context, userID string, updated User) error {
	users, err := d.load(ctx)
	if err != nil {
		return err
	}
	for i := range users {
		if users[i].ID == userID {
			users[i] = updated
			return d.save(ctx, users)
		}
	}
	return nil
}
