package core

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/charla-app/charla/internal/store"
)

// SessionService manages the authenticated user. The directory owns the
// canonical user records; the persisted session is only the user id,
// resolved on demand, so a profile or chat mutation can never leave a
// stale session copy behind.
type SessionService struct {
	directory *store.UserDirectory
	storage   store.Storage
	logger    *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewSessionService(directory *store.UserDirectory, storage store.Storage, logger *zap.Logger) *SessionService {
	return &SessionService{
		directory: directory,
		storage:   storage,
		logger:    logger,
		locks:     make(map[string]*sync.Mutex),
	}
}

// userLock returns the mutex serializing read-modify-write cycles for one
// user record.
func (s *SessionService) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, exists := s.locks[userID]
	if !exists {
		lock = &sync.Mutex{}
		s.locks[userID] = lock
	}
	return lock
}

type RegisterParams struct {
	Name     string
	Email    string
	Password string
}

// Register creates a new user with an empty chat list and starts a session
// for it.
func (s *SessionService) Register(ctx context.Context, params RegisterParams) (*store.User, error) {
	if params.Name == "" || params.Email == "" || params.Password == "" {
		return nil, fmt.Errorf("%w: name, email and password are required", ErrValidation)
	}

	user := store.User{
		ID:        uuid.NewString(),
		Name:      params.Name,
		Email:     params.Email,
		Password:  params.Password,
		CreatedAt: time.Now().UTC(),
		Chats:     []store.Chat{},
	}

	if err := s.directory.Insert(ctx, user); err != nil {
		return nil, err
	}
	if err := s.setCurrent(ctx, user.ID); err != nil {
		return nil, err
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID))
	return &user, nil
}

// Login starts a session for the user matching the exact email/password
// pair. Credentials are stored and compared in plaintext.
func (s *SessionService) Login(ctx context.Context, email, password string) (*store.User, error) {
	user, err := s.directory.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil || user.Password != password {
		return nil, ErrInvalidCredentials
	}

	if err := s.setCurrent(ctx, user.ID); err != nil {
		return nil, err
	}

	s.logger.Info("user logged in", zap.String("user_id", user.ID))
	return user, nil
}

// Logout clears the session pointer unconditionally; logging out without a
// session is not an error.
func (s *SessionService) Logout(ctx context.Context) error {
	if err := s.storage.Delete(ctx, store.KeyCurrentUser); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// currentID reads the persisted session pointer. An absent, malformed or
// dangling pointer yields ErrNoActiveSession, never a parse error.
func (s *SessionService) currentID(ctx context.Context) (string, error) {
	raw, err := s.storage.Get(ctx, store.KeyCurrentUser)
	if err != nil {
		return "", fmt.Errorf("failed to read session: %w", err)
	}
	if raw == nil {
		return "", ErrNoActiveSession
	}

	var id string
	if err := json.Unmarshal(raw, &id); err != nil {
		s.logger.Warn("session record is malformed, treating as logged out",
			zap.Error(fmt.Errorf("%w: %v", store.ErrStorageCorrupt, err)))
		return "", ErrNoActiveSession
	}
	if id == "" {
		return "", ErrNoActiveSession
	}
	return id, nil
}

// Current resolves the active session against the directory.
func (s *SessionService) Current(ctx context.Context) (*store.User, error) {
	id, err := s.currentID(ctx)
	if err != nil {
		return nil, err
	}

	user, err := s.directory.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		// The directory entry is gone; drop the dangling pointer.
		if err := s.storage.Delete(ctx, store.KeyCurrentUser); err != nil {
			s.logger.Warn("failed to drop dangling session pointer", zap.Error(err))
		}
		return nil, ErrNoActiveSession
	}
	return user, nil
}

func (s *SessionService) setCurrent(ctx context.Context, userID string) error {
	raw, err := json.Marshal(userID)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := s.storage.Set(ctx, store.KeyCurrentUser, raw); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}

// UpdateCurrent runs a read-mutate-replace cycle on the active user's
// canonical record under that user's lock and returns the persisted
// result. All chat and profile mutations funnel through here, which is
// what keeps overlapping operations from losing updates.
func (s *SessionService) UpdateCurrent(ctx context.Context, mutate func(user *store.User) error) (*store.User, error) {
	id, err := s.currentID(ctx)
	if err != nil {
		return nil, err
	}

	lock := s.userLock(id)
	lock.Lock()
	defer lock.Unlock()

	user, err := s.directory.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNoActiveSession
	}

	if err := mutate(user); err != nil {
		return nil, err
	}
	if err := s.directory.Replace(ctx, id, *user); err != nil {
		return nil, err
	}
	return user, nil
}

type ProfilePatch struct {
	Name     *string
	Email    *string
	Password *string
}

// UpdateProfile merges the set fields of the patch onto the current user's
// record; unset fields are preserved.
func (s *SessionService) UpdateProfile(ctx context.Context, patch ProfilePatch) (*store.User, error) {
	return s.UpdateCurrent(ctx, func(user *store.User) error {
		if patch.Name != nil {
			if *patch.Name == "" {
				return fmt.Errorf("%w: name cannot be empty", ErrValidation)
			}
			user.Name = *patch.Name
		}
		if patch.Email != nil {
			if *patch.Email == "" {
				return fmt.Errorf("%w: email cannot be empty", ErrValidation)
			}
			user.Email = *patch.Email
		}
		if patch.Password != nil {
			if *patch.Password == "" {
				return fmt.Errorf("%w: password cannot be empty", ErrValidation)
			}
			user.Password = *patch.Password
		}
		return nil
	})
}
