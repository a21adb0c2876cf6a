package core

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/charla-app/charla/internal/store"
)

// DefaultChatTitle is used when a chat is created without a title.
const DefaultChatTitle = "Nueva conversación"

// responderFallback is stored as the assistant turn when the responder
// fails, so a send never leaves a user message unanswered.
const responderFallback = "Lo siento, ha ocurrido un problema al procesar tu mensaje. Inténtalo de nuevo."

// ChatService manages the active user's conversations. Every mutation goes
// through SessionService.UpdateCurrent, so writes to one user's record are
// serialized even when sends overlap.
type ChatService struct {
	sessions  *SessionService
	responder Responder
	logger    *zap.Logger
}

func NewChatService(sessions *SessionService, responder Responder, logger *zap.Logger) *ChatService {
	return &ChatService{
		sessions:  sessions,
		responder: responder,
		logger:    logger,
	}
}

func findChat(chats []store.Chat, chatID string) *store.Chat {
	for i := range chats {
		if chats[i].ID == chatID {
			return &chats[i]
		}
	}
	return nil
}

// CreateChat appends a new empty chat to the active user's list. An empty
// title falls back to DefaultChatTitle.
func (s *ChatService) CreateChat(ctx context.Context, title string) (*store.Chat, error) {
	if title == "" {
		title = DefaultChatTitle
	}

	chat := store.Chat{
		ID:        uuid.NewString(),
		Title:     title,
		CreatedAt: time.Now().UTC(),
		Messages:  []store.Message{},
	}

	user, err := s.sessions.UpdateCurrent(ctx, func(user *store.User) error {
		user.Chats = append(user.Chats, chat)
		return nil
	})
	if err != nil {
		return nil, err
	}

	created := findChat(user.Chats, chat.ID)
	if created == nil {
		return nil, ErrChatNotFound
	}
	s.logger.Info("chat created", zap.String("chat_id", chat.ID))
	return created, nil
}

// Chats lists the active user's conversations, oldest first.
func (s *ChatService) Chats(ctx context.Context) ([]store.Chat, error) {
	user, err := s.sessions.Current(ctx)
	if err != nil {
		return nil, err
	}
	if user.Chats == nil {
		return []store.Chat{}, nil
	}
	return user.Chats, nil
}

// Chat returns a single conversation by id.
func (s *ChatService) Chat(ctx context.Context, chatID string) (*store.Chat, error) {
	chats, err := s.Chats(ctx)
	if err != nil {
		return nil, err
	}
	chat := findChat(chats, chatID)
	if chat == nil {
		return nil, ErrChatNotFound
	}
	return chat, nil
}

// AddMessage appends one message to the chat and returns the chat as
// re-read from the persisted record. An unknown chat id leaves the user
// record unchanged apart from the rewrite and surfaces ErrChatNotFound on
// the re-read.
func (s *ChatService) AddMessage(ctx context.Context, chatID, content, sender string) (*store.Chat, error) {
	message := store.Message{
		ID:        uuid.NewString(),
		Content:   content,
		Sender:    sender,
		Timestamp: time.Now().UTC(),
	}

	user, err := s.sessions.UpdateCurrent(ctx, func(user *store.User) error {
		if chat := findChat(user.Chats, chatID); chat != nil {
			chat.Messages = append(chat.Messages, message)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	chat := findChat(user.Chats, chatID)
	if chat == nil {
		return nil, ErrChatNotFound
	}
	return chat, nil
}

// DeleteChat removes the chat from the active user's list. Deleting an
// absent id succeeds with no change.
func (s *ChatService) DeleteChat(ctx context.Context, chatID string) error {
	_, err := s.sessions.UpdateCurrent(ctx, func(user *store.User) error {
		kept := user.Chats[:0]
		for _, chat := range user.Chats {
			if chat.ID != chatID {
				kept = append(kept, chat)
			}
		}
		user.Chats = kept
		return nil
	})
	return err
}

// SendMessage performs one full exchange: append the user's message,
// obtain the responder's reply, append it as the assistant's message, and
// return the updated chat. Once the user message is stored the exchange
// always completes; a responder failure is answered with a canned
// fallback.
func (s *ChatService) SendMessage(ctx context.Context, chatID, content string) (*store.Chat, error) {
	if _, err := s.AddMessage(ctx, chatID, content, store.SenderUser); err != nil {
		return nil, err
	}

	reply, err := s.responder.Respond(ctx, content)
	if err != nil {
		s.logger.Warn("responder failed, using fallback reply",
			zap.String("chat_id", chatID), zap.Error(err))
		reply = responderFallback
	}

	return s.AddMessage(ctx, chatID, reply, store.SenderAI)
}
