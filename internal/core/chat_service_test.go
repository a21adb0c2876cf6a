package core

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/charla-app/charla/internal/store"
)

// stubResponder returns a fixed reply after an optional delay.
type stubResponder struct {
	reply string
	delay time.Duration
}

func (r *stubResponder) Respond(ctx context.Context, input string) (string, error) {
	if r.delay > 0 {
		timer := time.NewTimer(r.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
		}
	}
	return r.reply, nil
}

func TestCreateChatUsesDefaultTitle(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, nil)
	registerTestUser(t, env)

	chat, err := env.chats.CreateChat(ctx, "")
	require.NoError(t, err)
	require.Equal(t, DefaultChatTitle, chat.Title)
	require.Empty(t, chat.Messages)
	require.NotEmpty(t, chat.ID)
}

func TestCreateChatWithTitle(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, nil)
	registerTestUser(t, env)

	chat, err := env.chats.CreateChat(ctx, "Dudas de clima")
	require.NoError(t, err)
	require.Equal(t, "Dudas de clima", chat.Title)
}

func TestChatOperationsRequireSession(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, nil)

	_, err := env.chats.CreateChat(ctx, "")
	require.ErrorIs(t, err, ErrNoActiveSession)

	_, err = env.chats.Chats(ctx)
	require.ErrorIs(t, err, ErrNoActiveSession)

	_, err = env.chats.Chat(ctx, "c1")
	require.ErrorIs(t, err, ErrNoActiveSession)

	_, err = env.chats.AddMessage(ctx, "c1", "hola", store.SenderUser)
	require.ErrorIs(t, err, ErrNoActiveSession)

	require.ErrorIs(t, env.chats.DeleteChat(ctx, "c1"), ErrNoActiveSession)
}

func TestAddMessageAppendsInCallOrder(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, nil)
	registerTestUser(t, env)

	chat, err := env.chats.CreateChat(ctx, "")
	require.NoError(t, err)

	const n = 5
	for i := 0; i < n; i++ {
		updated, err := env.chats.AddMessage(ctx, chat.ID, fmt.Sprintf("mensaje %d", i), store.SenderUser)
		require.NoError(t, err)
		require.Len(t, updated.Messages, i+1)
	}

	persisted, err := env.chats.Chat(ctx, chat.ID)
	require.NoError(t, err)
	require.Len(t, persisted.Messages, n)
	for i, message := range persisted.Messages {
		require.Equal(t, fmt.Sprintf("mensaje %d", i), message.Content)
		require.Equal(t, store.SenderUser, message.Sender)
		require.NotEmpty(t, message.ID)
	}
}

func TestAddMessageUnknownChat(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, nil)
	registerTestUser(t, env)

	_, err := env.chats.AddMessage(ctx, "no-such-chat", "hola", store.SenderUser)
	require.ErrorIs(t, err, ErrChatNotFound)
}

func TestDeleteChatIsIdempotent(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, nil)
	registerTestUser(t, env)

	_, err := env.chats.CreateChat(ctx, "primera")
	require.NoError(t, err)
	_, err = env.chats.CreateChat(ctx, "segunda")
	require.NoError(t, err)

	before, err := env.chats.Chats(ctx)
	require.NoError(t, err)
	beforeJSON, err := json.Marshal(before)
	require.NoError(t, err)

	require.NoError(t, env.chats.DeleteChat(ctx, "no-such-chat"))

	after, err := env.chats.Chats(ctx)
	require.NoError(t, err)
	afterJSON, err := json.Marshal(after)
	require.NoError(t, err)
	require.Equal(t, beforeJSON, afterJSON)
}

func TestDeleteChatRemovesChat(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, nil)
	registerTestUser(t, env)

	first, err := env.chats.CreateChat(ctx, "primera")
	require.NoError(t, err)
	second, err := env.chats.CreateChat(ctx, "segunda")
	require.NoError(t, err)

	require.NoError(t, env.chats.DeleteChat(ctx, first.ID))

	chats, err := env.chats.Chats(ctx)
	require.NoError(t, err)
	require.Len(t, chats, 1)
	require.Equal(t, second.ID, chats[0].ID)

	_, err = env.chats.Chat(ctx, first.ID)
	require.ErrorIs(t, err, ErrChatNotFound)
}

func TestSendMessageStoresFullExchange(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, &stubResponder{reply: "claro, te ayudo"})
	registerTestUser(t, env)

	chat, err := env.chats.CreateChat(ctx, "")
	require.NoError(t, err)

	updated, err := env.chats.SendMessage(ctx, chat.ID, "necesito ayuda")
	require.NoError(t, err)
	require.Len(t, updated.Messages, 2)
	require.Equal(t, store.SenderUser, updated.Messages[0].Sender)
	require.Equal(t, "necesito ayuda", updated.Messages[0].Content)
	require.Equal(t, store.SenderAI, updated.Messages[1].Sender)
	require.Equal(t, "claro, te ayudo", updated.Messages[1].Content)
}

func TestSendMessageUnknownChat(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, &stubResponder{reply: "hola"})
	registerTestUser(t, env)

	_, err := env.chats.SendMessage(ctx, "no-such-chat", "hola")
	require.ErrorIs(t, err, ErrChatNotFound)
}

func TestConcurrentAddMessageLosesNoUpdate(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, nil)
	registerTestUser(t, env)

	chat, err := env.chats.CreateChat(ctx, "")
	require.NoError(t, err)

	const n = 8
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		content := fmt.Sprintf("concurrente %d", i)
		g.Go(func() error {
			_, err := env.chats.AddMessage(gctx, chat.ID, content, store.SenderUser)
			return err
		})
	}
	require.NoError(t, g.Wait())

	persisted, err := env.chats.Chat(ctx, chat.ID)
	require.NoError(t, err)
	require.Len(t, persisted.Messages, n)

	seen := make(map[string]bool, n)
	for _, message := range persisted.Messages {
		seen[message.Content] = true
	}
	require.Len(t, seen, n)
}

func TestOverlappingSendsBothLand(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, &stubResponder{reply: "respuesta", delay: 10 * time.Millisecond})
	registerTestUser(t, env)

	chat, err := env.chats.CreateChat(ctx, "")
	require.NoError(t, err)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := env.chats.SendMessage(gctx, chat.ID, "primer mensaje")
		return err
	})
	g.Go(func() error {
		_, err := env.chats.SendMessage(gctx, chat.ID, "segundo mensaje")
		return err
	})
	require.NoError(t, g.Wait())

	persisted, err := env.chats.Chat(ctx, chat.ID)
	require.NoError(t, err)
	require.Len(t, persisted.Messages, 4)

	var users, replies int
	for _, message := range persisted.Messages {
		switch message.Sender {
		case store.SenderUser:
			users++
		case store.SenderAI:
			replies++
		}
	}
	require.Equal(t, 2, users)
	require.Equal(t, 2, replies)
}
