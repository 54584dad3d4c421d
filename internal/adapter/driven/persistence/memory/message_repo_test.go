package memory

import (
	"context"
	"testing"
	"time"

	"github.com/Wyydra/ya-signal/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageRepository_Create(t *testing.T) {
	repo := NewMessageRepository()
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return fixed }

	msg, err := repo.Create(context.Background(), domain.MessageDraft{
		Kind:     domain.RoomGroup,
		RoomID:   "g1",
		SenderID: "u1",
		Text:     "hello",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, fixed, msg.SentAt)
	assert.Equal(t, fixed, msg.UpdatedAt)
	assert.Equal(t, domain.UserID("u1"), msg.Sender.ID)
	assert.Equal(t, domain.RoomID("group-g1"), msg.Room())
}

func TestMessageRepository_HistoryFiltersByChat(t *testing.T) {
	repo := NewMessageRepository()
	ctx := context.Background()

	for _, d := range []domain.MessageDraft{
		{Kind: domain.RoomGroup, RoomID: "g1", SenderID: "u1", Text: "one"},
		{Kind: domain.RoomPrivate, RoomID: "g1", SenderID: "u1", Text: "other kind"},
		{Kind: domain.RoomGroup, RoomID: "g1", SenderID: "u2", Text: "two"},
	} {
		_, err := repo.Create(ctx, d)
		require.NoError(t, err)
	}

	got, err := repo.History(ctx, domain.RoomGroup, "g1", 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "one", got[0].Text)
	assert.Equal(t, "two", got[1].Text)

	latest, err := repo.History(ctx, domain.RoomGroup, "g1", 1)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, "two", latest[0].Text)
}

func TestMessageRepository_CancelledContext(t *testing.T) {
	repo := NewMessageRepository()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.Create(ctx, domain.MessageDraft{Kind: domain.RoomGroup, RoomID: "g1", SenderID: "u1", Text: "x"})
	assert.ErrorIs(t, err, context.Canceled)
	got, err := repo.History(context.Background(), domain.RoomGroup, "g1", 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}
