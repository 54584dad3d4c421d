package port

import (
	"context"

	"github.com/Wyydra/ya-signal/internal/core/domain"
)

// MessageRepository is the storage collaborator that owns chat messages.
// Create returns the saved message with its generated id and timestamps.
type MessageRepository interface {
	Create(ctx context.Context, draft domain.MessageDraft) (domain.Message, error)
}

// MessageHistory reads back the most recent messages of a chat, oldest first.
type MessageHistory interface {
	History(ctx context.Context, kind domain.RoomKind, roomID string, limit int) ([]domain.Message, error)
}

type MessageStore interface {
	MessageRepository
	MessageHistory
}
