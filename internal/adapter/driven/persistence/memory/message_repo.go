package memory

import (
	"context"
	"sync"
	"time"

	"github.com/Wyydra/ya-signal/internal/core/domain"
)

// MessageRepository keeps messages in process memory. It stands in for the
// external message store in development and tests.
type MessageRepository struct {
	mu       sync.Mutex
	messages []domain.Message
	now      func() time.Time
}

func NewMessageRepository() *MessageRepository {
	return &MessageRepository{
		messages: make([]domain.Message, 0),
		now:      time.Now,
	}
}

func (r *MessageRepository) Create(ctx context.Context, draft domain.MessageDraft) (domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return domain.Message{}, err
	}

	now := r.now().UTC()
	msg := domain.Message{
		ID:        domain.NewMessageID(),
		Kind:      draft.Kind,
		RoomID:    draft.RoomID,
		SenderID:  draft.SenderID,
		Text:      draft.Text,
		SentAt:    now,
		UpdatedAt: now,
		Sender:    domain.Sender{ID: draft.SenderID},
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
	return msg, nil
}

// History returns up to limit most recent messages of a chat, oldest first.
func (r *MessageRepository) History(ctx context.Context, kind domain.RoomKind, roomID string, limit int) ([]domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Message
	for _, m := range r.messages {
		if m.Kind == kind && m.RoomID == roomID {
			out = append(out, m)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}
