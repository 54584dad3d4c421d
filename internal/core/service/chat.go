package service

import (
	"context"

	"github.com/Wyydra/ya-signal/internal/core/domain"
	"github.com/Wyydra/ya-signal/internal/core/port"
	"github.com/rs/zerolog/log"
)

// ChatService persists chat messages through the storage collaborator and
// fans them out to the room.
type ChatService struct {
	repo  port.MessageStore
	rooms *RoomService
}

func NewChatService(repo port.MessageStore, rooms *RoomService) *ChatService {
	return &ChatService{
		repo:  repo,
		rooms: rooms,
	}
}

// SendMessage broadcasts only after the message is saved; a storage failure
// means nobody sees it.
func (s *ChatService) SendMessage(ctx context.Context, draft domain.MessageDraft) (domain.Message, error) {
	d, err := domain.NewMessageDraft(draft.Kind, draft.RoomID, draft.SenderID, draft.Text)
	if err != nil {
		return domain.Message{}, err
	}

	msg, err := s.repo.Create(ctx, *d)
	if err != nil {
		return domain.Message{}, &domain.StorageError{Op: "create message", Err: err}
	}

	// Membership is read now, after the save, not before it.
	name := domain.EventNewGroupMessage
	if msg.Kind == domain.RoomPrivate {
		name = domain.EventNewPrivateMessage
	}
	n := s.rooms.Broadcast(ctx, msg.Room(), domain.NewEvent(name, msg))

	log.Debug().
		Str("message_id", msg.ID.String()).
		Str("room_id", msg.Room().String()).
		Int("recipients", n).
		Msg("Message fanned out")
	return msg, nil
}

// History returns the latest messages of a chat.
func (s *ChatService) History(ctx context.Context, kind domain.RoomKind, chatID string, limit int) ([]domain.Message, error) {
	if _, err := chatRoom(kind, chatID); err != nil {
		return nil, err
	}
	msgs, err := s.repo.History(ctx, kind, chatID, limit)
	if err != nil {
		return nil, &domain.StorageError{Op: "load history", Err: err}
	}
	return msgs, nil
}

func (s *ChatService) JoinChat(ctx context.Context, conn domain.ConnID, kind domain.RoomKind, chatID string) error {
	room, err := chatRoom(kind, chatID)
	if err != nil {
		return err
	}
	s.rooms.Join(ctx, conn, room)
	return nil
}

func (s *ChatService) LeaveChat(ctx context.Context, conn domain.ConnID, kind domain.RoomKind, chatID string) error {
	room, err := chatRoom(kind, chatID)
	if err != nil {
		return err
	}
	s.rooms.Leave(ctx, conn, room)
	return nil
}

func chatRoom(kind domain.RoomKind, chatID string) (domain.RoomID, error) {
	if !kind.Valid() {
		return "", &domain.ProtocolError{Field: "roomKind", Err: domain.ErrUnknownRoomKind}
	}
	if chatID == "" {
		return "", &domain.ProtocolError{Field: "chatId", Err: domain.ErrMissingField}
	}
	return domain.ChatRoomID(kind, chatID), nil
}
