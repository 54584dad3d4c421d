package domain

import (
	"strings"
	"time"
)

// MessageDraft is a chat message before the storage collaborator saved it.
type MessageDraft struct {
	Kind     RoomKind
	RoomID   string
	SenderID UserID
	Text     string
}

type Sender struct {
	ID UserID `json:"id"`
}

// Message is a persisted chat message as it is broadcast to room members.
type Message struct {
	ID        MessageID `json:"id"`
	Kind      RoomKind  `json:"roomKind"`
	RoomID    string    `json:"roomId"`
	SenderID  UserID    `json:"senderId"`
	Text      string    `json:"text"`
	SentAt    time.Time `json:"sentAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Sender    Sender    `json:"sender"`
}

func NewMessageDraft(kind RoomKind, roomID string, senderID UserID, text string) (*MessageDraft, error) {
	if !kind.Valid() {
		return nil, &ProtocolError{Field: "roomKind", Err: ErrUnknownRoomKind}
	}
	if strings.TrimSpace(roomID) == "" {
		return nil, &ProtocolError{Field: "roomId", Err: ErrMissingField}
	}
	if senderID == "" {
		return nil, &ProtocolError{Field: "senderId", Err: ErrMissingField}
	}
	if strings.TrimSpace(text) == "" {
		return nil, &ProtocolError{Field: "text", Err: ErrEmptyMessage}
	}
	return &MessageDraft{
		Kind:     kind,
		RoomID:   roomID,
		SenderID: senderID,
		Text:     text,
	}, nil
}

// Room is the fan-out room the message belongs to.
func (d MessageDraft) Room() RoomID {
	return ChatRoomID(d.Kind, d.RoomID)
}

func (m Message) Room() RoomID {
	return ChatRoomID(m.Kind, m.RoomID)
}
