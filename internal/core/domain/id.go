package domain

import (
	"github.com/google/uuid"
)

// ConnID identifies one live transport session. It is assigned by the
// transport and never reused.
type ConnID string

// UserID is the identity a client presents at handshake. One user may hold
// several connections at once.
type UserID string

type CallID string

type MessageID string

func NewConnID() ConnID {
	return ConnID(uuid.New().String())
}

func NewCallID() CallID {
	return CallID(uuid.New().String())
}

func NewMessageID() MessageID {
	return MessageID(uuid.New().String())
}

func (id ConnID) String() string {
	return string(id)
}

func (id UserID) String() string {
	return string(id)
}

func (id CallID) String() string {
	return string(id)
}

func (id MessageID) String() string {
	return string(id)
}
