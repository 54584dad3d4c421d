package ws

import (
	"errors"

	"github.com/Wyydra/ya-signal/internal/core/domain"
)

var (
	ErrSendBufferFull = errors.New("send buffer full")
	ErrClientClosed   = errors.New("client closed")
)

// Client is one transport connection. Send must not block: it queues the
// event or fails.
type Client interface {
	ID() domain.ConnID
	Send(event domain.Event) error
	Close() error
}
