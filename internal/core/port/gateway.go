package port

import (
	"context"

	"github.com/Wyydra/ya-signal/internal/core/domain"
)

// RealTimeGateway delivers events to live connections. Delivery is
// fire-and-forget: Send to a connection that is gone returns
// domain.ErrConnectionNotFound and nothing is queued.
type RealTimeGateway interface {
	Send(ctx context.Context, conn domain.ConnID, event domain.Event) error
	Broadcast(ctx context.Context, event domain.Event, except ...domain.ConnID)
}
