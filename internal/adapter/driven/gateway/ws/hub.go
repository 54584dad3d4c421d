package ws

import (
	"context"
	"errors"
	"sync"

	"github.com/Wyydra/ya-signal/internal/core/domain"
	"github.com/rs/zerolog/log"
)

var ErrHubStopped = errors.New("hub stopped")

// Hub is the connection table behind port.RealTimeGateway.
type Hub struct {
	mu      sync.RWMutex
	clients map[domain.ConnID]Client
	stopped bool
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[domain.ConnID]Client),
	}
}

func (h *Hub) Register(c Client) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		return ErrHubStopped
	}
	h.clients[c.ID()] = c
	log.Debug().Str("conn_id", c.ID().String()).Int("count", len(h.clients)).Msg("Client registered")
	return nil
}

func (h *Hub) Unregister(c Client) {
	h.mu.Lock()
	if cur, ok := h.clients[c.ID()]; !ok || cur != c {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c.ID())
	count := len(h.clients)
	h.mu.Unlock()

	log.Debug().Str("conn_id", c.ID().String()).Int("count", count).Msg("Client unregistered")
}

func (h *Hub) Send(ctx context.Context, id domain.ConnID, event domain.Event) error {
	h.mu.RLock()
	c, ok := h.clients[id]
	h.mu.RUnlock()
	if !ok {
		return domain.ErrConnectionNotFound
	}
	return h.deliver(c, event)
}

func (h *Hub) Broadcast(ctx context.Context, event domain.Event, except ...domain.ConnID) {
	h.mu.RLock()
	targets := make([]Client, 0, len(h.clients))
	for id, c := range h.clients {
		if !excluded(except, id) {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		_ = h.deliver(c, event)
	}
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stop closes every client and refuses new registrations.
func (h *Hub) Stop() {
	h.mu.Lock()
	h.stopped = true
	clients := h.clients
	h.clients = make(map[domain.ConnID]Client)
	h.mu.Unlock()

	for id, c := range clients {
		if err := c.Close(); err != nil {
			log.Error().Err(err).Str("conn_id", id.String()).Msg("Error closing client connection")
		}
	}
	log.Info().Int("closed", len(clients)).Msg("Hub stopped")
}

// deliver drops the frame and closes a client that cannot keep up; its read
// loop then runs the disconnect cleanup.
func (h *Hub) deliver(c Client, event domain.Event) error {
	err := c.Send(event)
	if errors.Is(err, ErrSendBufferFull) {
		log.Warn().Str("conn_id", c.ID().String()).Str("event", event.Name).Msg("Client too slow, closing")
		_ = c.Close()
	} else if err != nil {
		log.Debug().Err(err).Str("conn_id", c.ID().String()).Str("event", event.Name).Msg("Error sending event")
	}
	return err
}

func excluded(except []domain.ConnID, id domain.ConnID) bool {
	for _, e := range except {
		if e == id {
			return true
		}
	}
	return false
}
