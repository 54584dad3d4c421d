package service

import (
	"context"
	"sort"
	"sync"

	"github.com/Wyydra/ya-signal/internal/core/domain"
	"github.com/Wyydra/ya-signal/internal/core/port"
	"github.com/rs/zerolog/log"
)

// Registry tracks live connections and per-user presence, and broadcasts
// presence changes.
type Registry struct {
	gateway port.RealTimeGateway

	mu        sync.RWMutex
	conns     map[domain.ConnID]domain.Connection
	userConns map[domain.UserID]map[domain.ConnID]struct{}
	// online keeps users that went offline with a false flag so the
	// snapshot still lists them.
	online map[domain.UserID]bool
}

func NewRegistry(gateway port.RealTimeGateway) *Registry {
	return &Registry{
		gateway:   gateway,
		conns:     make(map[domain.ConnID]domain.Connection),
		userConns: make(map[domain.UserID]map[domain.ConnID]struct{}),
		online:    make(map[domain.UserID]bool),
	}
}

// Register binds a connection to its user and marks the user online. The new
// connection receives the full presence snapshot; everyone else gets a
// status change.
func (r *Registry) Register(ctx context.Context, c domain.Connection) error {
	if c.UserID == "" || c.ID == "" {
		return domain.ErrMissingIdentity
	}

	r.mu.Lock()
	r.conns[c.ID] = c
	set, ok := r.userConns[c.UserID]
	if !ok {
		set = make(map[domain.ConnID]struct{})
		r.userConns[c.UserID] = set
	}
	set[c.ID] = struct{}{}
	r.online[c.UserID] = true
	snapshot := r.snapshotLocked()
	r.mu.Unlock()

	log.Info().
		Str("conn_id", c.ID.String()).
		Str("user_id", c.UserID.String()).
		Int("known_users", len(snapshot)).
		Msg("Connection registered")

	if err := r.gateway.Send(ctx, c.ID, domain.NewEvent(domain.EventOnlineUsersList, snapshot)); err != nil {
		log.Debug().Err(err).Str("conn_id", c.ID.String()).Msg("Presence snapshot not delivered")
	}
	r.gateway.Broadcast(ctx, domain.NewEvent(domain.EventUserStatusChanged, domain.PresenceEntry{
		UserID: c.UserID,
		Online: true,
	}), c.ID)
	return nil
}

// Unregister forgets a connection. The user goes offline only when this was
// their last connection; wentOffline reports that transition.
func (r *Registry) Unregister(ctx context.Context, id domain.ConnID) (c domain.Connection, wentOffline bool) {
	r.mu.Lock()
	c, ok := r.conns[id]
	if !ok {
		r.mu.Unlock()
		return domain.Connection{}, false
	}
	delete(r.conns, id)
	if set, ok := r.userConns[c.UserID]; ok {
		delete(set, id)
		if len(set) == 0 {
			delete(r.userConns, c.UserID)
			r.online[c.UserID] = false
			wentOffline = true
		}
	}
	r.mu.Unlock()

	l := log.With().Str("conn_id", id.String()).Str("user_id", c.UserID.String()).Logger()
	if !wentOffline {
		l.Debug().Msg("Connection unregistered, user still online")
		return c, false
	}

	l.Info().Msg("User went offline")
	r.gateway.Broadcast(ctx, domain.NewEvent(domain.EventUserStatusChanged, domain.PresenceEntry{
		UserID: c.UserID,
		Online: false,
	}), id)
	return c, true
}

func (r *Registry) IsOnline(user domain.UserID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.online[user]
}

func (r *Registry) Lookup(id domain.ConnID) (domain.Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[id]
	return c, ok
}

// Connections returns the live connections of a user, in stable order.
func (r *Registry) Connections(user domain.UserID) []domain.ConnID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.ConnID, 0, len(r.userConns[user]))
	for id := range r.userConns[user] {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// SendToUser delivers an event to every live connection of a user and
// returns how many were addressed.
func (r *Registry) SendToUser(ctx context.Context, user domain.UserID, event domain.Event) int {
	conns := r.Connections(user)
	for _, id := range conns {
		if err := r.gateway.Send(ctx, id, event); err != nil {
			log.Debug().Err(err).Str("conn_id", id.String()).Str("event", event.Name).Msg("Event not delivered")
		}
	}
	return len(conns)
}

func (r *Registry) Snapshot() []domain.PresenceEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshotLocked()
}

func (r *Registry) snapshotLocked() []domain.PresenceEntry {
	out := make([]domain.PresenceEntry, 0, len(r.online))
	for user, online := range r.online {
		out = append(out, domain.PresenceEntry{UserID: user, Online: online})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}
