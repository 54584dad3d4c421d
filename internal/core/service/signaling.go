package service

import (
	"context"
	"fmt"

	"github.com/Wyydra/ya-signal/internal/core/domain"
	"github.com/rs/zerolog/log"
)

// SignalingService ties a connection's lifecycle to the registry, the call
// state machine and room membership. Disconnect is the only place that
// cleans up across all three.
type SignalingService struct {
	Registry *Registry
	Rooms    *RoomService
	Calls    *CallService
}

func NewSignalingService(registry *Registry, rooms *RoomService, calls *CallService) *SignalingService {
	return &SignalingService{
		Registry: registry,
		Rooms:    rooms,
		Calls:    calls,
	}
}

func (s *SignalingService) Connect(ctx context.Context, c domain.Connection) error {
	if err := s.Registry.Register(ctx, c); err != nil {
		return fmt.Errorf("register connection: %w", err)
	}
	return nil
}

// JoinRoom handles an explicit join-room request.
func (s *SignalingService) JoinRoom(ctx context.Context, conn domain.ConnID, room domain.RoomID) error {
	if room == "" {
		return &domain.ProtocolError{Event: domain.EventJoinRoom, Field: "roomId", Err: domain.ErrMissingField}
	}
	s.Rooms.Join(ctx, conn, room)
	return nil
}

// Disconnect tears down everything conn took part in. It runs on the
// teardown path, so it logs instead of failing and never panics.
func (s *SignalingService) Disconnect(ctx context.Context, conn domain.ConnID) {
	l := log.With().Str("conn_id", conn.String()).Logger()
	defer func() {
		if r := recover(); r != nil {
			l.Error().Interface("panic", r).Msg("Recovered during disconnect cleanup")
		}
	}()

	c, wentOffline := s.Registry.Unregister(ctx, conn)
	if c.ID == "" {
		c = domain.Connection{ID: conn}
	}

	dropped := s.Calls.DropConnection(ctx, c, wentOffline)
	rooms := s.Rooms.LeaveAll(ctx, conn)

	// An answered call has no record left; its peers learn about the hangup
	// through the call room.
	for _, room := range rooms {
		if !domain.IsCallRoom(room) {
			continue
		}
		s.Rooms.Broadcast(ctx, room, domain.NewEvent(domain.EventCallEnded, domain.CallEndedPayload{
			RoomID:  domain.PairedRoomID(room),
			Reason:  domain.ReasonPeerDisconnected,
			EndedBy: c.UserID,
		}))
	}

	l.Info().
		Str("user_id", c.UserID.String()).
		Bool("went_offline", wentOffline).
		Int("calls_dropped", dropped).
		Int("rooms_left", len(rooms)).
		Msg("Connection cleaned up")
}
