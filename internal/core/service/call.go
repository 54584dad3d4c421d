package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Wyydra/ya-signal/internal/core/domain"
	"github.com/Wyydra/ya-signal/internal/core/port"
	"github.com/rs/zerolog/log"
)

const DefaultRingTimeout = 30 * time.Second

// CallService runs the call lifecycle. Only ringing calls are stored; once a
// call is answered its participants are tracked through the call room.
type CallService struct {
	registry    *Registry
	rooms       *RoomService
	gateway     port.RealTimeGateway
	clock       port.Clock
	ringTimeout time.Duration

	mu      sync.Mutex
	pending map[domain.CallID]*pendingCall
}

type pendingCall struct {
	call  domain.Call
	timer port.Timer
}

func NewCallService(registry *Registry, rooms *RoomService, gateway port.RealTimeGateway, clock port.Clock, ringTimeout time.Duration) *CallService {
	if ringTimeout <= 0 {
		ringTimeout = DefaultRingTimeout
	}
	return &CallService{
		registry:    registry,
		rooms:       rooms,
		gateway:     gateway,
		clock:       clock,
		ringTimeout: ringTimeout,
		pending:     make(map[domain.CallID]*pendingCall),
	}
}

// Initiate rings the callee. Admission fails when the callee is offline or
// already has a ringing call younger than the ring window.
func (s *CallService) Initiate(ctx context.Context, callerConn domain.ConnID, req domain.InitiateCallRequest) (domain.Call, error) {
	caller, err := s.connection(callerConn)
	if err != nil {
		return domain.Call{}, err
	}
	if req.To == "" {
		return domain.Call{}, &domain.ProtocolError{Event: domain.EventInitiateCall, Field: "to", Err: domain.ErrMissingField}
	}
	if req.RoomID == "" {
		return domain.Call{}, &domain.ProtocolError{Event: domain.EventInitiateCall, Field: "roomId", Err: domain.ErrMissingField}
	}
	media, err := domain.ParseMediaType(req.Type)
	if err != nil {
		return domain.Call{}, &domain.ProtocolError{Event: domain.EventInitiateCall, Field: "type", Err: err}
	}
	if req.To == caller.UserID {
		return domain.Call{}, &domain.AdmissionError{Callee: req.To, Err: domain.ErrSelfCall}
	}
	if !s.registry.IsOnline(req.To) {
		return domain.Call{}, &domain.AdmissionError{Callee: req.To, Err: domain.ErrCalleeOffline}
	}

	now := s.clock.Now()
	roomID := domain.PairedRoomID(req.RoomID)

	s.mu.Lock()
	var stale []domain.Call
	for id, p := range s.pending {
		if p.call.CalleeID != req.To {
			continue
		}
		if !p.call.Expired(now, s.ringTimeout) {
			s.mu.Unlock()
			return domain.Call{}, &domain.AdmissionError{Callee: req.To, Err: domain.ErrCalleeBusy}
		}
		// The timer is late; expire it here so the callee never has two
		// ringing calls.
		p.timer.Stop()
		delete(s.pending, id)
		stale = append(stale, p.call)
	}
	call := domain.NewCall(caller, req.To, roomID, media, now)
	p := &pendingCall{call: call}
	p.timer = s.clock.AfterFunc(s.ringTimeout, func() {
		s.expire(context.Background(), call.ID)
	})
	s.pending[call.ID] = p
	s.mu.Unlock()

	for _, c := range stale {
		s.notifyTimeout(ctx, c)
	}

	l := log.With().
		Str("call_id", call.ID.String()).
		Str("caller", caller.UserID.String()).
		Str("callee", req.To.String()).
		Str("room_id", roomID.String()).
		Logger()

	delivered := s.registry.SendToUser(ctx, req.To, domain.NewEvent(domain.EventIncomingCall, domain.IncomingCallPayload{
		CallID:           call.ID,
		From:             caller.UserID,
		FromConnectionID: caller.ID,
		RoomID:           roomID,
		Type:             media,
		CallerName:       caller.DisplayName,
	}))
	if delivered == 0 {
		// Callee dropped between the presence check and now.
		s.take(call.ID, func(domain.Call) bool { return true })
		l.Info().Msg("Callee went offline before ringing")
		return domain.Call{}, &domain.AdmissionError{Callee: req.To, Err: domain.ErrCalleeOffline}
	}

	s.send(ctx, caller.ID, domain.NewEvent(domain.EventCallInitiated, domain.CallRefPayload{CallID: call.ID}))
	l.Info().Str("type", string(media)).Msg("Call initiated")
	return call, nil
}

// Accept answers a ringing call from one of the callee's connections and
// binds both parties to the chat room and its call room.
func (s *CallService) Accept(ctx context.Context, conn domain.ConnID, callID domain.CallID) (domain.Call, error) {
	acceptor, err := s.connection(conn)
	if err != nil {
		return domain.Call{}, err
	}
	call, ok := s.take(callID, func(c domain.Call) bool { return c.CalleeID == acceptor.UserID })
	if !ok {
		return domain.Call{}, domain.CallNotFound(callID)
	}
	call.State = domain.CallAccepted

	l := log.With().Str("call_id", call.ID.String()).Str("room_id", call.RoomID.String()).Logger()

	if _, ok := s.registry.Lookup(call.CallerConn); !ok {
		l.Info().Msg("Caller left before the call was accepted")
		s.send(ctx, conn, domain.NewEvent(domain.EventCallEnded, domain.CallEndedPayload{
			CallID: call.ID,
			RoomID: call.RoomID,
			Reason: domain.ReasonPeerDisconnected,
		}))
		return domain.Call{}, &domain.NotFoundError{Kind: "connection", ID: call.CallerConn.String(), Err: domain.ErrConnectionNotFound}
	}

	callRoom := domain.CallRoomID(call.RoomID)
	for _, c := range []domain.ConnID{conn, call.CallerConn} {
		s.rooms.Join(ctx, c, call.RoomID)
		s.rooms.Join(ctx, c, callRoom)
	}

	s.send(ctx, call.CallerConn, domain.NewEvent(domain.EventCallAccepted, domain.CallAcceptedPayload{
		CallID:               call.ID,
		AcceptorConnectionID: conn,
	}))
	s.send(ctx, call.CallerConn, domain.NewEvent(domain.EventJoinCallRoom, domain.JoinCallRoomPayload{
		RoomID:     call.RoomID,
		PeerUserID: call.CalleeID,
		Initiator:  domain.ShouldInitiate(call.CallerID, call.CalleeID),
	}))
	s.send(ctx, conn, domain.NewEvent(domain.EventJoinCallRoom, domain.JoinCallRoomPayload{
		RoomID:     call.RoomID,
		PeerUserID: call.CallerID,
		Initiator:  domain.ShouldInitiate(call.CalleeID, call.CallerID),
	}))
	s.stopRinging(ctx, call, conn, domain.ReasonAnsweredElsewhere)

	call.State = domain.CallActive
	l.Info().Str("acceptor_conn", conn.String()).Msg("Call accepted")
	return call, nil
}

// Reject declines a ringing call. Only the callee may reject.
func (s *CallService) Reject(ctx context.Context, conn domain.ConnID, callID domain.CallID, reason string) (domain.Call, error) {
	rejecter, err := s.connection(conn)
	if err != nil {
		return domain.Call{}, err
	}
	call, ok := s.take(callID, func(c domain.Call) bool { return c.CalleeID == rejecter.UserID })
	if !ok {
		return domain.Call{}, domain.CallNotFound(callID)
	}
	call.State = domain.CallRejected
	if reason == "" {
		reason = domain.ReasonDeclined
	}

	s.send(ctx, call.CallerConn, domain.NewEvent(domain.EventCallRejected, domain.CallRejectedPayload{
		CallID: call.ID,
		Reason: reason,
	}))
	s.stopRinging(ctx, call, conn, reason)

	log.Info().Str("call_id", call.ID.String()).Str("reason", reason).Msg("Call rejected")
	return call, nil
}

// Cancel withdraws a ringing call. Only the caller may cancel.
func (s *CallService) Cancel(ctx context.Context, conn domain.ConnID, callID domain.CallID) (domain.Call, error) {
	canceller, err := s.connection(conn)
	if err != nil {
		return domain.Call{}, err
	}
	call, ok := s.take(callID, func(c domain.Call) bool { return c.CallerID == canceller.UserID })
	if !ok {
		return domain.Call{}, domain.CallNotFound(callID)
	}
	call.State = domain.CallCancelled

	s.registry.SendToUser(ctx, call.CalleeID, domain.NewEvent(domain.EventCallCancelled, domain.CallRefPayload{CallID: call.ID}))

	log.Info().Str("call_id", call.ID.String()).Msg("Call cancelled")
	return call, nil
}

// End terminates a call. The call id is tried first, then any ringing call
// for the room. Answered calls have no record left, so without a match the
// call room alone is told and torn down.
func (s *CallService) End(ctx context.Context, conn domain.ConnID, req domain.EndCallRequest) (domain.Call, error) {
	ender, err := s.connection(conn)
	if err != nil {
		return domain.Call{}, err
	}
	if req.CallID == "" && req.RoomID == "" {
		return domain.Call{}, &domain.ProtocolError{Event: domain.EventEndCall, Field: "callId", Err: domain.ErrMissingField}
	}

	call, found := s.lookupForEnd(ender.UserID, req)

	var chatRoom domain.RoomID
	switch {
	case found:
		chatRoom = call.RoomID
	case req.RoomID != "":
		chatRoom = domain.PairedRoomID(req.RoomID)
	default:
		return domain.Call{}, domain.CallNotFound(req.CallID)
	}
	callRoom := domain.CallRoomID(chatRoom)

	if !found && !s.rooms.IsMember(conn, callRoom) && !s.rooms.IsMember(conn, chatRoom) {
		return domain.Call{}, &domain.NotFoundError{Kind: "room", ID: chatRoom.String(), Err: domain.ErrRoomNotFound}
	}

	payload := domain.CallEndedPayload{
		CallID:  req.CallID,
		RoomID:  chatRoom,
		Reason:  domain.ReasonPeerEnded,
		EndedBy: ender.UserID,
	}
	targets := newConnSet()
	targets.add(s.rooms.Members(callRoom)...)
	if found {
		call.State = domain.CallEnded
		payload.CallID = call.ID
		targets.add(s.rooms.Members(chatRoom)...)
		targets.add(s.registry.Connections(call.CallerID)...)
		targets.add(s.registry.Connections(call.CalleeID)...)
	}

	evt := domain.NewEvent(domain.EventCallEnded, payload)
	for _, c := range targets.list() {
		s.send(ctx, c, evt)
	}
	evicted := s.rooms.Evict(ctx, callRoom)

	log.Info().
		Str("call_id", payload.CallID.String()).
		Str("room_id", chatRoom.String()).
		Bool("had_record", found).
		Int("notified", targets.size()).
		Int("evicted", len(evicted)).
		Msg("Call ended")
	return call, nil
}

// DropConnection ends the ringing calls a departing connection takes part
// in: calls it placed, and calls to its user once the user is offline.
func (s *CallService) DropConnection(ctx context.Context, c domain.Connection, wentOffline bool) int {
	s.mu.Lock()
	var dropped []domain.Call
	for id, p := range s.pending {
		if p.call.CallerConn == c.ID || (wentOffline && p.call.CalleeID == c.UserID) {
			p.timer.Stop()
			delete(s.pending, id)
			dropped = append(dropped, p.call)
		}
	}
	s.mu.Unlock()

	for _, call := range dropped {
		evt := domain.NewEvent(domain.EventCallEnded, domain.CallEndedPayload{
			CallID: call.ID,
			RoomID: call.RoomID,
			Reason: domain.ReasonPeerDisconnected,
		})
		if call.CallerConn == c.ID {
			s.registry.SendToUser(ctx, call.CalleeID, evt)
		} else {
			s.send(ctx, call.CallerConn, evt)
		}
		log.Info().Str("call_id", call.ID.String()).Str("conn_id", c.ID.String()).Msg("Call dropped with connection")
	}
	return len(dropped)
}

// Pending lists ringing calls, oldest first.
func (s *CallService) Pending() []domain.Call {
	s.mu.Lock()
	out := make([]domain.Call, 0, len(s.pending))
	for _, p := range s.pending {
		out = append(out, p.call)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// PendingFor returns the call ringing for user, if any.
func (s *CallService) PendingFor(user domain.UserID) (domain.Call, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.pending {
		if p.call.CalleeID == user {
			return p.call, true
		}
	}
	return domain.Call{}, false
}

// Close stops every ring timer without notifying anyone.
func (s *CallService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, p := range s.pending {
		p.timer.Stop()
		delete(s.pending, id)
	}
}

func (s *CallService) expire(ctx context.Context, id domain.CallID) {
	s.mu.Lock()
	p, ok := s.pending[id]
	if !ok || p.call.State != domain.CallInitiated {
		s.mu.Unlock()
		return
	}
	delete(s.pending, id)
	s.mu.Unlock()

	s.notifyTimeout(ctx, p.call)
}

func (s *CallService) notifyTimeout(ctx context.Context, call domain.Call) {
	s.send(ctx, call.CallerConn, domain.NewEvent(domain.EventCallTimeout, domain.CallRefPayload{CallID: call.ID}))
	s.registry.SendToUser(ctx, call.CalleeID, domain.NewEvent(domain.EventCallEnded, domain.CallEndedPayload{
		CallID: call.ID,
		RoomID: call.RoomID,
		Reason: domain.ReasonTimeExpired,
	}))
	log.Info().Str("call_id", call.ID.String()).Msg("Call timed out")
}

// take removes a ringing call when match accepts it and stops its timer.
func (s *CallService) take(id domain.CallID, match func(domain.Call) bool) (domain.Call, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[id]
	if !ok || !match(p.call) {
		return domain.Call{}, false
	}
	p.timer.Stop()
	delete(s.pending, id)
	return p.call, true
}

func (s *CallService) lookupForEnd(user domain.UserID, req domain.EndCallRequest) (domain.Call, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var p *pendingCall
	if req.CallID != "" {
		p = s.pending[req.CallID]
	}
	if p == nil && req.RoomID != "" {
		room := domain.PairedRoomID(req.RoomID)
		for _, candidate := range s.pending {
			if candidate.call.RoomID == room {
				p = candidate
				break
			}
		}
	}
	if p == nil || !p.call.Involves(user) {
		return domain.Call{}, false
	}
	p.timer.Stop()
	delete(s.pending, p.call.ID)
	return p.call, true
}

// stopRinging tells the callee's other connections that the call was
// settled elsewhere.
func (s *CallService) stopRinging(ctx context.Context, call domain.Call, settledOn domain.ConnID, reason string) {
	evt := domain.NewEvent(domain.EventCallEnded, domain.CallEndedPayload{
		CallID: call.ID,
		RoomID: call.RoomID,
		Reason: reason,
	})
	for _, c := range s.registry.Connections(call.CalleeID) {
		if c != settledOn {
			s.send(ctx, c, evt)
		}
	}
}

func (s *CallService) connection(id domain.ConnID) (domain.Connection, error) {
	c, ok := s.registry.Lookup(id)
	if !ok {
		return domain.Connection{}, &domain.NotFoundError{Kind: "connection", ID: id.String(), Err: domain.ErrConnectionNotFound}
	}
	return c, nil
}

func (s *CallService) send(ctx context.Context, conn domain.ConnID, event domain.Event) {
	if err := s.gateway.Send(ctx, conn, event); err != nil {
		log.Debug().Err(err).Str("conn_id", conn.String()).Str("event", event.Name).Msg("Event not delivered")
	}
}

// connSet keeps insertion order so notifications are deterministic.
type connSet struct {
	seen  map[domain.ConnID]struct{}
	order []domain.ConnID
}

func newConnSet() *connSet {
	return &connSet{seen: make(map[domain.ConnID]struct{})}
}

func (s *connSet) add(ids ...domain.ConnID) {
	for _, id := range ids {
		if _, ok := s.seen[id]; ok {
			continue
		}
		s.seen[id] = struct{}{}
		s.order = append(s.order, id)
	}
}

func (s *connSet) list() []domain.ConnID { return s.order }

func (s *connSet) size() int { return len(s.order) }
