package service

import (
	"context"
	"sort"
	"sync"

	"github.com/Wyydra/ya-signal/internal/core/domain"
	"github.com/Wyydra/ya-signal/internal/core/port"
	"github.com/rs/zerolog/log"
)

// RoomService owns room membership. Rooms exist while they have members.
type RoomService struct {
	gateway port.RealTimeGateway

	mu        sync.RWMutex
	rooms     map[domain.RoomID]map[domain.ConnID]struct{}
	connRooms map[domain.ConnID]map[domain.RoomID]struct{}
}

func NewRoomService(gateway port.RealTimeGateway) *RoomService {
	return &RoomService{
		gateway:   gateway,
		rooms:     make(map[domain.RoomID]map[domain.ConnID]struct{}),
		connRooms: make(map[domain.ConnID]map[domain.RoomID]struct{}),
	}
}

type departure struct {
	room      domain.RoomID
	remaining []domain.ConnID
}

// Join adds conn to room and reports whether membership changed. A
// connection holds at most one call room, so joining a call room first
// leaves the others.
func (s *RoomService) Join(ctx context.Context, conn domain.ConnID, room domain.RoomID) bool {
	l := log.With().Str("conn_id", conn.String()).Str("room_id", room.String()).Logger()

	s.mu.Lock()
	if _, ok := s.rooms[room][conn]; ok {
		s.mu.Unlock()
		if domain.IsCallRoom(room) {
			l.Warn().Msg("Already in call room, ignoring join")
		} else {
			l.Debug().Msg("Already in room")
		}
		return false
	}

	var departures []departure
	if domain.IsCallRoom(room) {
		for other := range s.connRooms[conn] {
			if !domain.IsCallRoom(other) {
				continue
			}
			remaining, _ := s.removeLocked(conn, other)
			departures = append(departures, departure{room: other, remaining: remaining})
		}
	}

	existing := sortedConns(s.rooms[room])
	members, ok := s.rooms[room]
	if !ok {
		members = make(map[domain.ConnID]struct{})
		s.rooms[room] = members
	}
	members[conn] = struct{}{}
	joined, ok := s.connRooms[conn]
	if !ok {
		joined = make(map[domain.RoomID]struct{})
		s.connRooms[conn] = joined
	}
	joined[room] = struct{}{}
	s.mu.Unlock()

	for _, d := range departures {
		l.Debug().Str("left_room", d.room.String()).Msg("Left previous call room")
		s.notifyLeft(ctx, conn, d)
	}

	s.send(ctx, conn, domain.NewEvent(domain.EventUsersInRoom, existing))
	joinedEvt := domain.NewEvent(domain.EventUserJoined, domain.MemberPayload{ConnectionID: conn})
	for _, other := range existing {
		s.send(ctx, other, joinedEvt)
	}

	l.Debug().Int("members", len(existing)+1).Msg("Joined room")
	return true
}

// Leave removes conn from room and reports whether it was a member.
func (s *RoomService) Leave(ctx context.Context, conn domain.ConnID, room domain.RoomID) bool {
	s.mu.Lock()
	remaining, ok := s.removeLocked(conn, room)
	s.mu.Unlock()
	if !ok {
		return false
	}

	s.notifyLeft(ctx, conn, departure{room: room, remaining: remaining})
	log.Debug().Str("conn_id", conn.String()).Str("room_id", room.String()).Msg("Left room")
	return true
}

// LeaveAll removes conn from every room it is in and returns those rooms.
func (s *RoomService) LeaveAll(ctx context.Context, conn domain.ConnID) []domain.RoomID {
	s.mu.Lock()
	rooms := sortedRooms(s.connRooms[conn])
	departures := make([]departure, 0, len(rooms))
	for _, room := range rooms {
		remaining, _ := s.removeLocked(conn, room)
		departures = append(departures, departure{room: room, remaining: remaining})
	}
	s.mu.Unlock()

	for _, d := range departures {
		s.notifyLeft(ctx, conn, d)
	}
	return rooms
}

// Evict empties a room and returns its former members. Nobody is left to be
// told, so no user-left events are sent.
func (s *RoomService) Evict(ctx context.Context, room domain.RoomID) []domain.ConnID {
	s.mu.Lock()
	members := sortedConns(s.rooms[room])
	for _, conn := range members {
		s.removeLocked(conn, room)
	}
	s.mu.Unlock()

	if len(members) > 0 {
		log.Debug().Str("room_id", room.String()).Int("members", len(members)).Msg("Room evicted")
	}
	return members
}

// Broadcast sends event to the current members of room, skipping except.
func (s *RoomService) Broadcast(ctx context.Context, room domain.RoomID, event domain.Event, except ...domain.ConnID) int {
	sent := 0
	for _, conn := range s.Members(room) {
		if contains(except, conn) {
			continue
		}
		s.send(ctx, conn, event)
		sent++
	}
	return sent
}

func (s *RoomService) Members(room domain.RoomID) []domain.ConnID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedConns(s.rooms[room])
}

func (s *RoomService) RoomsOf(conn domain.ConnID) []domain.RoomID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedRooms(s.connRooms[conn])
}

func (s *RoomService) Exists(room domain.RoomID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.rooms[room]
	return ok
}

func (s *RoomService) IsMember(conn domain.ConnID, room domain.RoomID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.rooms[room][conn]
	return ok
}

// removeLocked drops conn from room and deletes empty index entries.
func (s *RoomService) removeLocked(conn domain.ConnID, room domain.RoomID) ([]domain.ConnID, bool) {
	members, ok := s.rooms[room]
	if !ok {
		return nil, false
	}
	if _, ok := members[conn]; !ok {
		return nil, false
	}
	delete(members, conn)
	if len(members) == 0 {
		delete(s.rooms, room)
	}
	if joined, ok := s.connRooms[conn]; ok {
		delete(joined, room)
		if len(joined) == 0 {
			delete(s.connRooms, conn)
		}
	}
	return sortedConns(members), true
}

func (s *RoomService) notifyLeft(ctx context.Context, conn domain.ConnID, d departure) {
	evt := domain.NewEvent(domain.EventUserLeft, domain.MemberPayload{ConnectionID: conn})
	for _, other := range d.remaining {
		s.send(ctx, other, evt)
	}
}

func (s *RoomService) send(ctx context.Context, conn domain.ConnID, event domain.Event) {
	if err := s.gateway.Send(ctx, conn, event); err != nil {
		log.Debug().Err(err).Str("conn_id", conn.String()).Str("event", event.Name).Msg("Event not delivered")
	}
}

func sortedConns(set map[domain.ConnID]struct{}) []domain.ConnID {
	out := make([]domain.ConnID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func sortedRooms(set map[domain.RoomID]struct{}) []domain.RoomID {
	out := make([]domain.RoomID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func contains(ids []domain.ConnID, id domain.ConnID) bool {
	for _, c := range ids {
		if c == id {
			return true
		}
	}
	return false
}
