package service

import (
	"context"
	"testing"

	"github.com/Wyydra/ya-signal/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomService_JoinLeaveRoundTrip(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.gw.attach("a1")
	h.gw.attach("b1")

	assert.True(t, h.rooms.Join(ctx, "a1", "room1"))
	first := h.gw.named("a1", domain.EventUsersInRoom)
	require.Len(t, first, 1)
	assert.Empty(t, first[0].Data)

	assert.True(t, h.rooms.Join(ctx, "b1", "room1"))
	existing := h.gw.named("b1", domain.EventUsersInRoom)
	require.Len(t, existing, 1)
	assert.Equal(t, []domain.ConnID{"a1"}, existing[0].Data)

	joined := h.gw.named("a1", domain.EventUserJoined)
	require.Len(t, joined, 1)
	assert.Equal(t, domain.MemberPayload{ConnectionID: "b1"}, joined[0].Data)

	assert.Equal(t, []domain.ConnID{"a1", "b1"}, h.rooms.Members("room1"))

	assert.True(t, h.rooms.Leave(ctx, "b1", "room1"))
	left := h.gw.named("a1", domain.EventUserLeft)
	require.Len(t, left, 1)
	assert.Equal(t, domain.MemberPayload{ConnectionID: "b1"}, left[0].Data)
	assert.Equal(t, []domain.ConnID{"a1"}, h.rooms.Members("room1"))

	assert.True(t, h.rooms.Leave(ctx, "a1", "room1"))
	assert.False(t, h.rooms.Exists("room1"))
	assert.Empty(t, h.rooms.RoomsOf("a1"))
}

func TestRoomService_RejoinIsNoop(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.gw.attach("a1")

	assert.True(t, h.rooms.Join(ctx, "a1", "call-room1"))
	assert.False(t, h.rooms.Join(ctx, "a1", "call-room1"))
	assert.Len(t, h.gw.named("a1", domain.EventUsersInRoom), 1)
	assert.Equal(t, []domain.ConnID{"a1"}, h.rooms.Members("call-room1"))
}

func TestRoomService_LeaveWhenNotMember(t *testing.T) {
	h := newHarness(t)
	assert.False(t, h.rooms.Leave(context.Background(), "a1", "room1"))
}

func TestRoomService_OneCallRoomPerConnection(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	for _, id := range []domain.ConnID{"a1", "b1"} {
		h.gw.attach(id)
	}

	h.rooms.Join(ctx, "a1", "room1")
	h.rooms.Join(ctx, "a1", "call-room1")
	h.rooms.Join(ctx, "b1", "call-room1")
	h.gw.reset()

	h.rooms.Join(ctx, "a1", "call-room2")

	assert.Equal(t, []domain.RoomID{"call-room2", "room1"}, h.rooms.RoomsOf("a1"))
	assert.Equal(t, []domain.ConnID{"b1"}, h.rooms.Members("call-room1"))

	left := h.gw.named("b1", domain.EventUserLeft)
	require.Len(t, left, 1)
	assert.Equal(t, domain.MemberPayload{ConnectionID: "a1"}, left[0].Data)
}

func TestRoomService_LeaveAll(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.gw.attach("a1")
	h.gw.attach("b1")

	h.rooms.Join(ctx, "a1", "group-g1")
	h.rooms.Join(ctx, "a1", "call-room1")
	h.rooms.Join(ctx, "b1", "group-g1")
	h.gw.reset()

	rooms := h.rooms.LeaveAll(ctx, "a1")
	assert.Equal(t, []domain.RoomID{"call-room1", "group-g1"}, rooms)
	assert.Empty(t, h.rooms.RoomsOf("a1"))
	assert.False(t, h.rooms.Exists("call-room1"))
	assert.Len(t, h.gw.named("b1", domain.EventUserLeft), 1)
}

func TestRoomService_EvictSendsNothing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.gw.attach("a1")
	h.gw.attach("b1")
	h.rooms.Join(ctx, "a1", "call-room1")
	h.rooms.Join(ctx, "b1", "call-room1")
	h.gw.reset()

	members := h.rooms.Evict(ctx, "call-room1")
	assert.Equal(t, []domain.ConnID{"a1", "b1"}, members)
	assert.False(t, h.rooms.Exists("call-room1"))
	assert.Empty(t, h.gw.all("a1"))
	assert.Empty(t, h.gw.all("b1"))
	assert.Empty(t, h.rooms.RoomsOf("a1"))
}

func TestRoomService_BroadcastSkipsExcept(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	for _, id := range []domain.ConnID{"a1", "b1", "c1"} {
		h.gw.attach(id)
		h.rooms.Join(ctx, id, "group-g1")
	}
	h.gw.reset()

	n := h.rooms.Broadcast(ctx, "group-g1", domain.NewEvent(domain.EventNewGroupMessage, nil), "b1")
	assert.Equal(t, 2, n)
	assert.Len(t, h.gw.named("a1", domain.EventNewGroupMessage), 1)
	assert.Empty(t, h.gw.named("b1", domain.EventNewGroupMessage))
	assert.Len(t, h.gw.named("c1", domain.EventNewGroupMessage), 1)
}
