package service

import (
	"context"
	"testing"

	"github.com/Wyydra/ya-signal/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterSendsSnapshotAndBroadcasts(t *testing.T) {
	h := newHarness(t)
	h.connect(t, "a1", "a")
	h.connect(t, "b1", "b")

	snap := h.gw.named("b1", domain.EventOnlineUsersList)
	require.Len(t, snap, 1)
	assert.Equal(t, []domain.PresenceEntry{
		{UserID: "a", Online: true},
		{UserID: "b", Online: true},
	}, snap[0].Data)

	changed := h.gw.named("a1", domain.EventUserStatusChanged)
	require.Len(t, changed, 1)
	assert.Equal(t, domain.PresenceEntry{UserID: "b", Online: true}, changed[0].Data)

	assert.Empty(t, h.gw.named("b1", domain.EventUserStatusChanged), "the new connection gets the snapshot, not its own status")
}

func TestRegistry_RejectsMissingIdentity(t *testing.T) {
	h := newHarness(t)
	h.gw.attach("x1")

	err := h.registry.Register(context.Background(), domain.Connection{ID: "x1"})
	assert.ErrorIs(t, err, domain.ErrMissingIdentity)
	assert.Empty(t, h.registry.Snapshot())
	assert.Empty(t, h.gw.all("x1"))
}

func TestRegistry_UserStaysOnlineWhileAnyConnectionLives(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.connect(t, "a1", "a")
	h.connect(t, "a2", "a")
	h.connect(t, "b1", "b")
	h.gw.reset()

	c, wentOffline := h.registry.Unregister(ctx, "a1")
	assert.Equal(t, domain.UserID("a"), c.UserID)
	assert.False(t, wentOffline)
	assert.True(t, h.registry.IsOnline("a"))
	assert.Empty(t, h.gw.named("b1", domain.EventUserStatusChanged))
	assert.Equal(t, []domain.ConnID{"a2"}, h.registry.Connections("a"))

	_, wentOffline = h.registry.Unregister(ctx, "a2")
	assert.True(t, wentOffline)
	assert.False(t, h.registry.IsOnline("a"))

	changed := h.gw.named("b1", domain.EventUserStatusChanged)
	require.Len(t, changed, 1)
	assert.Equal(t, domain.PresenceEntry{UserID: "a", Online: false}, changed[0].Data)

	assert.Contains(t, h.registry.Snapshot(), domain.PresenceEntry{UserID: "a", Online: false})
}

func TestRegistry_UnregisterUnknownConnection(t *testing.T) {
	h := newHarness(t)
	c, wentOffline := h.registry.Unregister(context.Background(), "ghost")
	assert.Empty(t, c.ID)
	assert.False(t, wentOffline)
}

func TestRegistry_SendToUserReachesEveryConnection(t *testing.T) {
	h := newHarness(t)
	h.connect(t, "b1", "b")
	h.connect(t, "b2", "b")
	h.gw.reset()

	n := h.registry.SendToUser(context.Background(), "b", domain.NewEvent(domain.EventCallCancelled, nil))
	assert.Equal(t, 2, n)
	assert.Len(t, h.gw.named("b1", domain.EventCallCancelled), 1)
	assert.Len(t, h.gw.named("b2", domain.EventCallCancelled), 1)

	assert.Zero(t, h.registry.SendToUser(context.Background(), "nobody", domain.NewEvent(domain.EventCallCancelled, nil)))
}

func TestRegistry_LookupKeepsDisplayName(t *testing.T) {
	h := newHarness(t)
	h.gw.attach("a1")
	require.NoError(t, h.registry.Register(context.Background(), domain.NewConnection("a1", "a", "Alice")))

	c, ok := h.registry.Lookup("a1")
	require.True(t, ok)
	assert.Equal(t, "Alice", c.DisplayName)

	_, ok = h.registry.Lookup("a2")
	assert.False(t, ok)
}
