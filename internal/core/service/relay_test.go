package service

import (
	"context"
	"testing"

	"github.com/Wyydra/ya-signal/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelayService_ForwardsVerbatim(t *testing.T) {
	h := newHarness(t)
	h.gw.attach("a1")
	h.gw.attach("b1")

	offer := domain.Signal(`{"type":"offer","sdp":"v=0\r\n"}`)
	require.NoError(t, h.relay.Relay(context.Background(), "a1", "b1", offer))

	got := h.gw.named("b1", domain.EventWebRTCSignal)
	require.Len(t, got, 1)
	payload := got[0].Data.(domain.SignalPayload)
	assert.Equal(t, domain.ConnID("a1"), payload.From)
	assert.JSONEq(t, string(offer), string(payload.Signal))
	assert.Empty(t, h.gw.all("a1"))
}

func TestRelayService_UnknownTargetIsDropped(t *testing.T) {
	h := newHarness(t)
	h.gw.attach("a1")

	err := h.relay.Relay(context.Background(), "a1", "gone", domain.Signal(`{"candidate":"candidate:1 1 udp 1 10.0.0.1 5000 typ host"}`))
	assert.NoError(t, err)
	assert.Empty(t, h.gw.all("a1"))
}

func TestRelayService_MissingTarget(t *testing.T) {
	h := newHarness(t)
	err := h.relay.Relay(context.Background(), "a1", "", domain.Signal(`{}`))
	var perr *domain.ProtocolError
	assert.ErrorAs(t, err, &perr)
}
