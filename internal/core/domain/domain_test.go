package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShouldInitiate(t *testing.T) {
	assert.True(t, ShouldInitiate("b", "a"))
	assert.False(t, ShouldInitiate("a", "b"))
	assert.False(t, ShouldInitiate("a", "a"))
	assert.NotEqual(t, ShouldInitiate("user-10", "user-9"), ShouldInitiate("user-9", "user-10"))
}

func TestRoomIDs(t *testing.T) {
	assert.Equal(t, RoomID("group-g1"), ChatRoomID(RoomGroup, "g1"))
	assert.Equal(t, RoomID("private-p1"), ChatRoomID(RoomPrivate, "p1"))

	assert.Equal(t, RoomID("call-room1"), CallRoomID("room1"))
	assert.Equal(t, RoomID("call-room1"), CallRoomID("call-room1"))
	assert.Equal(t, RoomID("room1"), PairedRoomID("call-room1"))
	assert.Equal(t, RoomID("room1"), PairedRoomID("room1"))

	assert.True(t, IsCallRoom("call-room1"))
	assert.False(t, IsCallRoom("group-g1"))

	assert.True(t, RoomGroup.Valid())
	assert.False(t, RoomKind("channel").Valid())
}

func TestParseMediaType(t *testing.T) {
	m, err := ParseMediaType("")
	require.NoError(t, err)
	assert.Equal(t, MediaAudio, m)

	m, err = ParseMediaType("video")
	require.NoError(t, err)
	assert.Equal(t, MediaVideo, m)

	_, err = ParseMediaType("fax")
	assert.Error(t, err)
}

func TestCallExpired(t *testing.T) {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c := NewCall(NewConnection("a1", "a", ""), "b", "room1", MediaAudio, start)

	assert.Equal(t, CallInitiated, c.State)
	assert.Equal(t, "a", c.CallerName)
	assert.False(t, c.Expired(start.Add(29900*time.Millisecond), 30*time.Second))
	assert.True(t, c.Expired(start.Add(30*time.Second), 30*time.Second))
	assert.True(t, c.Involves("a"))
	assert.True(t, c.Involves("b"))
	assert.False(t, c.Involves("c"))
}

func TestSignalType(t *testing.T) {
	tests := map[string]SignalType{
		`{"type":"offer","sdp":"v=0"}`:                 SignalOffer,
		`{"type":"answer","sdp":"v=0"}`:                SignalAnswer,
		`{"candidate":"candidate:1","sdpMid":"0"}`:     SignalCandidate,
		`{"type":"ice-candidate","candidate":{"a":1}}`: SignalCandidate,
		`{"foo":"bar"}`:                                SignalUnknown,
		`not json`:                                     SignalUnknown,
	}
	for raw, want := range tests {
		assert.Equal(t, want, Signal(raw).Type(), raw)
	}
}

func TestSignalRoundTripsUntouched(t *testing.T) {
	in := []byte(`{"to":"b1","signal":{"type":"offer","sdp":"v=0\r\n","extra":[1,2]}}`)
	var req SignalRequest
	require.NoError(t, json.Unmarshal(in, &req))
	assert.Equal(t, ConnID("b1"), req.To)

	out, err := json.Marshal(SignalPayload{From: "a1", Signal: req.Signal})
	require.NoError(t, err)
	assert.JSONEq(t, `{"from":"a1","signal":{"type":"offer","sdp":"v=0\r\n","extra":[1,2]}}`, string(out))

	empty, err := json.Marshal(SignalPayload{From: "a1"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"from":"a1","signal":null}`, string(empty))
}

func TestEventWireFormat(t *testing.T) {
	out, err := json.Marshal(NewEvent(EventCallEnded, CallEndedPayload{RoomID: "room1", Reason: ReasonPeerEnded}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"call-ended","data":{"roomId":"room1","reason":"peer ended call"}}`, string(out))

	var in InboundEvent
	require.NoError(t, json.Unmarshal([]byte(`{"event":"accept-call","data":{"callId":"c1"}}`), &in))
	assert.Equal(t, EventAcceptCall, in.Name)
	var req CallIDRequest
	require.NoError(t, json.Unmarshal(in.Data, &req))
	assert.Equal(t, CallID("c1"), req.CallID)
}

func TestErrors(t *testing.T) {
	adm := &AdmissionError{Callee: "b", Err: ErrCalleeBusy}
	assert.Equal(t, "user is busy", adm.Reason())
	assert.True(t, errors.Is(adm, ErrCalleeBusy))

	var nf *NotFoundError
	err := CallNotFound("c9")
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "call", nf.Kind)
	assert.ErrorIs(t, err, ErrCallNotFound)
	assert.Equal(t, "call c9: call not found", err.Error())

	perr := &ProtocolError{Event: EventEndCall, Field: "callId", Err: ErrMissingField}
	assert.Equal(t, "end-call: callId: missing field", perr.Error())

	serr := &StorageError{Op: "create message", Err: errors.New("boom")}
	assert.Equal(t, "storage create message: boom", serr.Error())
}

func TestNewMessageDraft(t *testing.T) {
	d, err := NewMessageDraft(RoomGroup, "g1", "a", "hello")
	require.NoError(t, err)
	assert.Equal(t, RoomID("group-g1"), d.Room())

	_, err = NewMessageDraft(RoomGroup, "g1", "a", " \n")
	assert.ErrorIs(t, err, ErrEmptyMessage)

	_, err = NewMessageDraft("dm", "g1", "a", "hello")
	assert.ErrorIs(t, err, ErrUnknownRoomKind)

	_, err = NewMessageDraft(RoomPrivate, "", "a", "hello")
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestNewConnectionDefaultsDisplayName(t *testing.T) {
	assert.Equal(t, "a", NewConnection("a1", "a", "").DisplayName)
	assert.Equal(t, "Alice", NewConnection("a1", "a", "Alice").DisplayName)
}
