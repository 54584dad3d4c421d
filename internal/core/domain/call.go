package domain

import (
	"fmt"
	"time"
)

type CallState string

const (
	CallNone      CallState = "none"
	CallInitiated CallState = "initiated"
	CallAccepted  CallState = "accepted"
	CallActive    CallState = "active"
	CallEnded     CallState = "ended"
	CallRejected  CallState = "rejected"
	CallCancelled CallState = "cancelled"
	CallTimedOut  CallState = "timed_out"
)

type MediaType string

const (
	MediaAudio MediaType = "audio"
	MediaVideo MediaType = "video"
)

func ParseMediaType(s string) (MediaType, error) {
	switch MediaType(s) {
	case MediaAudio, MediaVideo:
		return MediaType(s), nil
	case "":
		return MediaAudio, nil
	}
	return "", fmt.Errorf("unknown media type %q", s)
}

// End reasons carried on call-ended / call-rejected.
const (
	ReasonTimeExpired       = "time expired"
	ReasonDeclined          = "call declined"
	ReasonPeerEnded         = "peer ended call"
	ReasonPeerDisconnected  = "peer disconnected"
	ReasonAnsweredElsewhere = "answered elsewhere"
)

// Call is one call attempt. It only lives in the pending registry while it
// is ringing.
type Call struct {
	ID         CallID    `json:"callId"`
	CallerID   UserID    `json:"from"`
	CalleeID   UserID    `json:"to"`
	RoomID     RoomID    `json:"roomId"`
	Media      MediaType `json:"type"`
	CallerConn ConnID    `json:"fromConnectionId"`
	CallerName string    `json:"callerName,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	State      CallState `json:"state"`
}

func NewCall(caller Connection, callee UserID, roomID RoomID, media MediaType, now time.Time) Call {
	return Call{
		ID:         NewCallID(),
		CallerID:   caller.UserID,
		CalleeID:   callee,
		RoomID:     roomID,
		Media:      media,
		CallerConn: caller.ID,
		CallerName: caller.DisplayName,
		CreatedAt:  now,
		State:      CallInitiated,
	}
}

// Involves reports whether user is the caller or the callee.
func (c Call) Involves(user UserID) bool {
	return c.CallerID == user || c.CalleeID == user
}

// Expired reports whether the ring window has elapsed at now.
func (c Call) Expired(now time.Time, window time.Duration) bool {
	return now.Sub(c.CreatedAt) >= window
}

// ShouldInitiate decides which side of a peer pair sends the WebRTC offer:
// the greater user id does. Both sides compute the same answer, so they
// never offer at the same time. It is a convention, not an access check.
func ShouldInitiate(selfID, otherID UserID) bool {
	return selfID > otherID
}
