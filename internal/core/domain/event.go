package domain

import "encoding/json"

// Inbound event names (client -> server).
const (
	EventInitiateCall       = "initiate-call"
	EventAcceptCall         = "accept-call"
	EventRejectCall         = "reject-call"
	EventCancelCall         = "cancel-call"
	EventEndCall            = "end-call"
	EventJoinRoom           = "join-room"
	EventWebRTCSignal       = "webrtc-signal"
	EventJoinGroupChat      = "join-group-chat"
	EventLeaveGroupChat     = "leave-group-chat"
	EventSendGroupMessage   = "send-group-message"
	EventJoinPrivateChat    = "join-private-chat"
	EventLeavePrivateChat   = "leave-private-chat"
	EventSendPrivateMessage = "send-private-message"
)

// Outbound event names (server -> client).
const (
	EventOnlineUsersList   = "online-users-list"
	EventUserStatusChanged = "user-status-changed"
	EventIncomingCall      = "incoming-call"
	EventCallInitiated     = "call-initiated"
	EventCallAccepted      = "call-accepted"
	EventCallRejected      = "call-rejected"
	EventCallCancelled     = "call-cancelled"
	EventCallFailed        = "call-failed"
	EventCallTimeout       = "call-timeout"
	EventCallEnded         = "call-ended"
	EventJoinCallRoom      = "join-call-room"
	EventUsersInRoom       = "users-in-room"
	EventUserJoined        = "user-joined"
	EventUserLeft          = "user-left"
	EventNewGroupMessage   = "new-group-message"
	EventNewPrivateMessage = "new-private-message"
	EventErrorMessage      = "error-message"
)

// Event is one frame on the socket, in either direction.
type Event struct {
	Name string `json:"event"`
	Data any    `json:"data,omitempty"`
}

func NewEvent(name string, data any) Event {
	return Event{Name: name, Data: data}
}

// InboundEvent keeps the payload raw until the event name is known.
type InboundEvent struct {
	Name string          `json:"event"`
	Data json.RawMessage `json:"data,omitempty"`
}

type IncomingCallPayload struct {
	CallID           CallID    `json:"callId"`
	From             UserID    `json:"from"`
	FromConnectionID ConnID    `json:"fromConnectionId"`
	RoomID           RoomID    `json:"roomId"`
	Type             MediaType `json:"type"`
	CallerName       string    `json:"callerName"`
}

type CallRefPayload struct {
	CallID CallID `json:"callId"`
}

type CallAcceptedPayload struct {
	CallID               CallID `json:"callId"`
	AcceptorConnectionID ConnID `json:"acceptorConnectionId"`
}

type CallRejectedPayload struct {
	CallID CallID `json:"callId"`
	Reason string `json:"reason"`
}

type CallFailedPayload struct {
	Reason string `json:"reason"`
}

type CallEndedPayload struct {
	CallID  CallID `json:"callId,omitempty"`
	RoomID  RoomID `json:"roomId,omitempty"`
	Reason  string `json:"reason"`
	EndedBy UserID `json:"endedBy,omitempty"`
}

type JoinCallRoomPayload struct {
	RoomID     RoomID `json:"roomId"`
	PeerUserID UserID `json:"peerUserId,omitempty"`
	Initiator  bool   `json:"initiator"`
}

type MemberPayload struct {
	ConnectionID ConnID `json:"connectionId"`
}

type SignalPayload struct {
	From   ConnID `json:"from"`
	Signal Signal `json:"signal"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// Inbound payloads.

type InitiateCallRequest struct {
	To     UserID `json:"to"`
	RoomID RoomID `json:"roomId"`
	Type   string `json:"type"`
}

type CallIDRequest struct {
	CallID CallID `json:"callId"`
}

type RejectCallRequest struct {
	CallID CallID `json:"callId"`
	Reason string `json:"reason,omitempty"`
}

type EndCallRequest struct {
	CallID CallID `json:"callId,omitempty"`
	RoomID RoomID `json:"roomId,omitempty"`
}

type JoinRoomRequest struct {
	RoomID RoomID `json:"roomId"`
}

type SignalRequest struct {
	To     ConnID `json:"to"`
	Signal Signal `json:"signal"`
}

type GroupChatRequest struct {
	GroupID string `json:"groupId"`
}

type PrivateChatRequest struct {
	ChatID string `json:"chatId"`
}

type GroupMessageRequest struct {
	GroupID  string `json:"groupId"`
	SenderID UserID `json:"senderId"`
	Text     string `json:"text"`
}

type PrivateMessageRequest struct {
	ChatID   string `json:"chatId"`
	SenderID UserID `json:"senderId"`
	Text     string `json:"text"`
}
