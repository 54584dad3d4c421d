package domain

import "strings"

// RoomID names a broadcast group. Chat rooms used for message fan-out are
// "<kind>-<id>", call rooms are "call-<chatId>" and the chat room a call is
// paired with is the bare chat id.
type RoomID string

const callRoomPrefix = "call-"

type RoomKind string

const (
	RoomGroup   RoomKind = "group"
	RoomPrivate RoomKind = "private"
)

func (k RoomKind) Valid() bool {
	return k == RoomGroup || k == RoomPrivate
}

func (id RoomID) String() string {
	return string(id)
}

// ChatRoomID returns the fan-out room for a group or private chat.
func ChatRoomID(kind RoomKind, chatID string) RoomID {
	return RoomID(string(kind) + "-" + chatID)
}

// CallRoomID returns the ephemeral call room paired with roomID.
func CallRoomID(roomID RoomID) RoomID {
	if IsCallRoom(roomID) {
		return roomID
	}
	return RoomID(callRoomPrefix + string(roomID))
}

// PairedRoomID is the inverse of CallRoomID.
func PairedRoomID(callRoom RoomID) RoomID {
	return RoomID(strings.TrimPrefix(string(callRoom), callRoomPrefix))
}

func IsCallRoom(id RoomID) bool {
	return strings.HasPrefix(string(id), callRoomPrefix)
}
