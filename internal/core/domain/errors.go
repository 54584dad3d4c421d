package domain

import (
	"errors"
	"fmt"
)

var (
	ErrMissingIdentity    = errors.New("missing user identity")
	ErrCalleeOffline      = errors.New("user is offline")
	ErrCalleeBusy         = errors.New("user is busy")
	ErrSelfCall           = errors.New("cannot call yourself")
	ErrCallNotFound       = errors.New("call not found")
	ErrRoomNotFound       = errors.New("room not found")
	ErrConnectionNotFound = errors.New("connection not found")
	ErrMissingField       = errors.New("missing field")
	ErrEmptyMessage       = errors.New("message text cannot be empty")
	ErrUnknownRoomKind    = errors.New("unknown room kind")
	ErrUnknownEvent       = errors.New("unknown event")
)

// AdmissionError rejects a call before it rings (callee offline or busy).
type AdmissionError struct {
	Callee UserID
	Err    error
}

func (e *AdmissionError) Error() string {
	return fmt.Sprintf("call to %s refused: %v", e.Callee, e.Err)
}

func (e *AdmissionError) Unwrap() error { return e.Err }

// Reason is the user-facing text sent on call-failed.
func (e *AdmissionError) Reason() string {
	return e.Err.Error()
}

// NotFoundError usually means the request lost a race with a concurrent
// termination.
type NotFoundError struct {
	Kind string
	ID   string
	Err  error
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Kind, e.ID, e.Err)
}

func (e *NotFoundError) Unwrap() error { return e.Err }

type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// ProtocolError is a malformed inbound event.
type ProtocolError struct {
	Event string
	Field string
	Err   error
}

func (e *ProtocolError) Error() string {
	switch {
	case e.Event != "" && e.Field != "":
		return fmt.Sprintf("%s: %s: %v", e.Event, e.Field, e.Err)
	case e.Field != "":
		return fmt.Sprintf("%s: %v", e.Field, e.Err)
	case e.Event != "":
		return fmt.Sprintf("%s: %v", e.Event, e.Err)
	}
	return e.Err.Error()
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// CallNotFound is returned for unknown call ids and for calls that belong to
// someone else.
func CallNotFound(id CallID) error {
	return &NotFoundError{Kind: "call", ID: id.String(), Err: ErrCallNotFound}
}
