package port

import "time"

type Timer interface {
	// Stop reports whether the call stopped the timer before it fired.
	Stop() bool
}

type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}
