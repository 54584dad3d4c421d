package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystem_AfterFuncFires(t *testing.T) {
	fired := make(chan struct{})
	New().AfterFunc(time.Millisecond, func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}
}

func TestSystem_StopPreventsFire(t *testing.T) {
	fired := make(chan struct{}, 1)
	timer := New().AfterFunc(50*time.Millisecond, func() { fired <- struct{}{} })

	require.True(t, timer.Stop())

	select {
	case <-fired:
		t.Fatal("stopped timer fired")
	case <-time.After(100 * time.Millisecond):
	}
	assert.False(t, timer.Stop())
}
