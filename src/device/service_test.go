package device

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestServiceRunsCallsWhileSending(t *testing.T) {
	s := NewService()
	events := make(chan Event)
	ran := make(chan struct{})

	// the receiver needs a call served before it reads the event
	go func() {
		s.Do(func() { close(ran) })
		<-events
	}()

	assert.True(t, s.Send(context.Background(), events, Added{Which: 0}))
	select {
	case <-ran:
	default:
		t.Fatal("call was not run")
	}
}

func TestServiceSendCancelled(t *testing.T) {
	s := NewService()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, s.Send(ctx, make(chan Event), Removed{ID: 1}))
}

func TestServiceServeUntilDone(t *testing.T) {
	s := NewService()
	done := make(chan struct{})
	count := 0

	go func() {
		defer close(done)
		for i := 0; i < 3; i++ {
			s.Do(func() { count++ })
		}
	}()

	served := make(chan struct{})
	go func() {
		defer close(served)
		s.Serve(done)
	}()

	select {
	case <-served:
	case <-time.After(time.Second):
		t.Fatal("Serve did not return")
	}
	assert.Equal(t, 3, count)
}

func TestServiceRunPendingWithoutCalls(t *testing.T) {
	s := NewService()
	s.RunPending()
}
