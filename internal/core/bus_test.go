package core

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// memBus delivers every publish to every subscriber, the publisher included.
type memBus struct {
	mu   sync.Mutex
	subs []func(BusMessage)
}

func (b *memBus) Publish(_ context.Context, msg BusMessage) error {
	b.mu.Lock()
	subs := append([]func(BusMessage){}, b.subs...)
	b.mu.Unlock()
	for _, fn := range subs {
		fn(msg)
	}
	return nil
}

func (b *memBus) Subscribe(ctx context.Context, fn func(BusMessage)) error {
	b.mu.Lock()
	b.subs = append(b.subs, fn)
	b.mu.Unlock()
	<-ctx.Done()
	return ctx.Err()
}

func (b *memBus) subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

func TestHubRelaysAcrossInstances(t *testing.T) {
	bus := &memBus{}
	hubA := startHub(t, HubOptions{Bus: bus, InstanceID: "a"})
	hubB := startHub(t, HubOptions{Bus: bus, InstanceID: "b"})
	require.Eventually(t, func() bool { return bus.subscribers() == 2 }, time.Second, 5*time.Millisecond)

	alice := newTestSession("r1", "alice", "Alice")
	bob := newTestSession("r1", "bob", "Bob")
	carol := newTestSession("r2", "carol", "Carol")
	require.NoError(t, hubA.Connect(alice))
	require.NoError(t, hubB.Connect(bob))
	require.NoError(t, hubB.Connect(carol))
	mustEvent(t, alice.Events, EventPresence)
	mustEvent(t, bob.Events, EventPresence)
	mustEvent(t, carol.Events, EventPresence)

	payload := json.RawMessage(`{"startX":1,"startY":1,"endX":2,"endY":2}`)
	require.NoError(t, hubA.Dispatch(alice, EventDrawSegment, payload))

	ev := mustEvent(t, bob.Events, EventDrawSegment)
	require.Equal(t, "alice", ev.From)
	require.JSONEq(t, string(payload), string(ev.Payload))

	// The sender's own instance does not echo the event back.
	mustNoEvent(t, alice.Events, EventDrawSegment, 100*time.Millisecond)
	mustNoEvent(t, carol.Events, EventDrawSegment, 50*time.Millisecond)

	// Presence stays local to each instance.
	require.Len(t, hubA.Participants("r1"), 1)
	require.Len(t, hubB.Participants("r1"), 1)
}
