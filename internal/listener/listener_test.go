package listener

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHubFanOut(t *testing.T) {
	hub := NewHub()
	a, cancelA := hub.Subscribe()
	b, cancelB := hub.Subscribe()
	defer cancelA()
	defer cancelB()

	event := ChangeEvent{Table: "matches", Op: "INSERT", ID: "abc"}
	hub.publish(event)

	select {
	case got := <-a:
		assert.Equal(t, event, got)
	case <-time.After(time.Second):
		t.Fatal("subscriber a never received the event")
	}
	select {
	case got := <-b:
		assert.Equal(t, event, got)
	case <-time.After(time.Second):
		t.Fatal("subscriber b never received the event")
	}
}

func TestHubCancelledSubscriberMissesEvents(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.Subscribe()
	cancel()

	hub.publish(ChangeEvent{Table: "players", Op: "UPDATE", ID: "x"})

	select {
	case got := <-ch:
		t.Fatalf("cancelled subscriber received %+v", got)
	default:
	}
}

func TestHubSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	hub := NewHub()
	_, cancel := hub.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		// Overflow the subscriber buffer; publish must never block.
		for i := 0; i < subscriberBuffer*2; i++ {
			hub.publish(ChangeEvent{Table: "notes", Op: "INSERT", ID: "n"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
}
