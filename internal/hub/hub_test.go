package hub

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citypulse/trafficd/internal/events"
)

func testEvent(name string) events.Event {
	return events.Event{Type: name, Payload: map[string]string{"type": name}}
}

func TestHubSubscribePublish(t *testing.T) {
	t.Run("delivers to all subscribers in publish order", func(t *testing.T) {
		h := New()
		a := h.Subscribe()
		b := h.Subscribe()
		require.Equal(t, 2, h.Len())

		h.Publish(testEvent("first"))
		h.Publish(testEvent("second"))

		for _, sub := range []*Subscriber{a, b} {
			assert.Equal(t, "first", (<-sub.C).Type)
			assert.Equal(t, "second", (<-sub.C).Type)
		}
	})

	t.Run("unsubscribed observer stops receiving", func(t *testing.T) {
		h := New()
		sub := h.Subscribe()
		h.Unsubscribe(sub.ID)
		assert.Equal(t, 0, h.Len())

		select {
		case <-sub.Done:
		default:
			t.Fatal("Done should be closed after Unsubscribe")
		}

		// Publishing after removal must not panic or deliver.
		h.Publish(testEvent("late"))
		_, open := <-sub.C
		assert.False(t, open)
	})

	t.Run("unknown id is a no-op", func(t *testing.T) {
		h := New()
		sub := h.Subscribe()
		h.Unsubscribe(sub.ID)
		h.Unsubscribe(sub.ID)
	})
}

func TestHubSlowSubscriber(t *testing.T) {
	t.Run("full buffer does not block the publisher", func(t *testing.T) {
		h := NewWithBuffer(1)
		slow := h.Subscribe()
		fast := h.Subscribe()

		done := make(chan struct{})
		go func() {
			defer close(done)
			for i := 0; i < 10; i++ {
				h.Publish(testEvent("tick"))
			}
		}()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("publisher blocked on a slow subscriber")
		}

		// Slow subscriber got at most its buffer; the event was dropped,
		// not queued, and the subscriber was not removed.
		assert.Equal(t, 2, h.Len())
		assert.Len(t, slow.C, 1)

		// Drain the fast subscriber concurrently next time around.
		for len(fast.C) > 0 {
			<-fast.C
		}
	})
}

func TestHubConcurrentAccess(t *testing.T) {
	t.Run("publish and unsubscribe race safely", func(t *testing.T) {
		h := New()
		subs := make([]*Subscriber, 20)
		for i := range subs {
			subs[i] = h.Subscribe()
		}

		stop := make(chan struct{})
		go func() {
			for {
				select {
				case <-stop:
					return
				default:
					h.Publish(testEvent("tick"))
				}
			}
		}()

		for _, sub := range subs {
			h.Unsubscribe(sub.ID)
		}
		close(stop)
		assert.Equal(t, 0, h.Len())
	})
}
