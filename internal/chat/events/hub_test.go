package events

import (
	"io"
	"testing"
	"time"

	"github.com/BatuhanVarlik/E-Commerce-App-sub002/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHub() *Hub {
	return NewHub(logger.New(logger.Config{Level: "error", Output: io.Discard}))
}

func TestPublishReachesRoomSubscribersOnly(t *testing.T) {
	hub := newTestHub()

	inRoom := hub.Subscribe(1, "a")
	alsoInRoom := hub.Subscribe(1, "b")
	elsewhere := hub.Subscribe(2, "c")

	hub.Publish(EventMessage, 1, "hello")

	for _, sub := range []*Subscriber{inRoom, alsoInRoom} {
		select {
		case ev := <-sub.Events():
			assert.Equal(t, EventMessage, ev.Type)
			assert.Equal(t, uint(1), ev.RoomID)
			assert.Equal(t, "hello", ev.Payload)
		case <-time.After(time.Second):
			t.Fatal("expected event was not delivered")
		}
	}

	select {
	case ev := <-elsewhere.Events():
		t.Fatalf("unexpected event for other room: %+v", ev)
	default:
	}
}

func TestSlowSubscriberDoesNotBlockOthers(t *testing.T) {
	hub := newTestHub()

	slow := hub.Subscribe(1, "slow")
	fast := hub.Subscribe(1, "fast")

	// Overflow the slow subscriber's buffer without draining it.
	for i := 0; i < defaultBuffer+10; i++ {
		hub.Publish(EventTyping, 1, i)
		// Keep the fast subscriber drained so only the slow one overflows.
		select {
		case <-fast.Events():
		default:
		}
	}

	assert.Greater(t, hub.DroppedEvents(), uint64(0))
	assert.Len(t, slow.ch, defaultBuffer, "slow subscriber keeps its buffered prefix")
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	hub := newTestHub()

	sub := hub.Subscribe(1, "a")
	require.Equal(t, 1, hub.SubscriberCount(1))

	hub.Unsubscribe(sub)
	assert.Equal(t, 0, hub.SubscriberCount(1))

	// Channel is closed; receive returns immediately with no event.
	_, open := <-sub.Events()
	assert.False(t, open)

	// Publishing to the now-empty room must not panic.
	hub.Publish(EventMessage, 1, "after")
}

func TestUnsubscribeTwiceIsSafe(t *testing.T) {
	hub := newTestHub()
	sub := hub.Subscribe(1, "a")

	hub.Unsubscribe(sub)
	hub.Unsubscribe(sub)
	hub.Unsubscribe(nil)
}

func TestActiveConnectionsAcrossRooms(t *testing.T) {
	hub := newTestHub()

	a := hub.Subscribe(1, "a")
	hub.Subscribe(1, "b")
	hub.Subscribe(2, "c")

	assert.Equal(t, 3, hub.ActiveConnections())
	hub.Unsubscribe(a)
	assert.Equal(t, 2, hub.ActiveConnections())
}
