package pubsub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type damage struct {
	Lo, Hi int
}

func receive[T any](t *testing.T, ch <-chan Event[T]) Event[T] {
	t.Helper()
	select {
	case event := <-ch:
		return event
	case <-time.After(100 * time.Millisecond):
		require.Fail(t, "timeout waiting for event")
	}
	return Event[T]{}
}

func TestBroker_DeliversDamage(t *testing.T) {
	broker := NewBroker[damage]()
	defer broker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := broker.Subscribe(ctx)

	broker.Publish(DamagedEvent, damage{Lo: 3, Hi: 9})

	event := receive(t, ch)
	require.Equal(t, DamagedEvent, event.Type)
	require.Equal(t, damage{Lo: 3, Hi: 9}, event.Payload)
	require.False(t, event.Timestamp.IsZero())
}

func TestBroker_FanOut(t *testing.T) {
	broker := NewBroker[damage]()
	defer broker.Close()

	ctx := context.Background()
	subs := []<-chan Event[damage]{broker.Subscribe(ctx), broker.Subscribe(ctx)}
	require.Equal(t, 2, broker.SubscriberCount())

	broker.Publish(RebuiltEvent, damage{Hi: 100})

	for _, ch := range subs {
		require.Equal(t, RebuiltEvent, receive(t, ch).Type)
	}
}

func TestBroker_CancelClosesSubscription(t *testing.T) {
	broker := NewBroker[damage]()
	defer broker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch := broker.Subscribe(ctx)
	cancel()

	require.Eventually(t, func() bool { return broker.SubscriberCount() == 0 }, time.Second, 5*time.Millisecond)
	_, ok := <-ch
	require.False(t, ok)
}

func TestBroker_FullSubscriberDropsEvents(t *testing.T) {
	broker := NewBrokerWithBuffer[damage](1)
	defer broker.Close()

	ch := broker.Subscribe(context.Background())
	broker.Publish(DamagedEvent, damage{Lo: 1})
	broker.Publish(DamagedEvent, damage{Lo: 2})

	require.Equal(t, 1, receive(t, ch).Payload.Lo)
	select {
	case <-ch:
		require.Fail(t, "second event should have been dropped")
	default:
	}
}

func TestBroker_CloseIsIdempotent(t *testing.T) {
	broker := NewBroker[damage]()
	ch := broker.Subscribe(context.Background())

	broker.Close()
	broker.Close()

	_, ok := <-ch
	require.False(t, ok)

	late := broker.Subscribe(context.Background())
	_, ok = <-late
	require.False(t, ok, "subscribing after close yields a closed channel")

	broker.Publish(DisabledEvent, damage{})
}
