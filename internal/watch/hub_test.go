package watch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_DeliversToAllSubscribers(t *testing.T) {
	h := NewHub[int]()
	a, unsubA := h.Subscribe()
	b, unsubB := h.Subscribe()
	defer unsubA()
	defer unsubB()

	h.Publish(1)

	assert.Equal(t, 1, <-a)
	assert.Equal(t, 1, <-b)
}

func TestHub_SlowSubscriberSeesLatest(t *testing.T) {
	h := NewHub[string]()
	ch, unsub := h.Subscribe()
	defer unsub()

	h.Publish("first")
	h.Publish("second")
	h.Publish("third")

	assert.Equal(t, "third", <-ch)
	select {
	case v := <-ch:
		t.Fatalf("unexpected extra value %q", v)
	default:
	}
}

func TestHub_UnsubscribeClosesChannel(t *testing.T) {
	h := NewHub[int]()
	ch, unsub := h.Subscribe()

	unsub()
	unsub()

	_, ok := <-ch
	assert.False(t, ok)

	h.Publish(5)
}

func TestHub_Close(t *testing.T) {
	h := NewHub[int]()
	ch, unsub := h.Subscribe()
	defer unsub()

	h.Close()
	h.Close()

	_, ok := <-ch
	assert.False(t, ok)

	late, lateUnsub := h.Subscribe()
	defer lateUnsub()
	_, ok = <-late
	require.False(t, ok)
}
