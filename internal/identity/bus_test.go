package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_PublishReachesAllSubscribers(t *testing.T) {
	bus := NewBus()
	a, cancelA := bus.Subscribe(1)
	b, cancelB := bus.Subscribe(1)
	defer cancelA()
	defer cancelB()

	bus.Publish(SignIn("visitor-1", 7))

	for _, ch := range []<-chan Event{a, b} {
		e := <-ch
		assert.Equal(t, SignedIn, e.Kind)
		assert.Equal(t, "visitor-1", e.VisitorID)
		require.NotNil(t, e.UserID)
		assert.Equal(t, uint(7), *e.UserID)
		assert.False(t, e.At.IsZero())
	}
}

func TestBus_FullSubscriberDoesNotBlock(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.Subscribe(1)
	defer cancel()

	bus.Publish(SignOut("v"))
	bus.Publish(SignOut("v"))

	e := <-ch
	assert.Equal(t, SignedOut, e.Kind)
	assert.Nil(t, e.UserID)
	assert.Len(t, ch, 0)
}

func TestBus_CancelAndClose(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.Subscribe(1)
	cancel()
	cancel()

	_, open := <-ch
	assert.False(t, open)

	other, _ := bus.Subscribe(1)
	bus.Close()
	_, open = <-other
	assert.False(t, open)

	late, _ := bus.Subscribe(1)
	_, open = <-late
	assert.False(t, open)
}
