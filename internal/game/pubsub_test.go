package game_test

import (
	"testing"

	"github.com/dom/mafia-server/internal/game"
	"github.com/dom/mafia-server/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroker_PrivateDelivery(t *testing.T) {
	b := game.NewBroker(8, testutil.NewManualClock())
	alice, bob := uuid.New(), uuid.New()
	subA := b.Subscribe(alice)
	subB := b.Subscribe(bob)

	b.Publish("everyone", nil, uuid.Nil)
	b.Publish("secret", nil, alice)

	assert.Equal(t, []string{"everyone", "secret"}, names(drain(subA)))
	assert.Equal(t, []string{"everyone"}, names(drain(subB)))
}

func TestBroker_FullBufferDropsWithoutBlocking(t *testing.T) {
	b := game.NewBroker(2, testutil.NewManualClock())
	sub := b.Subscribe(uuid.New())

	for i := 0; i < 5; i++ {
		b.Publish("tick", i, uuid.Nil)
	}

	events := drain(sub)
	require.Len(t, events, 2)
	assert.Equal(t, uint64(1), events[0].Seq)
	assert.Equal(t, uint64(5), b.Seq(), "dropped events still consume a sequence number")
}

func TestBroker_Close(t *testing.T) {
	b := game.NewBroker(4, testutil.NewManualClock())
	sub := b.Subscribe(uuid.New())
	sub.Close()
	sub.Close()
	assert.Equal(t, 0, b.Len())

	live := b.Subscribe(uuid.New())
	b.Close()
	_, open := <-live.Events()
	assert.False(t, open)

	late := b.Subscribe(uuid.New())
	_, open = <-late.Events()
	assert.False(t, open, "subscribing after close yields a closed subscription")

	assert.NotPanics(t, func() { b.Publish("after", nil, uuid.Nil) })
}
