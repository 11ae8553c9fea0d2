package workspace

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBroadcaster_CoalescesPings(t *testing.T) {
	b := NewBroadcaster()
	ch := b.Subscribe()

	b.Broadcast()
	b.Broadcast()
	b.Broadcast()

	assert.Len(t, ch, 1, "a slow listener holds at most one ping")
	<-ch

	b.Unsubscribe(ch)
	_, open := <-ch
	assert.False(t, open)

	b.Unsubscribe(ch) // second unsubscribe is harmless
	b.Broadcast()
}

func TestBroadcaster_Close(t *testing.T) {
	b := NewBroadcaster()
	ch := b.Subscribe()

	b.Close()
	_, open := <-ch
	assert.False(t, open)

	late := b.Subscribe()
	_, open = <-late
	assert.False(t, open, "subscribing after close yields a closed channel")

	b.Broadcast()
	b.Unsubscribe(late)
	b.Close()
}
