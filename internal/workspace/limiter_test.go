package workspace

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlightGuard_TryAcquireRelease(t *testing.T) {
	g := newFlightGuard()

	require.False(t, g.Busy(), "new guard should be idle")
	require.True(t, g.TryAcquire(), "first TryAcquire should succeed")
	assert.True(t, g.Busy())
	assert.False(t, g.TryAcquire(), "second TryAcquire should fail while the slot is held")

	g.Release()

	assert.False(t, g.Busy())
	assert.True(t, g.TryAcquire(), "TryAcquire should succeed again after Release")
	g.Release()
}

func TestFlightGuard_OnlyOneWinner(t *testing.T) {
	g := newFlightGuard()

	var (
		wg      sync.WaitGroup
		winners atomic.Int32
	)
	start := make(chan struct{})
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if g.TryAcquire() {
				winners.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.EqualValues(t, 1, winners.Load())
}

func TestFlightGuard_WaitForDrain(t *testing.T) {
	g := newFlightGuard()

	// idle guard drains immediately
	require.NoError(t, g.WaitForDrain(context.Background()))

	g.TryAcquire()
	go func() {
		time.Sleep(20 * time.Millisecond)
		g.Release()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, g.WaitForDrain(ctx))
}

func TestFlightGuard_WaitForDrainTimeout(t *testing.T) {
	g := newFlightGuard()
	g.TryAcquire()
	defer g.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, g.WaitForDrain(ctx), context.DeadlineExceeded)
}
