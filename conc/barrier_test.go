package conc

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBarrierReleasesOnLastArrival(t *testing.T) {
	const n = 4
	b := NewBarrier(n)

	var released atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < n-1; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Wait()
			released.Add(1)
		}()
	}

	time.Sleep(50 * time.Millisecond)
	assert.EqualValues(t, 0, released.Load(), "waiters must not pass before the last arrival")
	assert.False(t, b.Ready())

	b.Wait()
	wg.Wait()
	assert.EqualValues(t, n-1, released.Load())
	assert.True(t, b.Ready())
}

func TestBarrierWaitForTimeoutKeepsCount(t *testing.T) {
	b := NewBarrier(3)

	require.False(t, b.WaitFor(20*time.Millisecond))
	require.False(t, b.WaitFor(20*time.Millisecond))
	require.False(t, b.Ready(), "timed-out arrivals must be taken back")

	// two real arrivals plus one timed one complete the barrier
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Wait()
		}()
	}
	assert.True(t, b.WaitFor(2*time.Second))
	wg.Wait()
}

func TestBarrierResetRearms(t *testing.T) {
	b := NewBarrier(1)
	b.Wait()
	require.True(t, b.Ready())

	b.Reset()
	require.False(t, b.Ready())
	// the re-armed single-party barrier completes on its next arrival
	require.True(t, b.WaitFor(10*time.Millisecond))
}

func TestBarrierCloseUnblocksStragglers(t *testing.T) {
	b := NewBarrier(5)
	done := make(chan struct{})
	go func() {
		b.Wait()
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)
	b.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close did not release the waiter")
	}
}
