package collector

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chalkan3-sloth/gridcore/rtime"
	"github.com/chalkan3-sloth/gridcore/xerr"
)

func intp(v int) *int { return &v }

func TestTableBasicCompletion(t *testing.T) {
	q := New[int](3)
	assert.False(t, q.Stopped())

	// empty block times out with a full-width row and zero filled
	row, filled := q.Get(0, 100*time.Millisecond)
	assert.Len(t, row, 3)
	assert.Equal(t, 0, filled)

	p := intp(1)
	require.NoError(t, q.Insert(0, 0, p))
	require.NoError(t, q.Insert(0, 1, p))

	row, filled = q.Get(0, 100*time.Millisecond)
	assert.Len(t, row, 3)
	assert.Equal(t, 2, filled)

	require.NoError(t, q.Insert(0, 2, p))

	clock := rtime.New()
	row, filled = q.Get(0, 20*time.Second)
	assert.Equal(t, 3, filled)
	assert.Len(t, row, 3)
	assert.Less(t, clock.Milliseconds(), uint64(100), "a complete block returns immediately")
}

func TestTableTimeoutReturnsPartial(t *testing.T) {
	q := New[int](2)
	require.NoError(t, q.Insert(0, 0, intp(0)))
	require.NoError(t, q.Insert(0, 1, intp(1)))
	require.NoError(t, q.Insert(2, 0, intp(2)))
	require.NoError(t, q.Insert(2, 1, intp(3)))
	require.NoError(t, q.Insert(4, 0, intp(4)))
	require.NoError(t, q.Insert(4, 1, intp(5)))

	row, filled := q.Get(0, time.Second)
	assert.Len(t, row, 2)
	assert.Equal(t, 2, filled)

	clock := rtime.New()
	row, filled = q.Get(1, time.Second)
	assert.Len(t, row, 2)
	assert.Equal(t, 0, filled)
	elapsed := clock.Milliseconds()
	assert.GreaterOrEqual(t, elapsed, uint64(900), "incomplete block waits out the deadline")

	row, filled = q.Get(2, time.Second)
	assert.Len(t, row, 2)
	assert.Equal(t, 2, filled)
}

func TestTableAllOps(t *testing.T) {
	q := New[int](2)
	require.NoError(t, q.Insert(0, 0, intp(0)))
	require.NoError(t, q.Insert(0, 1, intp(1)))
	require.NoError(t, q.Insert(1, 0, intp(2)))
	require.NoError(t, q.Insert(1, 1, intp(3)))
	require.NoError(t, q.Insert(2, 1, intp(4)))

	// overwrite: the last write wins
	require.NoError(t, q.Insert(0, 0, intp(9)))

	assert.Equal(t, 0, q.MissingColumns(0))
	assert.Equal(t, 0, q.MissingColumns(1))
	assert.Equal(t, 1, q.MissingColumns(2))
	assert.Equal(t, 2, q.MissingColumns(7), "unknown blocks miss everything")

	q.Erase(1)
	assert.Equal(t, 0, q.MissingColumns(0))
	assert.Equal(t, 2, q.MissingColumns(1))
	assert.Equal(t, 1, q.MissingColumns(2))

	row, filled := q.Get(0, time.Millisecond)
	require.Equal(t, 2, filled)
	assert.Equal(t, 9, *row[0])
	assert.Equal(t, 1, *row[1])

	_, filled = q.Get(1, time.Millisecond)
	assert.Equal(t, 0, filled)

	row, filled = q.Get(2, time.Millisecond)
	assert.Equal(t, 1, filled)
	assert.Equal(t, 4, *row[1])

	assert.EqualValues(t, 2, q.MaxBlockID())
	assert.Equal(t, 2, q.NColumns())
	assert.NotZero(t, q.LastUpdated(0))
	assert.Zero(t, q.LastUpdated(99))
}

func TestTableInsertOutOfRange(t *testing.T) {
	q := New[int](2)
	err := q.Insert(0, 2, intp(1))
	require.Error(t, err)
	assert.Equal(t, xerr.CodeInvalidArgument, xerr.CodeOf(err))
}

func TestTableConcurrentProducersAndConsumer(t *testing.T) {
	const blocks = 500
	q := New[int](3)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < blocks; i++ {
			for col := 0; col < 3; col++ {
				_ = q.Insert(uint64(i), uint64(col), intp(3*i+col))
			}
		}
	}()

	for i := 0; i < blocks; i++ {
		row, filled := q.Get(uint64(i), 30*time.Second)
		require.Equal(t, 3, filled, "block %d", i)
		for col := 0; col < 3; col++ {
			require.Equal(t, 3*i+col, *row[col])
		}
	}
	wg.Wait()
}

func TestTableDelayedProducer(t *testing.T) {
	q := New[int](2)
	go func() {
		time.Sleep(100 * time.Millisecond)
		_ = q.Insert(7, 0, intp(1))
		_ = q.Insert(7, 1, intp(2))
	}()
	row, filled := q.Get(7, 5*time.Second)
	assert.Equal(t, 2, filled)
	assert.Equal(t, 1, *row[0])
	assert.Equal(t, 2, *row[1])
}

func TestTableStopReleasesWaiters(t *testing.T) {
	q := New[int](2)
	require.NoError(t, q.Insert(0, 0, intp(1)))

	done := make(chan int, 1)
	go func() {
		_, filled := q.Get(0, time.Minute)
		done <- filled
	}()
	time.Sleep(50 * time.Millisecond)
	q.Stop()

	select {
	case filled := <-done:
		assert.Equal(t, 1, filled, "after stop Get returns whatever is present")
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not release the waiter")
	}
	assert.True(t, q.Stopped())
}

func TestTableNilInsertDoesNotComplete(t *testing.T) {
	q := New[int](2)
	require.NoError(t, q.Insert(0, 0, intp(1)))
	require.NoError(t, q.Insert(0, 1, nil))
	_, filled := q.Get(0, 50*time.Millisecond)
	assert.Equal(t, 1, filled)
}
