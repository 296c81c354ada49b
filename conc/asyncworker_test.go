package conc

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsyncWorkerCapturesAndRethrowsOnce(t *testing.T) {
	errHello := errors.New("hello")
	w := NewAsyncWorker(func() (bool, error) {
		return true, errHello
	}, WithRetries(0))
	defer w.Stop()

	w.Start()
	time.Sleep(200 * time.Millisecond)

	err := w.TakeError()
	require.ErrorIs(t, err, errHello)
	assert.NoError(t, w.TakeError(), "the captured error moves out exactly once")
}

func TestAsyncWorkerExitsAfterRetryBudget(t *testing.T) {
	var attempts atomic.Int32
	w := NewAsyncWorker(func() (bool, error) {
		attempts.Add(1)
		return true, errors.New("boom")
	}, WithRetries(2))
	defer w.Stop()

	w.Start()
	// budget 2 means three attempts, with 1s+2s sleeps between them
	deadline := time.Now().Add(5 * time.Second)
	for attempts.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	assert.EqualValues(t, 3, attempts.Load())
}

func TestAsyncWorkerUnstartedDestruction(t *testing.T) {
	w := NewAsyncWorker(func() (bool, error) { return true, nil })

	done := make(chan struct{})
	go func() {
		w.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stopping a never-started worker hung")
	}
}

func TestAsyncWorkerNormalTermination(t *testing.T) {
	var runs atomic.Int32
	w := NewAsyncWorker(func() (bool, error) {
		return runs.Add(1) < 5, nil
	})
	w.Start()
	deadline := time.Now().Add(2 * time.Second)
	for runs.Load() < 5 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	w.Stop()
	assert.EqualValues(t, 5, runs.Load())
	assert.NoError(t, w.TakeError())
}

func TestAsyncWorkerSuccessResetsFailureCount(t *testing.T) {
	var calls atomic.Int32
	w := NewAsyncWorker(func() (bool, error) {
		n := calls.Add(1)
		if n == 1 {
			return true, errors.New("transient")
		}
		return n < 3, nil
	}, WithRetries(5))
	w.Start()
	deadline := time.Now().Add(5 * time.Second)
	for calls.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	w.Stop()
	assert.GreaterOrEqual(t, calls.Load(), int32(3))
}

func TestAsyncWorkerRecoversPanics(t *testing.T) {
	w := NewAsyncWorker(func() (bool, error) {
		panic("kaboom")
	}, WithRetries(0))
	defer w.Stop()

	w.Start()
	time.Sleep(200 * time.Millisecond)
	err := w.TakeError()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")
}
