package rtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClockAdvances(t *testing.T) {
	c := New()
	time.Sleep(30 * time.Millisecond)
	ms := c.Milliseconds()
	assert.GreaterOrEqual(t, ms, uint64(25))
	assert.GreaterOrEqual(t, c.Microseconds(), ms*1000)
}

func TestDefaultIsSingleton(t *testing.T) {
	assert.Same(t, Default(), Default())
	assert.Equal(t, Default().StartedAt(), Default().StartedAt())
}

func TestNewAt(t *testing.T) {
	start := time.Now().Add(-time.Second)
	c := NewAt(start)
	assert.GreaterOrEqual(t, c.Milliseconds(), uint64(1000))
	assert.Equal(t, start, c.StartedAt())
}

func TestProcessReferenceIsMonotonic(t *testing.T) {
	a := Milliseconds()
	time.Sleep(10 * time.Millisecond)
	b := Milliseconds()
	assert.GreaterOrEqual(t, b, a)
}
