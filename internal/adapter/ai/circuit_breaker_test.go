package ai

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(threshold int, cooldown time.Duration) (*CircuitBreaker, *fakeClock) {
	clk := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	cb := NewCircuitBreaker("ollama", threshold, cooldown)
	cb.now = clk.now
	return cb, clk
}

func TestNewCircuitBreaker_Disabled(t *testing.T) {
	cb := NewCircuitBreaker("ollama", 0, time.Second)
	require.Nil(t, cb)
	assert.True(t, cb.Allow())
	cb.RecordFailure()
	cb.RecordSuccess()
	assert.Equal(t, CircuitClosed, cb.State())
	assert.Equal(t, false, cb.Stats()["enabled"])
}

func TestCircuitBreaker_OpensAtThreshold(t *testing.T) {
	cb, _ := newTestBreaker(3, time.Minute)
	cb.RecordFailure()
	cb.RecordFailure()
	assert.Equal(t, CircuitClosed, cb.State())
	assert.True(t, cb.Allow())

	cb.RecordFailure()
	assert.Equal(t, CircuitOpen, cb.State())
	assert.False(t, cb.Allow())
}

func TestCircuitBreaker_SuccessResetsStreak(t *testing.T) {
	cb, _ := newTestBreaker(2, time.Minute)
	cb.RecordFailure()
	cb.RecordSuccess()
	cb.RecordFailure()
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenSingleProbe(t *testing.T) {
	cb, clk := newTestBreaker(1, 10*time.Second)
	cb.RecordFailure()
	require.Equal(t, CircuitOpen, cb.State())

	clk.advance(9 * time.Second)
	assert.False(t, cb.Allow())

	clk.advance(2 * time.Second)
	assert.True(t, cb.Allow(), "first call after cooldown probes")
	assert.Equal(t, CircuitHalfOpen, cb.State())
	assert.False(t, cb.Allow(), "only one probe at a time")

	cb.RecordSuccess()
	assert.Equal(t, CircuitClosed, cb.State())
	assert.True(t, cb.Allow())
}

func TestCircuitBreaker_FailedProbeReopens(t *testing.T) {
	cb, clk := newTestBreaker(3, 10*time.Second)
	for i := 0; i < 3; i++ {
		cb.RecordFailure()
	}
	clk.advance(11 * time.Second)
	require.True(t, cb.Allow())

	cb.RecordFailure()
	assert.Equal(t, CircuitOpen, cb.State())
	assert.False(t, cb.Allow())

	clk.advance(11 * time.Second)
	assert.True(t, cb.Allow())
}

func TestCircuitBreaker_Stats(t *testing.T) {
	cb, _ := newTestBreaker(5, time.Second)
	cb.RecordSuccess()
	cb.RecordFailure()

	st := cb.Stats()
	assert.Equal(t, "ollama", st["name"])
	assert.Equal(t, "closed", st["state"])
	assert.Equal(t, 1, st["consecutive_failures"])
	assert.Equal(t, 2, st["total_requests"])
	assert.Equal(t, 1, st["total_failures"])
}

func TestCircuitState_String(t *testing.T) {
	assert.Equal(t, "closed", CircuitClosed.String())
	assert.Equal(t, "open", CircuitOpen.String())
	assert.Equal(t, "half-open", CircuitHalfOpen.String())
	assert.Equal(t, "unknown", CircuitState(99).String())
}

func TestCircuitBreaker_ConcurrentAccess(t *testing.T) {
	cb := NewCircuitBreaker("ollama", 3, time.Millisecond)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if cb.Allow() {
					if (i+j)%2 == 0 {
						cb.RecordSuccess()
					} else {
						cb.RecordFailure()
					}
				}
				_ = cb.State()
			}
		}(i)
	}
	wg.Wait()
}
