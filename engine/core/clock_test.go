package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClockStartsAtZero(t *testing.T) {
	c := NewClock()
	assert.Zero(t, c.Elapsed())

	// Update on a never-started clock is a no-op.
	c.Update()
	assert.Zero(t, c.Elapsed())
}

func TestClockTracksElapsedTime(t *testing.T) {
	c := NewClock()
	c.Start()
	time.Sleep(10 * time.Millisecond)
	c.Update()

	first := c.Elapsed()
	assert.Greater(t, first, 0.0)

	time.Sleep(10 * time.Millisecond)
	c.Update()
	assert.Greater(t, c.Elapsed(), first)
}

func TestClockStopFreezesElapsed(t *testing.T) {
	c := NewClock()
	c.Start()
	time.Sleep(5 * time.Millisecond)
	c.Update()
	c.Stop()

	frozen := c.Elapsed()
	time.Sleep(5 * time.Millisecond)
	c.Update()
	assert.Equal(t, frozen, c.Elapsed())
}

func TestClockRestartResets(t *testing.T) {
	c := NewClock()
	c.Start()
	time.Sleep(5 * time.Millisecond)
	c.Update()
	assert.Greater(t, c.Elapsed(), 0.0)

	c.Start()
	assert.Zero(t, c.Elapsed())
}

func TestSessionIDsAreUnique(t *testing.T) {
	a := NewSessionID()
	b := NewSessionID()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}
