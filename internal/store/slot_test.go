package store

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

func TestSlot_Fires(t *testing.T) {
	clock := clockwork.NewFakeClock()
	var fired atomic.Int32
	slot := NewSlot(clock, func() { fired.Add(1) })

	slot.Arm(time.Second)
	assert.True(t, slot.Armed())

	clock.Advance(999 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())

	clock.Advance(time.Millisecond)
	assert.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.False(t, slot.Armed())
	assert.False(t, slot.Cancel(), "already fired")
}

func TestSlot_RearmReplaces(t *testing.T) {
	clock := clockwork.NewFakeClock()
	var fired atomic.Int32
	slot := NewSlot(clock, func() { fired.Add(1) })

	slot.Arm(time.Second)
	clock.Advance(600 * time.Millisecond)
	slot.Arm(time.Second)
	clock.Advance(600 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())

	clock.Advance(400 * time.Millisecond)
	assert.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, 5*time.Millisecond)

	clock.Advance(5 * time.Second)
	assert.Never(t, func() bool { return fired.Load() > 1 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestSlot_Cancel(t *testing.T) {
	clock := clockwork.NewFakeClock()
	var fired atomic.Int32
	slot := NewSlot(clock, func() { fired.Add(1) })

	assert.False(t, slot.Cancel(), "nothing armed")

	slot.Arm(time.Second)
	assert.True(t, slot.Cancel())
	assert.False(t, slot.Armed())

	clock.Advance(2 * time.Second)
	assert.Never(t, func() bool { return fired.Load() > 0 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestSlot_StaleFiringIgnored(t *testing.T) {
	var fired atomic.Int32
	slot := NewSlot(clockwork.NewFakeClock(), func() { fired.Add(1) })

	slot.Arm(time.Second)
	stale := slot.seq
	slot.Arm(time.Second)

	slot.fire(stale)
	assert.Equal(t, int32(0), fired.Load())
	assert.True(t, slot.Armed())
}
