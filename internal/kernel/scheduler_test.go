package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_OrdersByTimeThenInsertion(t *testing.T) {
	s := NewScheduler()
	var order []string
	s.Schedule(SecondsToVT(2), func() { order = append(order, "b") })
	s.Schedule(SecondsToVT(1), func() { order = append(order, "a") })
	s.Schedule(SecondsToVT(1), func() { order = append(order, "a2") })

	s.Run(SecondsToVT(10))

	require.Equal(t, []string{"a", "a2", "b"}, order)
}

func TestScheduler_CancelIsIdempotent(t *testing.T) {
	s := NewScheduler()
	fired := false
	h := s.Schedule(SecondsToVT(1), func() { fired = true })

	s.Cancel(h)
	s.Cancel(h) // second cancel must be a no-op

	s.Run(SecondsToVT(5))

	assert.False(t, fired)
}

func TestScheduler_NowAdvancesToStopWhenQueueDrains(t *testing.T) {
	s := NewScheduler()
	s.Schedule(SecondsToVT(1), func() {})

	s.Run(SecondsToVT(5))

	assert.Equal(t, SecondsToVT(5), s.Now())
}

func TestScheduler_EventsBeyondStopAreNotRun(t *testing.T) {
	s := NewScheduler()
	ran := false
	s.Schedule(SecondsToVT(10), func() { ran = true })

	s.Run(SecondsToVT(5))

	assert.False(t, ran)
	assert.Equal(t, 1, s.Len(), "unfired event remains queued")
}
