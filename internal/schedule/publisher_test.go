package schedule

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckTriggersOnceWhenDue(t *testing.T) {
	var calls int
	p, err := NewPublisher(time.Minute, func() { calls++ }, nil)
	require.NoError(t, err)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return now }

	assert.False(t, p.Check(), "nothing scheduled")

	p.SetNext(now.Add(time.Hour))
	assert.False(t, p.Check())
	assert.Equal(t, 0, calls)

	now = now.Add(2 * time.Hour)
	assert.True(t, p.Check())
	assert.False(t, p.Check())
	assert.Equal(t, 1, calls)
	assert.True(t, p.Next().IsZero())
}

func TestNewPublisherRejectsBadInterval(t *testing.T) {
	_, err := NewPublisher(0, func() {}, nil)
	require.Error(t, err)
}

func TestStartRunsPeriodicCheck(t *testing.T) {
	var calls atomic.Int32
	p, err := NewPublisher(20*time.Millisecond, func() { calls.Add(1) }, nil)
	require.NoError(t, err)

	require.NoError(t, p.Start(context.Background()))
	defer func() { _ = p.Stop() }()

	p.SetNext(time.Now().Add(-time.Second))
	require.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}
