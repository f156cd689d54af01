package monitoring

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSession struct{ calls atomic.Int32 }

func (c *countingSession) Revalidate(ctx context.Context) error {
	c.calls.Add(1)
	_, ok := ctx.Deadline()
	if !ok {
		panic("revalidation must be bounded")
	}
	return nil
}

func TestNewSessionMonitorRejectsBadSchedule(t *testing.T) {
	_, err := NewSessionMonitor(&countingSession{}, "every now and then", time.Second)
	assert.Error(t, err)
}

func TestSessionMonitorRuns(t *testing.T) {
	s := &countingSession{}
	m, err := NewSessionMonitor(s, "@every 1s", time.Second)
	require.NoError(t, err)
	require.NoError(t, m.Start())
	defer m.Stop()

	assert.Eventually(t, func() bool { return s.calls.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
}

func TestStopWithoutStart(t *testing.T) {
	m, err := NewSessionMonitor(&countingSession{}, "@every 1m", time.Second)
	require.NoError(t, err)
	m.Stop()
}
