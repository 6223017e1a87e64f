package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRefresher struct {
	calls    atomic.Int32
	lookback atomic.Int32
}

func (r *stubRefresher) RefreshAll(_ context.Context, lookbackDays int) error {
	r.lookback.Store(int32(lookbackDays))
	r.calls.Add(1)
	return errors.New("MSFT: scraping failed")
}

func TestIntervalJobRunsRefresh(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	refresher := &stubRefresher{}
	require.NoError(t, s.NewIntervalJob("refresh prices", RefreshTask(refresher, 5), time.Hour, true))

	s.Start()
	defer s.Stop()

	require.Eventually(t, func() bool { return refresher.calls.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(5), refresher.lookback.Load())
}

func TestPanickingJobDoesNotStopScheduler(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	var runs atomic.Int32
	require.NoError(t, s.NewIntervalJob("flaky", func(context.Context) error {
		runs.Add(1)
		panic("boom")
	}, 20*time.Millisecond, true))

	s.Start()
	defer s.Stop()

	require.Eventually(t, func() bool { return runs.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestNewIntervalJobRejectsInvalidInterval(t *testing.T) {
	s, err := New()
	require.NoError(t, err)
	s.Start()
	defer s.Stop()

	assert.Error(t, s.NewIntervalJob("bad", func(context.Context) error { return nil }, 0, false))
}
