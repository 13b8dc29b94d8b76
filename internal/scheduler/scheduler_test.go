package scheduler

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swapmap/internal/analytics"
	"swapmap/internal/station"
)

type fakeService struct {
	refreshCalls atomic.Int64
	refreshErr   error
	orderCalls   atomic.Int64
}

func (f *fakeService) RefreshStations(context.Context) ([]station.Station, error) {
	f.refreshCalls.Add(1)
	return nil, f.refreshErr
}

func (f *fakeService) PendingOrders(context.Context) ([]station.Order, error) {
	f.orderCalls.Add(1)
	return nil, nil
}

type fakeToken struct {
	healthCalls    atomic.Int64
	healthErr      error
	keepAliveCalls atomic.Int64
}

func (f *fakeToken) Health(context.Context) error {
	f.healthCalls.Add(1)
	return f.healthErr
}

func (f *fakeToken) KeepAlive(context.Context) error {
	f.keepAliveCalls.Add(1)
	return nil
}

func newTestTracker(t *testing.T) *analytics.Tracker {
	t.Helper()
	tr, err := analytics.NewTracker(filepath.Join(t.TempDir(), "a.jsonl"), 100, zerolog.Nop())
	require.NoError(t, err)
	return tr
}

func shortIntervals() Intervals {
	return Intervals{
		StationPoll: 20 * time.Millisecond,
		OrderPoll:   30 * time.Millisecond,
		KeepAlive:   30 * time.Millisecond,
	}
}

func TestFailingTickDoesNotStopSchedule(t *testing.T) {
	svc := &fakeService{refreshErr: errors.New("supplier down")}
	s := New(svc, &fakeToken{}, newTestTracker(t), shortIntervals(), zerolog.Nop())

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	// Every tick fails, yet ticks keep firing on schedule.
	assert.Eventually(t, func() bool {
		return svc.refreshCalls.Load() >= 3
	}, 2*time.Second, 10*time.Millisecond)
}

func TestAllLoopsRunIndependently(t *testing.T) {
	svc := &fakeService{}
	token := &fakeToken{}
	s := New(svc, token, newTestTracker(t), shortIntervals(), zerolog.Nop())

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return svc.refreshCalls.Load() >= 2 &&
			svc.orderCalls.Load() >= 2 &&
			token.keepAliveCalls.Load() >= 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestUnhealthyStartupRetriesOnceThenStarts(t *testing.T) {
	svc := &fakeService{}
	token := &fakeToken{healthErr: errors.New("down")}
	s := New(svc, token, newTestTracker(t), shortIntervals(), zerolog.Nop())
	s.healthRetryDelay = 30 * time.Millisecond

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	// One check, one retry, then loops start despite the supplier being down.
	assert.Eventually(t, func() bool {
		return token.healthCalls.Load() == 2 && svc.refreshCalls.Load() >= 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStopFlushesAnalytics(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.jsonl")
	tracker, err := analytics.NewTracker(path, 100, zerolog.Nop())
	require.NoError(t, err)

	s := New(&fakeService{}, &fakeToken{}, tracker, shortIntervals(), zerolog.Nop())
	require.NoError(t, s.Start(context.Background()))

	tracker.Record(analytics.Event{StationID: "EG-1"})
	s.Stop()

	// Reopening the file proves the buffered event hit disk.
	reopened, err := analytics.NewTracker(path, 100, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 1, reopened.Summarize().Total)
}
