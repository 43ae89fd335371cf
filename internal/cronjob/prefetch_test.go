package cronjob

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgifai/newscast/internal/catalog"
)

type countingWarmer struct {
	mu    sync.Mutex
	calls map[string]int
	fail  map[string]bool
	block chan struct{}
}

func (w *countingWarmer) Resolve(ctx context.Context, src catalog.Source) (string, bool) {
	if w.block != nil {
		select {
		case <-w.block:
		case <-ctx.Done():
			return "", false
		}
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.calls == nil {
		w.calls = make(map[string]int)
	}
	w.calls[src.Key()]++
	if w.fail[src.Key()] {
		return "", false
	}
	return "http://resolved/" + src.Key(), true
}

func stations() []*catalog.Station {
	return []*catalog.Station{
		{ID: "TSF", Source: catalog.Custom("tsf")},
		{ID: "NPR", Source: catalog.Custom("npr")},
		{ID: "NPR again", Source: catalog.Custom("npr")},
		{ID: "Static", Source: catalog.Static("http://x/a.mp3")},
		{ID: "Feed", Source: catalog.RSS("http://feed")},
		nil,
	}
}

func TestRunOnce_Counts(t *testing.T) {
	w := &countingWarmer{fail: map[string]bool{"rss:http://feed": true}}
	p, err := New(w, stations, Options{})
	require.NoError(t, err)

	report, err := p.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, report.Total)
	assert.Equal(t, 2, report.Resolved)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 3, report.Skipped)

	assert.Equal(t, 1, w.calls["custom:npr"], "duplicate sources resolve once")
	assert.Len(t, w.calls, 3, "static sources are never resolved")

	st := p.Status()
	require.NotNil(t, st.Last)
	assert.Equal(t, 2, st.Last.Resolved)
	assert.Zero(t, st.ConsecutiveErr)
	assert.False(t, st.Running)
}

func TestRunOnce_Singleton(t *testing.T) {
	w := &countingWarmer{block: make(chan struct{})}
	p, err := New(w, stations, Options{})
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = p.RunOnce(context.Background())
	}()

	require.Eventually(t, func() bool { return p.Status().Running }, time.Second, 5*time.Millisecond)
	_, err = p.RunOnce(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	close(w.block)
	<-done
	assert.False(t, p.Status().Running)
}

func TestRunOnce_AllFailedBacksOff(t *testing.T) {
	w := &countingWarmer{fail: map[string]bool{"custom:tsf": true, "custom:npr": true, "rss:http://feed": true}}
	p, err := New(w, stations, Options{})
	require.NoError(t, err)

	_, err = p.RunOnce(context.Background())
	require.NoError(t, err)
	_, err = p.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, p.Status().ConsecutiveErr)

	w.fail = nil
	_, err = p.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, p.Status().ConsecutiveErr)
}

func TestTick_RunsWhenDue(t *testing.T) {
	var now atomic.Int64
	start := time.Date(2026, 1, 15, 10, 1, 0, 0, time.UTC)
	now.Store(start.UnixNano())
	clock := func() time.Time { return time.Unix(0, now.Load()).UTC() }

	w := &countingWarmer{}
	p, err := New(w, stations, Options{Schedule: "*/15 * * * *", Now: clock})
	require.NoError(t, err)
	p.nextRunAt = p.schedule.Next(clock())
	assert.WithinDuration(t, time.Date(2026, 1, 15, 10, 15, 0, 0, time.UTC), p.nextRunAt, 0)

	p.tick(context.Background())
	assert.Nil(t, p.Status().Last, "not due yet")

	now.Store(time.Date(2026, 1, 15, 10, 15, 5, 0, time.UTC).UnixNano())
	p.tick(context.Background())
	require.NotNil(t, p.Status().Last)
	assert.WithinDuration(t, time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC), p.Status().NextRunAt, 0)
}

func TestStartStop(t *testing.T) {
	p, err := New(&countingWarmer{}, stations, Options{TickInterval: time.Millisecond})
	require.NoError(t, err)
	require.NoError(t, p.Start(context.Background()))
	assert.False(t, p.Status().NextRunAt.IsZero())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, p.Stop(ctx))
}

func TestNew_Validates(t *testing.T) {
	_, err := New(&countingWarmer{}, stations, Options{Schedule: "not a cron"})
	assert.Error(t, err)
	_, err = New(nil, stations, Options{})
	assert.Error(t, err)
}

func TestNextRun(t *testing.T) {
	sched, err := parseSchedule("0 * * * *")
	require.NoError(t, err)
	from := time.Date(2026, 1, 15, 10, 10, 0, 0, time.UTC)

	assert.WithinDuration(t, time.Date(2026, 1, 15, 11, 0, 0, 0, time.UTC), nextRun(sched, from, 0), 0)
	assert.WithinDuration(t, from.Add(30*time.Second), nextRun(sched, from, 1), 0)
	assert.WithinDuration(t, from.Add(15*time.Minute), nextRun(sched, from, 4), 0)
	// backoff never delays past the regular slot
	assert.WithinDuration(t, time.Date(2026, 1, 15, 11, 0, 0, 0, time.UTC), nextRun(sched, from, 9), 0)
}

func TestBackoffDelay(t *testing.T) {
	tests := []struct {
		consecutiveErr int
		want           time.Duration
	}{
		{0, 30 * time.Second},
		{1, 30 * time.Second},
		{2, 1 * time.Minute},
		{3, 5 * time.Minute},
		{5, 60 * time.Minute},
		{100, 60 * time.Minute},
	}
	for _, tt := range tests {
		if got := backoffDelay(tt.consecutiveErr); got != tt.want {
			t.Errorf("backoffDelay(%d) = %v, want %v", tt.consecutiveErr, got, tt.want)
		}
	}
}
