// Package cronjob warms the resolver cache on a cron schedule so that the
// stations users are most likely to ask for resolve without a network round
// trip.
package cronjob

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/tgifai/newscast/internal/catalog"
	"github.com/tgifai/newscast/internal/pkg/logs"
)

const (
	DefaultSchedule = "*/15 * * * *"

	defaultTickInterval  = 15 * time.Second
	defaultTimeout       = 2 * time.Minute
	defaultMaxConcurrent = 4
)

// ErrAlreadyRunning is returned by RunOnce while another run is in flight.
var ErrAlreadyRunning = errors.New("prefetch already running")

// Warmer resolves a source, filling whatever cache sits behind it.
type Warmer interface {
	Resolve(ctx context.Context, src catalog.Source) (string, bool)
}

// TargetFunc lists the stations a run should warm.
type TargetFunc func() []*catalog.Station

type Options struct {
	// Schedule is a 5-field cron expression.
	Schedule string
	// Timeout bounds one run.
	Timeout       time.Duration
	MaxConcurrent int
	TickInterval  time.Duration
	Now           func() time.Time
}

// Report summarizes one run.
type Report struct {
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Total     int           `json:"total"`
	Resolved  int           `json:"resolved"`
	Failed    int           `json:"failed"`
	// Skipped counts static sources and duplicates, which need no warming.
	Skipped int `json:"skipped"`
}

type Status struct {
	Running        bool      `json:"running"`
	NextRunAt      time.Time `json:"next_run_at"`
	ConsecutiveErr int       `json:"consecutive_err"`
	Last           *Report   `json:"last,omitempty"`
}

type Prefetcher struct {
	opts     Options
	schedule cron.Schedule
	warmer   Warmer
	targets  TargetFunc

	running atomic.Bool // singleton guard

	mu             sync.Mutex
	nextRunAt      time.Time
	consecutiveErr int
	last           *Report

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(warmer Warmer, targets TargetFunc, opts Options) (*Prefetcher, error) {
	if warmer == nil || targets == nil {
		return nil, errors.New("prefetch needs a warmer and a target list")
	}
	if opts.Schedule == "" {
		opts.Schedule = DefaultSchedule
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = defaultMaxConcurrent
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = defaultTickInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	sched, err := parseSchedule(opts.Schedule)
	if err != nil {
		return nil, err
	}

	return &Prefetcher{
		opts:     opts,
		schedule: sched,
		warmer:   warmer,
		targets:  targets,
	}, nil
}

// Start runs the scheduling loop in the background. The first run happens
// at the next schedule slot.
func (p *Prefetcher) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)

	p.mu.Lock()
	p.cancel = cancel
	p.nextRunAt = p.schedule.Next(p.opts.Now())
	next := p.nextRunAt
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.loop(ctx)
	}()

	logs.CtxInfo(ctx, "[prefetch] scheduler started (schedule=%q, next=%s)", p.opts.Schedule, next.Format(time.RFC3339))
	return nil
}

// Stop cancels the loop and waits for an in-flight run to finish.
func (p *Prefetcher) Stop(ctx context.Context) error {
	p.mu.Lock()
	cancel := p.cancel
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		logs.CtxWarn(ctx, "[prefetch] stop timed out waiting for the running prefetch")
		return ctx.Err()
	}
	logs.CtxInfo(ctx, "[prefetch] scheduler stopped")
	return nil
}

func (p *Prefetcher) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := Status{
		Running:        p.running.Load(),
		NextRunAt:      p.nextRunAt,
		ConsecutiveErr: p.consecutiveErr,
	}
	if p.last != nil {
		last := *p.last
		st.Last = &last
	}
	return st
}

// RunOnce warms every target now. Overlapping calls return
// ErrAlreadyRunning without doing any work.
func (p *Prefetcher) RunOnce(ctx context.Context) (Report, error) {
	if !p.running.CompareAndSwap(false, true) {
		return Report{}, ErrAlreadyRunning
	}
	defer p.running.Store(false)

	ctx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
	defer cancel()

	report := Report{StartedAt: p.opts.Now()}
	stations := p.targets()
	report.Total = len(stations)

	seen := make(map[string]struct{}, len(stations))
	work := make([]*catalog.Station, 0, len(stations))
	for _, st := range stations {
		if st == nil || !st.Source.Dynamic() {
			report.Skipped++
			continue
		}
		key := st.Source.Key()
		if _, dup := seen[key]; dup {
			report.Skipped++
			continue
		}
		seen[key] = struct{}{}
		work = append(work, st)
	}

	var (
		resolved atomic.Int64
		wg       sync.WaitGroup
		sem      = make(chan struct{}, p.opts.MaxConcurrent)
	)
	for _, st := range work {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			continue
		}
		wg.Add(1)
		go func(st *catalog.Station) {
			defer wg.Done()
			defer func() { <-sem }()
			sctx := logs.WithStation(ctx, st.ID)
			if _, ok := p.warmer.Resolve(sctx, st.Source); ok {
				resolved.Add(1)
				return
			}
			logs.CtxDebug(sctx, "[prefetch] %s did not resolve", st.Source)
		}(st)
	}
	wg.Wait()

	report.Resolved = int(resolved.Load())
	report.Failed = len(work) - report.Resolved
	report.Duration = p.opts.Now().Sub(report.StartedAt)

	p.mu.Lock()
	if len(work) > 0 && report.Resolved == 0 {
		p.consecutiveErr++
	} else {
		p.consecutiveErr = 0
	}
	p.last = &report
	p.mu.Unlock()

	logs.CtxInfo(ctx, "[prefetch] warmed %d/%d sources (%d skipped) in %s",
		report.Resolved, len(work), report.Skipped, report.Duration)
	return report, nil
}

func (p *Prefetcher) loop(ctx context.Context) {
	ticker := time.NewTicker(p.opts.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Prefetcher) tick(ctx context.Context) {
	now := p.opts.Now()

	p.mu.Lock()
	due := !p.nextRunAt.After(now)
	p.mu.Unlock()
	if !due {
		return
	}

	if _, err := p.RunOnce(ctx); err != nil {
		logs.CtxDebug(ctx, "[prefetch] skipped scheduled run: %v", err)
	}

	p.mu.Lock()
	p.nextRunAt = nextRun(p.schedule, now, p.consecutiveErr)
	p.mu.Unlock()
}
