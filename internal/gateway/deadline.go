package gateway

import (
	"context"
	"sync"
	"time"
)

// deadline cancels a request context once it expires. Unlike
// context.WithTimeout the expiry can be pushed back while the request runs.
type deadline struct {
	mu     sync.Mutex
	timer  *time.Timer
	expiry time.Time
	fired  bool
}

func withDeadline(ctx context.Context, d time.Duration) (context.Context, *deadline, context.CancelFunc) {
	ctx, cancel := context.WithCancelCause(ctx)
	dl := &deadline{expiry: time.Now().Add(d)}
	dl.timer = time.AfterFunc(d, func() {
		dl.mu.Lock()
		dl.fired = true
		dl.mu.Unlock()
		cancel(context.DeadlineExceeded)
	})
	return ctx, dl, func() {
		dl.timer.Stop()
		cancel(context.Canceled)
	}
}

// extend leaves at least d before expiry. It never shortens the deadline and
// does nothing once the context has been cancelled.
func (dl *deadline) extend(d time.Duration) {
	if dl == nil || d <= 0 {
		return
	}
	dl.mu.Lock()
	defer dl.mu.Unlock()

	want := time.Now().Add(d)
	if dl.fired || !want.After(dl.expiry) {
		return
	}
	if !dl.timer.Stop() {
		return
	}
	dl.expiry = want
	dl.timer.Reset(d)
}

func (dl *deadline) remaining() time.Duration {
	if dl == nil {
		return 0
	}
	dl.mu.Lock()
	defer dl.mu.Unlock()
	return time.Until(dl.expiry)
}
