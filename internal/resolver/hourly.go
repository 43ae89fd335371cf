package resolver

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/tgifai/newscast/internal/pkg/logs"
)

// probeHourly fills tmpl with the current hour in zone and checks the URL
// answers 200, moving back one hour per failed attempt. Date parts roll back
// together, so 00h steps to 23h of the previous day.
func (r *Resolver) probeHourly(ctx context.Context, tmpl, zone string, attempts uint) (string, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return "", fmt.Errorf("load zone %s: %w", zone, err)
	}
	at := r.opts.Now().In(loc)

	var found string
	err = retry.Do(
		func() error {
			uri := hourlyURL(tmpl, at)
			at = at.Add(-time.Hour)
			if err := r.probe(ctx, uri); err != nil {
				return err
			}
			found = uri
			return nil
		},
		retry.Attempts(attempts),
		retry.Delay(0),
		retry.DelayType(retry.FixedDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logs.CtxDebug(ctx, "[resolver] hourly probe %d/%d failed: %v", n+1, attempts, err)
		}),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoURI, err)
	}
	return found, nil
}

func (r *Resolver) probe(ctx context.Context, uri string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return retry.Unrecoverable(err)
	}
	// only the status matters; keep the transfer small
	req.Header.Set("Range", "bytes=0-0")
	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return fmt.Errorf("probe %s: HTTP %d", uri, resp.StatusCode)
	}
	return nil
}
