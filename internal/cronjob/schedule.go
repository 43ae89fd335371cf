package cronjob

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// cronParser is a standard 5-field cron expression parser (minute hour dom month dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

func parseSchedule(spec string) (cron.Schedule, error) {
	sched, err := cronParser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("parse cron expression %q: %w", spec, err)
	}
	return sched, nil
}

// nextRun is the regular schedule, pulled forward to a backoff retry when
// the previous runs warmed nothing.
func nextRun(sched cron.Schedule, from time.Time, consecutiveErr int) time.Time {
	next := sched.Next(from)
	if consecutiveErr <= 0 {
		return next
	}
	if retry := from.Add(backoffDelay(consecutiveErr)); retry.Before(next) {
		return retry
	}
	return next
}

// backoffSteps defines retry delays on consecutive failed runs.
var backoffSteps = []time.Duration{
	30 * time.Second,
	1 * time.Minute,
	5 * time.Minute,
	15 * time.Minute,
	60 * time.Minute, // cap
}

// backoffDelay returns the retry delay for the given consecutive error count.
func backoffDelay(consecutiveErr int) time.Duration {
	idx := consecutiveErr - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(backoffSteps) {
		idx = len(backoffSteps) - 1
	}
	return backoffSteps[idx]
}
