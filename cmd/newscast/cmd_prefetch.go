package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/tgifai/newscast/internal/config"
	"github.com/tgifai/newscast/internal/cronjob"
)

var prefetchHwd = &PrefetchRunner{}

type PrefetchRunner struct{}

func (r *PrefetchRunner) cmd() *cli.Command {
	return &cli.Command{
		Name:  "prefetch",
		Usage: "Warm the stream cache for the default stations",
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Resolve every prefetch target once and report",
				Flags:  []cli.Flag{verboseFlag},
				Action: r.run,
			},
			{
				Name:   "enable",
				Usage:  "Turn on scheduled prefetch in the gateway",
				Action: r.toggle(true),
			},
			{
				Name:   "disable",
				Usage:  "Turn off scheduled prefetch in the gateway",
				Action: r.toggle(false),
			},
			{
				Name:      "schedule",
				Usage:     "Set the prefetch cron expression, e.g. \"*/15 * * * *\"",
				ArgsUsage: "<cron-expr>",
				Action:    r.schedule,
			},
		},
	}
}

func (r *PrefetchRunner) run(ctx context.Context, cmd *cli.Command) error {
	quietLogs(cmd)
	rt, err := bootstrap(cmd)
	if err != nil {
		return err
	}

	p, err := newPrefetcher(rt)
	if err != nil {
		return err
	}
	report, err := p.RunOnce(ctx)
	if err != nil {
		return err
	}

	cSuccess.Printf("  ✓ resolved %d, failed %d, skipped %d of %d targets in %s\n",
		report.Resolved, report.Failed, report.Skipped, report.Total, report.Duration.Round(time.Millisecond))
	return nil
}

func newPrefetcher(rt *runtime) (*cronjob.Prefetcher, error) {
	p, err := cronjob.New(rt.resolver, rt.skill.PrefetchTargets, prefetchOptions(rt.cfg.Prefetch))
	if err != nil {
		return nil, fmt.Errorf("create prefetcher: %w", err)
	}
	return p, nil
}

func prefetchOptions(cfg config.PrefetchConfig) cronjob.Options {
	return cronjob.Options{
		Schedule: cfg.Schedule,
		Timeout:  time.Duration(cfg.TimeoutSec) * time.Second,
	}
}

func (r *PrefetchRunner) toggle(enabled bool) cli.ActionFunc {
	return func(_ context.Context, cmd *cli.Command) error {
		path, err := updatePrefetch(cmd.String("config"), func(p *config.PrefetchConfig) {
			p.Enabled = &enabled
		})
		if err != nil {
			return err
		}
		state := "disabled"
		if enabled {
			state = "enabled"
		}
		cSuccess.Printf("  ✓ prefetch %s in %s\n", state, path)
		return nil
	}
}

func (r *PrefetchRunner) schedule(_ context.Context, cmd *cli.Command) error {
	expr := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	if expr == "" {
		return errors.New("a cron expression is required")
	}
	path, err := updatePrefetch(cmd.String("config"), func(p *config.PrefetchConfig) {
		p.Schedule = expr
	})
	if err != nil {
		return err
	}
	cSuccess.Printf("  ✓ prefetch schedule %q saved to %s\n", expr, path)
	return nil
}

// updatePrefetch edits the prefetch section of the config file on disk. The
// change is validated before anything is written, and a backup of the
// previous file is kept.
func updatePrefetch(path string, edit func(*config.PrefetchConfig)) (string, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return "", fmt.Errorf("no config at %s, run \"newscast onboard\" first", path)
	}

	cfg, err := config.Load(path)
	if err != nil {
		return "", fmt.Errorf("loading config error: %w", err)
	}
	hash, err := config.Hash()
	if err != nil {
		return "", err
	}

	next := cfg.Prefetch
	edit(&next)
	if err = config.ApplyWithCAS("prefetch", &next, hash); err != nil {
		return "", err
	}
	if err = config.Save(); err != nil {
		return "", fmt.Errorf("save config: %w", err)
	}
	return config.Path(), nil
}
