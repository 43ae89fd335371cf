package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/tgifai/newscast/internal/catalog"
)

var (
	stationsHwd = &StationsRunner{}
	defaultHwd  = &DefaultRunner{}
)

type StationsRunner struct{}

func (r *StationsRunner) cmd() *cli.Command {
	return &cli.Command{
		Name:  "stations",
		Usage: "List catalog stations, optionally for one language",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "lang",
				Aliases: []string{"l"},
				Usage:   "Only list stations for this language",
			},
		},
		Action: r.run,
	}
}

func (r *StationsRunner) run(_ context.Context, cmd *cli.Command) error {
	quietLogs(cmd)
	rt, err := bootstrap(cmd)
	if err != nil {
		return err
	}

	langs := rt.catalog.Languages()
	if lang := catalog.NormalizeLang(cmd.String("lang")); lang != "" {
		langs = []string{lang}
	}

	for _, lang := range langs {
		stations := rt.catalog.ByLang(lang)
		if len(stations) == 0 {
			cWarn.Printf("  no stations for %s\n", lang)
			continue
		}
		def := rt.skill.LangDefault(lang)
		cTitle.Printf("%s\n", lang)
		for _, st := range stations {
			fmt.Printf("  %-12s %s", st.ID, st.DisplayTitle())
			if st.ID == def {
				cSuccess.Print("  (default)")
			}
			cDim.Printf("  %s\n", st.Source)
		}
	}
	return nil
}

type DefaultRunner struct{}

func (r *DefaultRunner) cmd() *cli.Command {
	return &cli.Command{
		Name:  "default",
		Usage: "Manage the default news station",
		Commands: []*cli.Command{
			{
				Name:   "get",
				Usage:  "Show the default news station",
				Action: r.get,
			},
			{
				Name:      "set",
				Usage:     "Choose the station \"play the news\" uses",
				ArgsUsage: "<station-id>",
				Action:    r.set,
			},
			{
				Name:   "clear",
				Usage:  "Go back to the per-language default",
				Action: r.clear,
			},
		},
	}
}

func (r *DefaultRunner) get(_ context.Context, cmd *cli.Command) error {
	quietLogs(cmd)
	rt, err := bootstrap(cmd)
	if err != nil {
		return err
	}

	if id := rt.settings.DefaultFeed(); id != "" {
		fmt.Printf("%s (chosen)\n", id)
		return nil
	}
	if st, ok := rt.skill.DefaultStation(rt.skill.Lang()); ok {
		fmt.Printf("%s (default for %s)\n", st.ID, rt.skill.Lang())
		return nil
	}
	cDim.Println("no default station")
	return nil
}

func (r *DefaultRunner) set(_ context.Context, cmd *cli.Command) error {
	quietLogs(cmd)
	id := cmd.Args().First()
	if id == "" {
		return errors.New("a station id is required, see newscast stations")
	}

	rt, err := bootstrap(cmd)
	if err != nil {
		return err
	}
	st, err := rt.catalog.Lookup(id)
	if err != nil {
		return err
	}
	if err := rt.settings.SetDefaultFeed(st.ID); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	cSuccess.Printf("  ✓ %s is now the default news station\n", st.DisplayTitle())
	return nil
}

func (r *DefaultRunner) clear(_ context.Context, cmd *cli.Command) error {
	quietLogs(cmd)
	rt, err := bootstrap(cmd)
	if err != nil {
		return err
	}
	if err := rt.settings.ClearDefaultFeed(); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	cSuccess.Println("  ✓ default news station cleared")
	return nil
}
