package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/urfave/cli/v3"

	"github.com/tgifai/newscast/internal/catalog"
	"github.com/tgifai/newscast/internal/media"
	"github.com/tgifai/newscast/internal/skill"
)

var (
	searchHwd = &SearchRunner{}
	playHwd   = &PlayRunner{}
)

var langFlag = &cli.StringFlag{
	Name:    "lang",
	Aliases: []string{"l"},
	Usage:   "Session language, e.g. en-gb or pt-pt (defaults to skill.lang)",
}

type SearchRunner struct{}

func (r *SearchRunner) cmd() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Rank the stations matching a phrase without playing anything",
		ArgsUsage: "<phrase>",
		Flags: []cli.Flag{
			langFlag,
			&cli.StringFlag{
				Name:    "media",
				Aliases: []string{"m"},
				Usage:   "Requested media type (" + joinTypes() + ")",
				Value:   string(media.News),
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print results as JSON",
			},
			verboseFlag,
		},
		Action: r.run,
	}
}

func (r *SearchRunner) run(ctx context.Context, cmd *cli.Command) error {
	quietLogs(cmd)

	mediaType, err := media.ParseType(cmd.String("media"))
	if err != nil {
		return err
	}

	rt, err := bootstrap(cmd)
	if err != nil {
		return err
	}

	phrase := strings.Join(cmd.Args().Slice(), " ")
	results := rt.skill.Search(ctx, skill.StaticSession(sessionLang(cmd, rt)), phrase, mediaType)

	if cmd.Bool("json") {
		raw, err := sonic.MarshalIndent(results, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(raw))
		return nil
	}

	if len(results) == 0 {
		cWarn.Println("  No playable results.")
		return nil
	}
	for i, res := range results {
		printResult(os.Stdout, res, i == 0)
	}
	return nil
}

type PlayRunner struct{}

func (r *PlayRunner) cmd() *cli.Command {
	return &cli.Command{
		Name:      "play",
		Usage:     "Handle an utterance the way a voice frontend would, e.g. \"play BBC news\"",
		ArgsUsage: "<utterance>",
		Flags:     []cli.Flag{langFlag, verboseFlag},
		Action:    r.run,
	}
}

func (r *PlayRunner) run(ctx context.Context, cmd *cli.Command) error {
	quietLogs(cmd)

	utterance := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	if utterance == "" {
		return errors.New("an utterance is required, e.g. newscast play the news")
	}

	rt, err := bootstrap(cmd)
	if err != nil {
		return err
	}

	host := newConsoleHost(sessionLang(cmd, rt), os.Stdout)
	return rt.skill.Handle(ctx, host, utterance)
}

func sessionLang(cmd *cli.Command, rt *runtime) string {
	if lang := catalog.NormalizeLang(cmd.String("lang")); lang != "" {
		return lang
	}
	return rt.skill.Lang()
}

func joinTypes() string {
	names := make([]string, 0, len(media.SupportedTypes))
	for _, t := range media.SupportedTypes {
		names = append(names, string(t))
	}
	return strings.Join(names, ", ")
}
