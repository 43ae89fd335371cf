package main

import (
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/tgifai/newscast/internal/catalog"
	"github.com/tgifai/newscast/internal/config"
	"github.com/tgifai/newscast/internal/match"
	"github.com/tgifai/newscast/internal/pkg/logs"
	"github.com/tgifai/newscast/internal/pkg/prometheus"
	"github.com/tgifai/newscast/internal/resolver"
	"github.com/tgifai/newscast/internal/settings"
	"github.com/tgifai/newscast/internal/skill"
)

// runtime is the wired service graph shared by every command.
type runtime struct {
	cfg      *config.Config
	catalog  *catalog.Catalog
	resolver *resolver.Resolver
	settings *settings.Store
	skill    *skill.NewsSkill
}

// bootstrap loads the config named by --config (falling back to defaults when
// the file is missing) and wires catalog, resolver, settings and skill.
func bootstrap(cmd *cli.Command) (*runtime, error) {
	cfg, err := config.LoadOrDefault(cmd.String("config"))
	if err != nil {
		return nil, fmt.Errorf("loading config error: %w", err)
	}
	return wire(cfg)
}

func wire(cfg *config.Config) (*runtime, error) {
	cat, err := loadCatalog(cfg.Skill.Catalog)
	if err != nil {
		return nil, err
	}

	res := resolver.New(resolver.Options{
		Timeout:    cfg.Resolver.Timeout(),
		UserAgent:  cfg.Resolver.UserAgent,
		CacheTTL:   cfg.Resolver.TTL(),
		Extractor:  resolver.NewYTDLPExtractor(cfg.Resolver.YTDLPBinary),
		Endpoints:  cfg.Resolver.Endpoints,
		Registerer: prometheus.GetRegistry(),
	})

	store := settings.NewStore(cfg.Settings.Path)
	if err := store.Load(); err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	var weights match.Weights
	if cfg.Skill.Weights != nil {
		weights = *cfg.Skill.Weights
	}

	sk := skill.New(skill.Options{
		Catalog:           cat,
		Resolver:          res,
		Settings:          store,
		Weights:           weights,
		MinConfidence:     cfg.Skill.MinConfidence,
		Lang:              cfg.Skill.Lang,
		LangDefaults:      cfg.Skill.LangDefaults,
		ImageBase:         cfg.Skill.ImageBase,
		SkillIcon:         cfg.Skill.SkillIcon,
		DefaultBackground: cfg.Skill.Background,
		WorldTag:          cfg.Skill.WorldTag,
		Registerer:        prometheus.GetRegistry(),
	})

	return &runtime{
		cfg:      cfg,
		catalog:  cat,
		resolver: res,
		settings: store,
		skill:    sk,
	}, nil
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default()
	}
	cat, err := catalog.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", path, err)
	}
	return cat, nil
}

func initLogger(cfg config.LoggingConfig) error {
	return logs.Init(logs.Options{
		Level:      cfg.Level,
		Format:     cfg.Format,
		Output:     cfg.Output,
		File:       cfg.File,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
	})
}

// quietLogs keeps one-shot commands from mixing log lines into their output
// unless --verbose is set.
func quietLogs(cmd *cli.Command) {
	if cmd.Bool("verbose") {
		logs.SetLogLevel(logs.DebugLevel)
		return
	}
	logs.SetLogLevel(logs.WarnLevel)
}

var verboseFlag = &cli.BoolFlag{
	Name:    "verbose",
	Aliases: []string{"v"},
	Usage:   "Print debug logs",
}
