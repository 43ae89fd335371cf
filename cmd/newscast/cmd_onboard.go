package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/tgifai/newscast/internal/catalog"
	"github.com/tgifai/newscast/internal/config"
	"github.com/tgifai/newscast/internal/consts"
	"github.com/tgifai/newscast/internal/pkg/utils"
)

var onboardHwd = &OnboardRunner{}

type OnboardRunner struct {
	scanner *bufio.Scanner
}

func (r *OnboardRunner) cmd() *cli.Command {
	return &cli.Command{
		Name:  "onboard",
		Usage: "Interactive setup wizard that writes a starter config",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Overwrite an existing config without asking",
			},
		},
		Action: r.run,
	}
}

// ── channel metadata ───────────────────────────────────────────────

type channelPrompt struct {
	Key      string
	Label    string
	Required bool
}

type channelMeta struct {
	Type    string
	Prompts []channelPrompt
}

var channelOptions = []channelMeta{
	{
		Type:    "telegram",
		Prompts: []channelPrompt{{Key: "token", Label: "Telegram Bot Token", Required: true}},
	},
	{
		Type: "http",
	},
	{
		Type: "none",
	},
}

// ── main flow ──────────────────────────────────────────────────────

func (r *OnboardRunner) run(_ context.Context, cmd *cli.Command) error {
	r.scanner = bufio.NewScanner(os.Stdin)

	cfgPath := cmd.String("config")
	overwrite := cmd.Bool("force")
	if _, err := os.Stat(cfgPath); err == nil && !overwrite {
		cWarn.Printf("  Config already exists at %s\n", cfgPath)
		if !r.confirm("  Overwrite existing config?", false) {
			fmt.Println("  Aborted.")
			return nil
		}
		overwrite = true
		fmt.Println()
	}

	r.stepWelcome()

	cat, err := catalog.Default()
	if err != nil {
		return err
	}

	lang := r.stepLanguage(cat)
	channelID, chCfg := r.stepChannel(lang)
	prefetch := r.stepPrefetch()

	return r.stepConfirm(cfgPath, overwrite, lang, channelID, chCfg, prefetch)
}

func (r *OnboardRunner) stepWelcome() {
	fmt.Println()
	cTitle.Println("  newscast")
	cDim.Println("  News broadcasts from stations around the world")
	fmt.Println()
}

// ── step 1: language ───────────────────────────────────────────────

func (r *OnboardRunner) stepLanguage(cat *catalog.Catalog) string {
	r.printStepHeader("Step 1", "Language")

	langs := cat.Languages()
	cDim.Println("  \"Play the news\" picks the default station of this language.")
	cDim.Printf("  Known: %s\n\n", strings.Join(langs, ", "))

	for {
		lang := catalog.NormalizeLang(r.promptDefault("  Language", config.DefaultLang))
		if st, ok := cat.LangDefault(lang); ok {
			fmt.Println()
			cSuccess.Printf("  ✓ Language: %s (default station %s)\n\n", lang, st.DisplayTitle())
			return lang
		}
		if len(cat.ByLang(lang)) > 0 {
			fmt.Println()
			cSuccess.Printf("  ✓ Language: %s\n\n", lang)
			return lang
		}
		cError.Printf("  No stations for %q.\n", lang)
	}
}

// ── step 2: channel ────────────────────────────────────────────────

func (r *OnboardRunner) stepChannel(lang string) (string, *config.ChannelConfig) {
	r.printStepHeader("Step 2", "Channel")

	cDim.Println("  Select channel type:")
	for i, ch := range channelOptions {
		fmt.Printf("    [%d] %s\n", i+1, ch.Type)
	}
	fmt.Println()

	idx := r.promptChoice("  Channel type", 1, len(channelOptions))
	cm := channelOptions[idx-1]
	fmt.Println()
	if cm.Type == "none" {
		cSuccess.Println("  ✓ No channel; the CLI still works.")
		fmt.Println()
		return "", nil
	}

	channelID := cm.Type + "-main"
	chConfig := make(map[string]interface{})
	for _, p := range cm.Prompts {
		var val string
		if p.Required {
			val = r.promptRequired("  " + p.Label)
		} else {
			val = r.promptDefault("  "+p.Label, "")
		}
		chConfig[p.Key] = val
		fmt.Println()
	}
	if cm.Type == config.ChannelTypeHTTP {
		key := utils.RandStr(32)
		chConfig["api_key"] = key
		cDim.Printf("  Generated API key: %s\n\n", key)
	}

	cSuccess.Printf("  ✓ Channel: %s (%s)\n\n", channelID, cm.Type)
	return channelID, &config.ChannelConfig{
		Type:    cm.Type,
		Enabled: true,
		Lang:    lang,
		Config:  chConfig,
	}
}

// ── step 3: prefetch ───────────────────────────────────────────────

func (r *OnboardRunner) stepPrefetch() bool {
	r.printStepHeader("Step 3", "Prefetch")

	cDim.Println("  The gateway can resolve the default stations every 15 minutes")
	cDim.Println("  so \"play the news\" starts without waiting on the network.")
	fmt.Println()

	enabled := r.confirm("  Enable prefetch?", true)
	fmt.Println()
	if enabled {
		cSuccess.Println("  ✓ Prefetch: enabled")
	} else {
		cSuccess.Println("  ✓ Prefetch: disabled")
	}
	fmt.Println()
	return enabled
}

// ── step 4: confirm & write ────────────────────────────────────────

func (r *OnboardRunner) stepConfirm(
	cfgPath string, overwrite bool,
	lang string,
	channelID string, chCfg *config.ChannelConfig,
	prefetch bool,
) error {
	r.printStepHeader("Step 4", "Review")

	cDim.Printf("  Home directory:  %s\n", consts.HomeDir())
	cDim.Printf("  Config file:     %s\n", cfgPath)
	fmt.Println()
	cDim.Printf("  Language:     %s\n", lang)
	if chCfg != nil {
		cDim.Printf("  Channel:      %s (%s)\n", channelID, chCfg.Type)
	}
	cDim.Printf("  Prefetch:     %v\n", prefetch)
	fmt.Println()

	if !r.confirm("  Write config?", true) {
		fmt.Println("  Aborted.")
		return nil
	}
	fmt.Println()

	cfg := starterConfig(lang, channelID, chCfg, prefetch)
	if err := config.WriteNew(cfgPath, cfg, overwrite); err != nil {
		cError.Printf("  ✗ Failed to write config: %v\n", err)
		if errors.Is(err, config.ErrConfigExists) {
			cError.Println("    Re-run with --force to replace it.")
		}
		return err
	}
	cSuccess.Printf("  ✓ Created %s\n", cfgPath)

	fmt.Println()
	if chCfg != nil {
		cSuccess.Println("  All set! Run \"newscast gateway run\" to start.")
	} else {
		cSuccess.Println("  All set! Try \"newscast play the news\".")
	}
	fmt.Println()
	return nil
}

func starterConfig(lang, channelID string, chCfg *config.ChannelConfig, prefetch bool) *config.Config {
	cfg := config.Default()
	cfg.Skill.Lang = lang
	cfg.Prefetch.Enabled = &prefetch
	cfg.Logging = config.LoggingConfig{
		Level:      "info",
		Format:     "text",
		Output:     "both",
		File:       consts.DefaultLogFile(),
		MaxSize:    100,
		MaxBackups: 5,
		MaxAge:     3,
	}
	if chCfg != nil {
		cfg.Channels = map[string]config.ChannelConfig{channelID: *chCfg}
	}
	return cfg
}

// ── input helpers ──────────────────────────────────────────────────

func (r *OnboardRunner) prompt(label string) string {
	cPrompt.Printf("%s > ", label)
	if r.scanner.Scan() {
		return strings.TrimSpace(r.scanner.Text())
	}
	return ""
}

func (r *OnboardRunner) promptDefault(label string, defaultVal string) string {
	if defaultVal != "" {
		cPrompt.Printf("%s ", label)
		cDim.Printf("[%s]", defaultVal)
		cPrompt.Print(" > ")
	} else {
		cPrompt.Printf("%s > ", label)
	}

	if r.scanner.Scan() {
		if val := strings.TrimSpace(r.scanner.Text()); val != "" {
			return val
		}
	}
	return defaultVal
}

func (r *OnboardRunner) promptRequired(label string) string {
	for {
		if val := r.prompt(label); val != "" {
			return val
		}
		cError.Println("  This field is required.")
	}
}

func (r *OnboardRunner) promptChoice(label string, min, max int) int {
	for {
		val := r.promptDefault(label, strconv.Itoa(min))
		n, err := strconv.Atoi(val)
		if err == nil && n >= min && n <= max {
			return n
		}
		cError.Printf("  Please enter a number between %d and %d.\n", min, max)
	}
}

func (r *OnboardRunner) confirm(label string, defaultYes bool) bool {
	hint := "[y/N]"
	if defaultYes {
		hint = "[Y/n]"
	}

	cPrompt.Printf("%s %s > ", label, hint)
	if r.scanner.Scan() {
		val := strings.ToLower(strings.TrimSpace(r.scanner.Text()))
		if val == "" {
			return defaultYes
		}
		return val == "y" || val == "yes"
	}
	return defaultYes
}

func (r *OnboardRunner) printStepHeader(step string, title string) {
	cTitle.Printf("═══ %s: %s ═══\n\n", step, title)
}
