package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"github.com/tgifai/newscast/internal/skill"
)

var (
	cTitle   = color.New(color.FgCyan, color.Bold)
	cSay     = color.New(color.FgWhite)
	cURI     = color.New(color.FgGreen)
	cWarn    = color.New(color.FgYellow)
	cSuccess = color.New(color.FgGreen)
	cError   = color.New(color.FgRed)
	cPrompt  = color.New(color.FgWhite, color.Bold)
	cDim     = color.New(color.FgHiBlack)
)

var _ skill.Host = (*consoleHost)(nil)

// consoleHost plays results by printing them.
type consoleHost struct {
	lang string
	out  io.Writer
}

func newConsoleHost(lang string, out io.Writer) *consoleHost {
	return &consoleHost{lang: lang, out: out}
}

func (h *consoleHost) Lang() string { return h.lang }

func (h *consoleHost) ExtendTimeout(_ context.Context, d time.Duration) {
	cDim.Fprintf(h.out, "  (this may take %s)\n", d)
}

func (h *consoleHost) Speak(_ context.Context, text string) error {
	_, err := cSay.Fprintf(h.out, "  %s\n", text)
	return err
}

func (h *consoleHost) Play(_ context.Context, p skill.Playback) error {
	printResult(h.out, p.Result, true)
	if len(p.Disambiguation) > 0 {
		cDim.Fprintln(h.out, "  also available:")
		for _, r := range p.Disambiguation {
			printResult(h.out, r, false)
		}
	}
	return nil
}

func printResult(out io.Writer, r skill.Result, top bool) {
	title := r.Title
	if title == "" {
		title = r.StationID
	}
	if top {
		cTitle.Fprintf(out, "  ▶ %s ", title)
	} else {
		fmt.Fprintf(out, "    • %s ", title)
	}
	cDim.Fprintf(out, "[%s, %d%%, %s]\n", r.StationID, r.Confidence, r.Lang)
	indent := "    "
	if !top {
		indent = "      "
	}
	cURI.Fprintf(out, "%s%s\n", indent, r.URI)
}
