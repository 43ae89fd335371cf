package resolver

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/lrstanley/go-ytdlp"

	"github.com/tgifai/newscast/internal/catalog"
)

// LiveExtractor finds the live stream of a video channel.
type LiveExtractor interface {
	// LiveURL returns a playable URL of the channel's current live stream.
	// It returns ErrNoURI when the channel is not live.
	LiveURL(ctx context.Context, channelURL string) (string, error)
}

func (r *Resolver) fetchYouTubeLive(ctx context.Context, src catalog.Source) (string, error) {
	return r.opts.Extractor.LiveURL(ctx, src.URL)
}

// YTDLPExtractor asks yt-dlp for the channel's live tab.
type YTDLPExtractor struct {
	binary string
}

// NewYTDLPExtractor uses binary as the yt-dlp executable; empty means the one
// on PATH.
func NewYTDLPExtractor(binary string) *YTDLPExtractor {
	return &YTDLPExtractor{binary: binary}
}

type ytEntry struct {
	IsLive     bool   `json:"is_live"`
	LiveStatus string `json:"live_status"`
	URL        string `json:"url"`
	WebpageURL string `json:"webpage_url"`
}

func (e *YTDLPExtractor) LiveURL(ctx context.Context, channelURL string) (string, error) {
	cmd := ytdlp.New().
		SkipDownload().
		DumpJSON().
		Format("best")
	if e.binary != "" {
		cmd = cmd.SetExecutable(e.binary)
	}

	res, err := cmd.Run(ctx, liveTab(channelURL))
	if err != nil {
		// yt-dlp exits non-zero when the channel has no live stream
		if res != nil && strings.Contains(res.Stderr, "not currently live") {
			return "", fmt.Errorf("%w: %s is not live", ErrNoURI, channelURL)
		}
		return "", fmt.Errorf("yt-dlp %s: %w", channelURL, err)
	}
	return firstLive(res.Stdout)
}

// firstLive scans yt-dlp JSON lines and returns the first live entry.
func firstLive(out string) (string, error) {
	sc := bufio.NewScanner(strings.NewReader(out))
	sc.Buffer(make([]byte, 0, 64*1024), 16<<20)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || line[0] != '{' {
			continue
		}
		var e ytEntry
		if err := sonic.UnmarshalString(line, &e); err != nil {
			continue
		}
		if !e.IsLive && e.LiveStatus != "is_live" {
			continue
		}
		if e.URL != "" {
			return e.URL, nil
		}
		if e.WebpageURL != "" {
			return e.WebpageURL, nil
		}
	}
	if err := sc.Err(); err != nil {
		return "", fmt.Errorf("read yt-dlp output: %w", err)
	}
	return "", fmt.Errorf("%w: no live entry", ErrNoURI)
}

func liveTab(channelURL string) string {
	u := strings.TrimRight(strings.TrimSpace(channelURL), "/")
	if strings.HasSuffix(u, "/live") {
		return u
	}
	return u + "/live"
}
