package resolver

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/tgifai/newscast/internal/catalog"
)

const (
	tsfURL     = "https://www.tsf.pt/stream/audio/{year}/{month}/noticias/{day}/not{hour}.mp3"
	abcURL     = "https://abcmedia.akamaized.net/news/audio/news-briefings/top-stories/{year}{month}/NAUs_{hour}00flash_{day}{month}_nola.mp3"
	gpbFeedURL = "http://feeds.feedburner.com/gpbnews/GeorgiaRSS?format=xml"
	nprFeedURL = "https://www.npr.org/rss/podcast.php?id=500005"

	tsfZone     = "Europe/Lisbon"
	abcZone     = "Australia/Sydney"
	tsfAttempts = 6
	abcAttempts = 2
)

// Endpoints are the upstream addresses of the custom fetchers. Hourly
// templates take {year}, {month}, {day} and {hour}, zero padded.
type Endpoints struct {
	TSF     string `yaml:"tsf"`
	ABC     string `yaml:"abc"`
	GPBFeed string `yaml:"gpb_feed"`
	NPRFeed string `yaml:"npr_feed"`
}

func (e Endpoints) withDefaults() Endpoints {
	if e.TSF == "" {
		e.TSF = tsfURL
	}
	if e.ABC == "" {
		e.ABC = abcURL
	}
	if e.GPBFeed == "" {
		e.GPBFeed = gpbFeedURL
	}
	if e.NPRFeed == "" {
		e.NPRFeed = nprFeedURL
	}
	return e
}

// fetchTSF probes the hourly TSF bulletin, stepping back one hour at a time.
func (r *Resolver) fetchTSF(ctx context.Context, _ catalog.Source) (string, error) {
	return r.probeHourly(ctx, r.opts.Endpoints.TSF, tsfZone, tsfAttempts)
}

// fetchABC tries this hour's ABC briefing, then the previous one.
func (r *Resolver) fetchABC(ctx context.Context, _ catalog.Source) (string, error) {
	return r.probeHourly(ctx, r.opts.Endpoints.ABC, abcZone, abcAttempts)
}

// fetchGPB finds the latest GPB headlines post and scrapes its mp3 link.
func (r *Resolver) fetchGPB(ctx context.Context, _ catalog.Source) (string, error) {
	feed, err := r.getFeed(ctx, r.opts.Endpoints.GPBFeed)
	if err != nil {
		return "", err
	}
	page := ""
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		if strings.Contains(item.Title, "GPB") && strings.Contains(item.Title, "Headlines") {
			page = item.Link
			if page == "" && len(item.Links) > 0 {
				page = item.Links[0]
			}
			break
		}
	}
	if page == "" {
		return "", fmt.Errorf("%w: no headlines item in gpb feed", ErrNoURI)
	}

	body, err := r.getPage(ctx, page)
	if err != nil {
		return "", err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", page, err)
	}
	href, ok := doc.Find(`[href$=".mp3"]`).First().Attr("href")
	if !ok || href == "" {
		return "", fmt.Errorf("%w: no mp3 link on %s", ErrNoURI, page)
	}
	return href, nil
}

// fetchNPR returns the newest NPR News Now episode without tracking params.
func (r *Resolver) fetchNPR(ctx context.Context, _ catalog.Source) (string, error) {
	feed, err := r.getFeed(ctx, r.opts.Endpoints.NPRFeed)
	if err != nil {
		return "", err
	}
	uri, err := latestAudio(feed)
	if err != nil {
		return "", err
	}
	return stripQuery(uri), nil
}

func hourlyURL(tmpl string, t time.Time) string {
	return strings.NewReplacer(
		"{year}", fmt.Sprintf("%04d", t.Year()),
		"{month}", fmt.Sprintf("%02d", int(t.Month())),
		"{day}", fmt.Sprintf("%02d", t.Day()),
		"{hour}", fmt.Sprintf("%02d", t.Hour()),
	).Replace(tmpl)
}
