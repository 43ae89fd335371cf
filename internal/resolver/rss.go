package resolver

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/tgifai/newscast/internal/catalog"
)

const maxPageBytes = 2 << 20

func (r *Resolver) fetchRSS(ctx context.Context, src catalog.Source) (string, error) {
	feed, err := r.getFeed(ctx, src.URL)
	if err != nil {
		return "", err
	}
	return latestAudio(feed)
}

func (r *Resolver) getFeed(ctx context.Context, feedURL string) (*gofeed.Feed, error) {
	resp, err := r.get(ctx, strings.TrimSpace(feedURL), "application/rss+xml, application/atom+xml, application/xml, text/xml, */*")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", feedURL, err)
	}
	return feed, nil
}

// latestAudio returns the first audio enclosure of the newest item. Feeds
// without enclosures fall back to an item link pointing at an mp3.
func latestAudio(feed *gofeed.Feed) (string, error) {
	if feed == nil || len(feed.Items) == 0 {
		return "", fmt.Errorf("%w: feed has no items", ErrNoURI)
	}
	item := feed.Items[0]
	for _, enc := range item.Enclosures {
		if enc != nil && strings.Contains(strings.ToLower(enc.Type), "audio") && enc.URL != "" {
			return enc.URL, nil
		}
	}
	for _, link := range append([]string{item.Link}, item.Links...) {
		if strings.HasSuffix(strings.ToLower(stripQuery(link)), ".mp3") {
			return link, nil
		}
	}
	return "", fmt.Errorf("%w: first item has no audio", ErrNoURI)
}

// get issues a GET and fails on any non-200 status.
func (r *Resolver) get(ctx context.Context, url, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request %s: %w", url, err)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, fmt.Errorf("get %s: HTTP %d", url, resp.StatusCode)
	}
	return resp, nil
}

func (r *Resolver) getPage(ctx context.Context, url string) ([]byte, error) {
	resp, err := r.get(ctx, url, "text/html, */*")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	return body, nil
}

func stripQuery(uri string) string {
	if i := strings.IndexAny(uri, "?#"); i >= 0 {
		return uri[:i]
	}
	return uri
}
