package catalog

import (
	"fmt"
	"strings"
)

type SourceKind string

const (
	SourceStatic      SourceKind = "static"
	SourceRSS         SourceKind = "rss"
	SourceYouTubeLive SourceKind = "youtube_live"
	SourceCustom      SourceKind = "custom"
)

// Source describes where a station's playable URI comes from. Exactly one of
// URL or ID is meaningful, depending on Kind.
type Source struct {
	Kind SourceKind `json:"kind"`
	URL  string     `json:"url,omitempty"`
	ID   string     `json:"id,omitempty"`
}

func Static(url string) Source        { return Source{Kind: SourceStatic, URL: url} }
func RSS(feedURL string) Source       { return Source{Kind: SourceRSS, URL: feedURL} }
func YouTubeLive(chURL string) Source { return Source{Kind: SourceYouTubeLive, URL: chURL} }
func Custom(id string) Source         { return Source{Kind: SourceCustom, ID: id} }

// Dynamic reports whether the URI must be fetched before playback.
func (s Source) Dynamic() bool {
	return s.Kind != SourceStatic
}

// Key identifies the source for caching and logging, e.g. "rss:https://...".
func (s Source) Key() string {
	if s.Kind == SourceCustom {
		return string(s.Kind) + ":" + s.ID
	}
	return string(s.Kind) + ":" + s.URL
}

func (s Source) String() string { return s.Key() }

func (s Source) Validate() error {
	switch s.Kind {
	case SourceStatic, SourceRSS, SourceYouTubeLive:
		if strings.TrimSpace(s.URL) == "" {
			return fmt.Errorf("%s source requires url", s.Kind)
		}
	case SourceCustom:
		if strings.TrimSpace(s.ID) == "" {
			return fmt.Errorf("custom source requires id")
		}
	case "":
		return fmt.Errorf("source kind is required")
	default:
		return fmt.Errorf("unknown source kind: %s", s.Kind)
	}
	return nil
}
