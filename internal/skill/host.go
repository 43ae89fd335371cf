package skill

import (
	"context"
	"time"

	"github.com/tgifai/newscast/internal/media"
)

// Session is the part of the host a search needs: the user's language and a
// way to ask for more time before a slow lookup.
type Session interface {
	Lang() string
	ExtendTimeout(ctx context.Context, d time.Duration)
}

// Host is a frontend that can talk to the user and play results.
type Host interface {
	Session
	Speak(ctx context.Context, text string) error
	Play(ctx context.Context, p Playback) error
}

// Playback is what the host is asked to play: the best result plus the
// runners-up it may offer for disambiguation.
type Playback struct {
	Result         Result   `json:"result"`
	Disambiguation []Result `json:"disambiguation,omitempty"`
}

// Searcher ranks playable results for a phrase.
type Searcher interface {
	Search(ctx context.Context, sess Session, phrase string, mediaType media.Type) []Result
}

// StaticSession is a Session with a fixed language that ignores timeout
// extensions. Useful for batch callers such as the prefetcher.
type StaticSession string

func (s StaticSession) Lang() string                                 { return string(s) }
func (s StaticSession) ExtendTimeout(context.Context, time.Duration) {}
