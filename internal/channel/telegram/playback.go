package telegram

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/tgifai/newscast/internal/media"
	"github.com/tgifai/newscast/internal/skill"
)

// maxAlternatives caps the runners-up listed under a playback.
const maxAlternatives = 5

func formatPlayback(p skill.Playback) string {
	var b strings.Builder
	fmt.Fprintf(&b, "▶ %s\n%s", title(p.Result), p.Result.URI)

	n := 0
	for _, alt := range p.Disambiguation {
		if n == maxAlternatives {
			break
		}
		if n == 0 {
			b.WriteString("\n\nAlso available:")
		}
		fmt.Fprintf(&b, "\n• %s (%d%%)", title(alt), alt.Confidence)
		n++
	}
	return b.String()
}

func title(r skill.Result) string {
	if r.Title != "" {
		return r.Title
	}
	return r.StationID
}

// sendableAsAudio reports whether Telegram can fetch r as a single audio file.
func sendableAsAudio(r skill.Result) bool {
	if r.Playback != media.PlaybackAudio {
		return false
	}
	u, err := url.Parse(r.URI)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	return strings.EqualFold(path.Ext(u.Path), ".mp3")
}
