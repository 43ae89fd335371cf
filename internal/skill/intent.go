package skill

import (
	"context"
	"slices"
	"strings"

	"github.com/tgifai/newscast/internal/media"
	"github.com/tgifai/newscast/internal/pkg/logs"
	"github.com/tgifai/newscast/internal/vocab"
)

type Intent string

const (
	IntentPlayNews  Intent = "play_news"
	IntentWorldNews Intent = "world_news"
	IntentIntro     Intent = "intro"
)

var commands = map[string]Intent{
	"/news":      IntentPlayNews,
	"/worldnews": IntentWorldNews,
	"/start":     IntentIntro,
	"/help":      IntentIntro,
}

// ParseUtterance maps free text or a slash command to an intent and the
// query left for the search.
func ParseUtterance(text string) (Intent, string) {
	text = strings.TrimSpace(text)
	intent := Intent("")
	if strings.HasPrefix(text, "/") {
		cmd, rest, _ := strings.Cut(text, " ")
		// telegram appends the bot name in groups: /news@my_bot
		cmd, _, _ = strings.Cut(strings.ToLower(cmd), "@")
		if in, ok := commands[cmd]; ok {
			intent, text = in, rest
		}
	}

	tokens := vocab.Tokenize(text)
	if len(tokens) > 0 && tokens[0] == "play" {
		tokens = tokens[1:]
	}
	if i := slices.Index(tokens, "world"); i >= 0 && i+1 < len(tokens) && tokens[i+1] == "news" {
		tokens = append(tokens[:i], tokens[i+1:]...)
		if intent == "" {
			intent = IntentWorldNews
		}
	}
	if intent == "" {
		intent = IntentPlayNews
	}
	return intent, strings.Join(tokens, " ")
}

// Handle parses utterance and runs the matching intent against host.
func (s *NewsSkill) Handle(ctx context.Context, host Host, utterance string) error {
	intent, query := ParseUtterance(utterance)
	logs.CtxInfo(ctx, "[skill] intent=%s query=%q", intent, query)
	switch intent {
	case IntentIntro:
		return s.HandleIntro(ctx, host)
	case IntentWorldNews:
		return s.HandleWorldNews(ctx, host, query)
	default:
		return s.HandlePlayNews(ctx, host, query)
	}
}

func (s *NewsSkill) HandlePlayNews(ctx context.Context, host Host, query string) error {
	return s.play(ctx, host, query, s.Search(ctx, host, query, media.News))
}

// HandleWorldNews prefers internationally focused stations and falls back to
// the regular search when none of them qualifies.
func (s *NewsSkill) HandleWorldNews(ctx context.Context, host Host, query string) error {
	results := s.SearchTagged(ctx, host, query, media.News, s.opts.WorldTag)
	if len(results) == 0 {
		logs.CtxDebug(ctx, "[skill] no %q station matched, widening search", s.opts.WorldTag)
		results = s.Search(ctx, host, query, media.News)
	}
	return s.play(ctx, host, query, results)
}

func (s *NewsSkill) HandleIntro(ctx context.Context, host Host) error {
	return host.Speak(ctx, s.opts.Dialogs.Render(s.sessionLang(host), DialogIntro, nil))
}

func (s *NewsSkill) play(ctx context.Context, host Host, query string, results []Result) error {
	if len(results) == 0 {
		return host.Speak(ctx, s.opts.Dialogs.Render(s.sessionLang(host), DialogNoNewsFound, map[string]string{"query": query}))
	}
	logs.CtxInfo(ctx, "[skill] playing %s (%d) with %d alternatives", results[0].StationID, results[0].Confidence, len(results)-1)
	return host.Play(ctx, Playback{Result: results[0], Disambiguation: results[1:]})
}
