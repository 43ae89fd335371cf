package skill

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgifai/newscast/internal/catalog"
	"github.com/tgifai/newscast/internal/media"
)

type fakeResolver struct {
	mu    sync.Mutex
	fail  map[string]bool
	calls map[string]int
}

func (f *fakeResolver) Resolve(_ context.Context, src catalog.Source) (string, bool) {
	if src.Kind == catalog.SourceStatic {
		return src.URL, true
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[src.Key()]++
	if f.fail[src.Key()] {
		return "", false
	}
	return "https://resolved.example/" + src.Key(), true
}

func (f *fakeResolver) Slow(src catalog.Source) bool {
	return src.Kind == catalog.SourceYouTubeLive
}

type deadResolver struct{}

func (deadResolver) Resolve(context.Context, catalog.Source) (string, bool) { return "", false }
func (deadResolver) Slow(catalog.Source) bool                               { return false }

type fakeHost struct {
	lang string

	mu       sync.Mutex
	extended []time.Duration
	spoken   []string
	played   []Playback
}

func (h *fakeHost) Lang() string { return h.lang }

func (h *fakeHost) ExtendTimeout(_ context.Context, d time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.extended = append(h.extended, d)
}

func (h *fakeHost) Speak(_ context.Context, text string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.spoken = append(h.spoken, text)
	return nil
}

func (h *fakeHost) Play(_ context.Context, p Playback) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.played = append(h.played, p)
	return nil
}

type prefs string

func (p prefs) DefaultFeed() string { return string(p) }

func newTestSkill(t *testing.T, res URIResolver, settings Preferences) *NewsSkill {
	t.Helper()
	c, err := catalog.Default()
	require.NoError(t, err)
	if res == nil {
		res = &fakeResolver{}
	}
	return New(Options{
		Catalog:    c,
		Resolver:   res,
		Settings:   settings,
		ImageBase:  "https://img.example/",
		SkillIcon:  "images/news.png",
		Registerer: prometheus.NewRegistry(),
	})
}

func TestSearch_DefaultForSessionLang(t *testing.T) {
	s := newTestSkill(t, nil, nil)
	results := s.Search(context.Background(), &fakeHost{lang: "en-us"}, "the news", media.News)
	require.NotEmpty(t, results)
	assert.Equal(t, "NPR", results[0].StationID)
	assert.Equal(t, 95, results[0].Confidence)
	assert.Equal(t, "https://resolved.example/custom:npr", results[0].URI)
	assert.Equal(t, "https://img.example/images/NPR.png", results[0].Image)
	assert.Equal(t, "https://img.example/images/news.png", results[0].SkillLogo)

	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Confidence, results[i].Confidence)
		assert.GreaterOrEqual(t, results[i].Confidence, media.Average)
	}
}

func TestSearch_ExplicitLanguageDefault(t *testing.T) {
	s := newTestSkill(t, nil, prefs("BBC"))
	results := s.Search(context.Background(), &fakeHost{lang: "en-us"}, "portuguese news", media.News)
	require.NotEmpty(t, results)
	assert.Equal(t, "TSF", results[0].StationID)
	assert.Equal(t, "pt-pt", results[0].Lang)
}

func TestSearch_UserDefault(t *testing.T) {
	s := newTestSkill(t, nil, prefs("BBC"))
	results := s.Search(context.Background(), &fakeHost{lang: "en-us"}, "me the latest news", media.News)
	require.NotEmpty(t, results)
	assert.Equal(t, "BBC", results[0].StationID)

	// a named station disables the default bonus
	results = s.Search(context.Background(), &fakeHost{lang: "en-us"}, "fox news", media.News)
	require.NotEmpty(t, results)
	assert.Equal(t, "FOX", results[0].StationID)
}

func TestSearch_NamedStation(t *testing.T) {
	s := newTestSkill(t, nil, nil)
	results := s.Search(context.Background(), &fakeHost{lang: "pt-pt"}, "TSF news", media.News)
	require.NotEmpty(t, results)
	assert.Equal(t, "TSF", results[0].StationID)
	assert.Equal(t, media.MaxConfidence, results[0].Confidence)
}

func TestSearch_AudioOnlyNeverGUI(t *testing.T) {
	s := newTestSkill(t, nil, nil)
	for _, phrase := range []string{"euronews", "sky news", "the news", "weather channel"} {
		for _, mt := range []media.Type{media.Audio, media.Radio} {
			for _, r := range s.Search(context.Background(), &fakeHost{lang: "en-gb"}, phrase, mt) {
				assert.NotEqual(t, media.PlaybackGUI, r.Playback, "%s/%s -> %s", phrase, mt, r.StationID)
			}
		}
	}
}

func TestSearch_SkipsUnresolved(t *testing.T) {
	res := &fakeResolver{fail: map[string]bool{"custom:npr": true}}
	s := newTestSkill(t, res, nil)
	results := s.Search(context.Background(), &fakeHost{lang: "en-us"}, "the news", media.News)
	for _, r := range results {
		assert.NotEqual(t, "NPR", r.StationID)
	}
	assert.Equal(t, 1, res.calls["custom:npr"])
}

func TestSearch_ExtendsTimeout(t *testing.T) {
	s := newTestSkill(t, nil, nil)
	host := &fakeHost{lang: "en-gb"}
	results := s.Search(context.Background(), host, "euronews", media.News)
	require.NotEmpty(t, results)
	assert.True(t, strings.HasPrefix(results[0].StationID, "EuroNews"))
	require.NotEmpty(t, host.extended)
	assert.Equal(t, euroExtension, host.extended[0])
	assert.Contains(t, host.extended, slowExtension)
}

func TestSearch_NilSession(t *testing.T) {
	s := newTestSkill(t, nil, nil)
	require.NotPanics(t, func() {
		s.Search(context.Background(), nil, "euronews", media.News)
		results := s.Search(context.Background(), nil, "bbc news", media.News)
		require.NotEmpty(t, results)
		assert.Equal(t, "BBC", results[0].StationID)
	})
}

func TestSearch_NothingAboveThreshold(t *testing.T) {
	s := newTestSkill(t, nil, nil)
	assert.Empty(t, s.Search(context.Background(), &fakeHost{lang: "en-us"}, "cooking recipes", media.Podcast))
}

func TestFeaturedPlaylist(t *testing.T) {
	s := newTestSkill(t, nil, nil)
	all := s.FeaturedPlaylist(context.Background())
	assert.Len(t, all, len(s.Catalog().Stations()))
	for _, r := range all {
		assert.Equal(t, media.Average, r.Confidence)
		st, err := s.Catalog().Lookup(r.StationID)
		require.NoError(t, err)
		if st.Source.Dynamic() {
			assert.Equal(t, st.Source.Key(), r.URI)
		} else {
			assert.Equal(t, st.Source.URL, r.URI)
		}
	}
}

func TestLangDefaultOverride(t *testing.T) {
	c, err := catalog.Default()
	require.NoError(t, err)
	s := New(Options{
		Catalog:      c,
		Resolver:     &fakeResolver{},
		LangDefaults: map[string]string{"DE": "DLF"},
		Registerer:   prometheus.NewRegistry(),
	})
	assert.Equal(t, "DLF", s.LangDefault("de-at"))
	assert.Equal(t, "NPR", s.LangDefault("en-us"))
	assert.Equal(t, "", s.LangDefault("ru"))

	st, ok := s.DefaultStation("de")
	require.True(t, ok)
	assert.Equal(t, "DLF", st.ID)
}

func TestPrefetchTargets(t *testing.T) {
	s := newTestSkill(t, nil, prefs("FOX"))
	var ids []string
	for _, st := range s.PrefetchTargets() {
		ids = append(ids, st.ID)
	}
	assert.Contains(t, ids, "TSF")
	assert.Contains(t, ids, "NPR")
	assert.Contains(t, ids, "CCMA")
	assert.Equal(t, "FOX", ids[len(ids)-1])

	unknown := newTestSkill(t, nil, prefs("does not exist"))
	for _, st := range unknown.PrefetchTargets() {
		assert.NotEqual(t, "does not exist", st.ID)
	}
}

func TestParseUtterance(t *testing.T) {
	cases := []struct {
		in     string
		intent Intent
		query  string
	}{
		{"play the news", IntentPlayNews, "the news"},
		{"Play BBC news", IntentPlayNews, "bbc news"},
		{"play world news", IntentWorldNews, "news"},
		{"world news from euronews", IntentWorldNews, "news from euronews"},
		{"/news portuguese", IntentPlayNews, "portuguese"},
		{"/news@newscast_bot", IntentPlayNews, ""},
		{"/worldnews", IntentWorldNews, ""},
		{"/start", IntentIntro, ""},
		{"/unknown thing", IntentPlayNews, "unknown thing"},
	}
	for _, tc := range cases {
		intent, query := ParseUtterance(tc.in)
		assert.Equal(t, tc.intent, intent, tc.in)
		assert.Equal(t, tc.query, query, tc.in)
	}
}

func TestHandlePlayNews(t *testing.T) {
	s := newTestSkill(t, nil, nil)
	host := &fakeHost{lang: "en-us"}
	require.NoError(t, s.Handle(context.Background(), host, "play the news"))
	require.Len(t, host.played, 1)
	assert.Equal(t, "NPR", host.played[0].Result.StationID)
	assert.NotEmpty(t, host.played[0].Disambiguation)
	assert.Empty(t, host.spoken)
}

func TestHandlePlayNews_NothingFound(t *testing.T) {
	s := newTestSkill(t, deadResolver{}, nil)
	host := &fakeHost{lang: "en-us"}

	require.NoError(t, s.HandlePlayNews(context.Background(), host, "GPB"))
	require.Len(t, host.spoken, 1)
	assert.Empty(t, host.played)
	assert.Contains(t, []string{"Sorry, I couldn't find any news for that.", "I couldn't find a news station for that request."}, host.spoken[0])
}

func TestHandleWorldNews(t *testing.T) {
	s := newTestSkill(t, nil, nil)
	host := &fakeHost{lang: "en-us"}
	require.NoError(t, s.Handle(context.Background(), host, "play world news"))
	require.Len(t, host.played, 1)

	top, err := s.Catalog().Lookup(host.played[0].Result.StationID)
	require.NoError(t, err)
	assert.True(t, top.HasTag(DefaultWorldTag), top.ID)
	for _, r := range host.played[0].Disambiguation {
		st, _ := s.Catalog().Lookup(r.StationID)
		assert.True(t, st.HasTag(DefaultWorldTag), st.ID)
	}
}

func TestHandleWorldNews_FallsBack(t *testing.T) {
	s := newTestSkill(t, nil, nil)
	// no station carries the tag, so the plain search answers
	host := &fakeHost{lang: "fi"}
	s.opts.WorldTag = "no-such-tag"
	require.NoError(t, s.HandleWorldNews(context.Background(), host, "news"))
	require.Len(t, host.played, 1)
	assert.Equal(t, "YLE", host.played[0].Result.StationID)
}

func TestHandleIntro(t *testing.T) {
	s := newTestSkill(t, nil, nil)
	host := &fakeHost{lang: "pt-pt"}
	require.NoError(t, s.HandleIntro(context.Background(), host))
	require.Len(t, host.spoken, 1)
	assert.True(t, strings.HasPrefix(host.spoken[0], "Posso tocar"))
}

func TestDialogs(t *testing.T) {
	d := mustBuiltinDialogs()
	assert.Equal(t, "Aqui está a TSF.", d.Render("pt-br", DialogPlaying, map[string]string{"station": "TSF"}))
	assert.Equal(t, "Ebenfalls verfügbar: DLF.", d.Render("de", DialogAlternatives, map[string]string{"stations": "DLF"}))
	assert.Equal(t, "missing.dialog", d.Render("en-us", "missing.dialog", nil))
	assert.Contains(t, []string{"Here is BBC.", "Playing BBC."}, d.Render("fr", DialogPlaying, map[string]string{"station": "BBC"}))

	_, err := ParseDialogs([]byte("en-us:\n  intro:\n    - \"{{ .broken\"\n"))
	assert.Error(t, err)
}
