// Package skill is the news skill: it ranks catalog stations against an
// utterance, resolves their playable URIs and drives a Host.
package skill

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tgifai/newscast/internal/catalog"
	"github.com/tgifai/newscast/internal/match"
	"github.com/tgifai/newscast/internal/media"
	"github.com/tgifai/newscast/internal/pkg/logs"
	"github.com/tgifai/newscast/internal/vocab"
)

const (
	DefaultLang     = "en-us"
	DefaultWorldTag = "world"

	euroExtension = time.Second
	slowExtension = 5 * time.Second
)

// URIResolver turns a station source into a playable URI.
type URIResolver interface {
	Resolve(ctx context.Context, src catalog.Source) (string, bool)
	Slow(src catalog.Source) bool
}

// Preferences exposes the persisted user choices the skill reads.
type Preferences interface {
	DefaultFeed() string
}

type Options struct {
	Catalog  *catalog.Catalog
	Resolver URIResolver
	Settings Preferences
	Vocab    *vocab.Vocab
	Dialogs  *Dialogs

	Weights       match.Weights
	MinConfidence int
	// Lang is used when neither the phrase nor the session names a language.
	Lang string
	// LangDefaults overrides the catalog's per-language default stations.
	LangDefaults map[string]string

	ImageBase         string
	SkillIcon         string
	DefaultBackground string
	WorldTag          string

	Registerer prometheus.Registerer
}

type NewsSkill struct {
	opts    Options
	metrics *searchMetrics
}

func New(opts Options) *NewsSkill {
	if opts.Vocab == nil {
		opts.Vocab = vocab.Default()
	}
	if opts.Dialogs == nil {
		opts.Dialogs = mustBuiltinDialogs()
	}
	if opts.Weights == (match.Weights{}) {
		opts.Weights = match.DefaultWeights()
	}
	if opts.MinConfidence <= 0 {
		opts.MinConfidence = media.Average
	}
	if opts.Lang == "" {
		opts.Lang = DefaultLang
	}
	if opts.WorldTag == "" {
		opts.WorldTag = DefaultWorldTag
	}
	normalized := make(map[string]string, len(opts.LangDefaults))
	for lang, id := range opts.LangDefaults {
		normalized[catalog.NormalizeLang(lang)] = id
	}
	opts.LangDefaults = normalized

	return &NewsSkill{opts: opts, metrics: newSearchMetrics(opts.Registerer)}
}

func (s *NewsSkill) Catalog() *catalog.Catalog { return s.opts.Catalog }

func (s *NewsSkill) Dialogs() *Dialogs { return s.opts.Dialogs }

// Lang is the skill's fallback language.
func (s *NewsSkill) Lang() string { return s.opts.Lang }

// Search ranks every station against phrase and returns the resolved ones
// at or above the confidence threshold, best first. A nil sess searches in
// the skill's fallback language.
func (s *NewsSkill) Search(ctx context.Context, sess Session, phrase string, mediaType media.Type) []Result {
	return s.search(ctx, sess, phrase, mediaType, nil)
}

// SearchTagged is Search limited to stations carrying tag.
func (s *NewsSkill) SearchTagged(ctx context.Context, sess Session, phrase string, mediaType media.Type, tag string) []Result {
	return s.search(ctx, sess, phrase, mediaType, func(st *catalog.Station) bool { return st.HasTag(tag) })
}

type candidate struct {
	station *catalog.Station
	score   int
}

func (s *NewsSkill) search(ctx context.Context, sess Session, phrase string, mediaType media.Type, keep func(*catalog.Station) bool) []Result {
	if s.opts.Catalog == nil {
		return nil
	}
	if sess == nil {
		sess = StaticSession(s.opts.Lang)
	}
	voc := s.opts.Vocab
	sessLang := s.sessionLang(sess)

	reqLang := voc.MatchLang(phrase)
	base := match.BaseScore(mediaType, voc.Match(phrase, vocab.KeyNews))
	if voc.Match(phrase, vocab.KeyEuro) {
		// the EuroNews channels are live video and take a while to extract
		sess.ExtendTimeout(ctx, euroExtension)
	}
	cleaned := voc.Clean(phrase)

	defaultID := ""
	if cleaned == "" {
		defaultID = s.defaultFeed(reqLang, sessLang)
	}
	lang := reqLang
	if lang == "" {
		lang = sessLang
	}

	var candidates []candidate
	for _, st := range s.opts.Catalog.Stations() {
		if keep != nil && !keep(st) {
			continue
		}
		_, ratio := match.BestAlias(cleaned, st.Aliases)
		score := match.Score(match.Input{
			Ratio:          ratio,
			Base:           base,
			RequestMedia:   mediaType,
			RequestLang:    lang,
			StationLang:    st.Lang,
			SecondaryLangs: st.SecondaryLangs,
			MediaTypes:     st.MediaTypes,
			Playback:       st.Playback,
			IsDefault:      defaultID != "" && st.ID == defaultID,
		}, s.opts.Weights)
		if score < s.opts.MinConfidence {
			continue
		}
		candidates = append(candidates, candidate{station: st, score: score})
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })

	logs.CtxDebug(ctx, "[skill] phrase=%q cleaned=%q lang=%s default=%s candidates=%d",
		phrase, cleaned, lang, defaultID, len(candidates))

	results := s.resolveAll(ctx, sess, candidates)
	s.metrics.observe(mediaType, len(results))
	return results
}

// resolveAll resolves candidates concurrently and keeps their order,
// dropping the ones without a playable URI.
func (s *NewsSkill) resolveAll(ctx context.Context, sess Session, candidates []candidate) []Result {
	if s.opts.Resolver == nil {
		return nil
	}
	for _, c := range candidates {
		if s.opts.Resolver.Slow(c.station.Source) {
			sess.ExtendTimeout(ctx, slowExtension)
		}
	}

	uris := make([]string, len(candidates))
	var wg sync.WaitGroup
	for i, c := range candidates {
		wg.Add(1)
		go func(i int, st *catalog.Station) {
			defer wg.Done()
			if uri, ok := s.opts.Resolver.Resolve(logs.WithStation(ctx, st.ID), st.Source); ok {
				uris[i] = uri
			}
		}(i, c.station)
	}
	wg.Wait()

	results := make([]Result, 0, len(candidates))
	for i, c := range candidates {
		if uris[i] == "" {
			continue
		}
		results = append(results, s.result(c.station, uris[i], c.score))
	}
	return results
}

// FeaturedPlaylist lists every station for browsing. Dynamic sources are not
// resolved; their URI is the source reference.
func (s *NewsSkill) FeaturedPlaylist(ctx context.Context) []Result {
	if s.opts.Catalog == nil {
		return nil
	}
	stations := s.opts.Catalog.Stations()
	out := make([]Result, 0, len(stations))
	for _, st := range stations {
		uri := st.Source.URL
		if st.Source.Dynamic() {
			uri = st.Source.Key()
		}
		out = append(out, s.result(st, uri, media.Average))
	}
	logs.CtxDebug(ctx, "[skill] featured playlist: %d stations", len(out))
	return out
}

// DefaultStation returns the station "play the news" falls back to for lang
// when the user names nothing.
func (s *NewsSkill) DefaultStation(lang string) (*catalog.Station, bool) {
	id := s.defaultFeed("", catalog.NormalizeLang(lang))
	if id == "" {
		return nil, false
	}
	st, err := s.opts.Catalog.Lookup(id)
	if err != nil {
		return nil, false
	}
	return st, true
}

// PrefetchTargets lists the stations most likely to be asked for without a
// query: the default of every catalog language plus the user's own default.
func (s *NewsSkill) PrefetchTargets() []*catalog.Station {
	if s.opts.Catalog == nil {
		return nil
	}
	var ids []string
	for _, lang := range s.opts.Catalog.Languages() {
		if id := s.LangDefault(lang); id != "" {
			ids = append(ids, id)
		}
	}
	if s.opts.Settings != nil {
		if id := strings.TrimSpace(s.opts.Settings.DefaultFeed()); id != "" {
			ids = append(ids, id)
		}
	}

	out := make([]*catalog.Station, 0, len(ids))
	for _, id := range ids {
		if st, err := s.opts.Catalog.Lookup(id); err == nil {
			out = append(out, st)
		}
	}
	return out
}

// LangDefault returns the configured default station id for lang.
func (s *NewsSkill) LangDefault(lang string) string {
	lang = catalog.NormalizeLang(lang)
	if lang == "" {
		return ""
	}
	if id, ok := s.opts.LangDefaults[lang]; ok {
		return id
	}
	if id, ok := s.opts.LangDefaults[catalog.BaseLang(lang)]; ok {
		return id
	}
	if s.opts.Catalog == nil {
		return ""
	}
	if st, ok := s.opts.Catalog.LangDefault(lang); ok {
		return st.ID
	}
	return ""
}

// defaultFeed picks the station that gets the default bonus: the default of an
// explicitly requested language, else the user's choice, else the default of
// the session language.
func (s *NewsSkill) defaultFeed(reqLang, sessLang string) string {
	if reqLang != "" {
		if id := s.LangDefault(reqLang); id != "" {
			return id
		}
	}
	if s.opts.Settings != nil {
		if id := strings.TrimSpace(s.opts.Settings.DefaultFeed()); id != "" {
			return id
		}
	}
	return s.LangDefault(sessLang)
}

func (s *NewsSkill) sessionLang(sess Session) string {
	if sess != nil {
		if l := catalog.NormalizeLang(sess.Lang()); l != "" {
			return l
		}
	}
	return catalog.NormalizeLang(s.opts.Lang)
}

func (s *NewsSkill) result(st *catalog.Station, uri string, confidence int) Result {
	bg := st.BgImage
	if bg == "" {
		bg = s.opts.DefaultBackground
	}
	return Result{
		StationID:  st.ID,
		Title:      st.DisplayTitle(),
		URI:        uri,
		Confidence: confidence,
		MediaType:  st.MediaType,
		Playback:   st.Playback,
		Image:      s.asset(st.Image),
		BgImage:    s.asset(bg),
		SkillLogo:  s.asset(s.opts.SkillIcon),
		Lang:       st.Lang,
	}
}

// asset joins a relative image path onto ImageBase.
func (s *NewsSkill) asset(path string) string {
	if path == "" || s.opts.ImageBase == "" || strings.Contains(path, "://") {
		return path
	}
	return strings.TrimRight(s.opts.ImageBase, "/") + "/" + strings.TrimLeft(path, "/")
}
