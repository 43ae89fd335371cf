// Package match ranks catalog stations against a cleaned utterance.
package match

import (
	"math"
	"strings"

	"github.com/bytedance/gg/gslice"

	"github.com/tgifai/newscast/internal/media"
)

// Weights tunes the scoring heuristic. The zero value is not useful; start
// from DefaultWeights.
type Weights struct {
	AliasWeight      int `yaml:"alias_weight" json:"alias_weight"`
	LangBonus        int `yaml:"lang_bonus" json:"lang_bonus"`
	SecondaryBonus   int `yaml:"secondary_bonus" json:"secondary_bonus"`
	GUIBonus         int `yaml:"gui_bonus" json:"gui_bonus"`
	DefaultBonus     int `yaml:"default_bonus" json:"default_bonus"`
	WrongLangPenalty int `yaml:"wrong_lang_penalty" json:"wrong_lang_penalty"`
}

func DefaultWeights() Weights {
	return Weights{
		AliasWeight:      60,
		LangBonus:        15,
		SecondaryBonus:   10,
		GUIBonus:         5,
		DefaultBonus:     30,
		WrongLangPenalty: 20,
	}
}

// Input is everything Score looks at for one station.
type Input struct {
	Ratio          float64
	Base           int
	RequestMedia   media.Type
	RequestLang    string
	StationLang    string
	SecondaryLangs []string
	MediaTypes     []media.Type
	Playback       media.Playback
	IsDefault      bool
}

// BaseScore is the starting score of every station for a request.
func BaseScore(t media.Type, hasNewsKeyword bool) int {
	if t == media.News || hasNewsKeyword {
		return 50
	}
	switch t {
	case media.Generic, media.Video:
		return -30
	case media.Radio:
		return -20
	}
	return 0
}

// Score rates one station. A station that cannot serve the requested media
// scores exactly 0. The wrong-language penalty is applied after capping at
// 100, so a foreign station trails an otherwise identical matching one unless
// both end at the floor of 0.
func Score(in Input, w Weights) int {
	if !gslice.Contains(in.MediaTypes, in.RequestMedia) {
		return 0
	}
	if in.RequestMedia.AudioOnly() && in.Playback == media.PlaybackGUI {
		return 0
	}

	score := in.Base + int(math.Round(in.Ratio*float64(w.AliasWeight)))

	foreign := false
	switch {
	case langMatches(in.RequestLang, in.StationLang):
		score += w.LangBonus
	case secondaryMatches(in.RequestLang, in.SecondaryLangs):
		score += w.SecondaryBonus
	default:
		foreign = true
	}

	if in.Playback == media.PlaybackGUI {
		score += w.GUIBonus
	}
	if in.IsDefault {
		score += w.DefaultBonus
	}
	if score > media.MaxConfidence {
		score = media.MaxConfidence
	}
	if foreign {
		score -= w.WrongLangPenalty
	}
	if score < 0 {
		score = 0
	}
	return score
}

func langMatches(req, station string) bool {
	req, station = normLang(req), normLang(station)
	if req == "" || station == "" {
		return false
	}
	// A regional request only takes the full bonus from its own bucket or the
	// bare base bucket; sibling regions go through the secondary languages.
	return req == station || baseLang(req) == station
}

func secondaryMatches(req string, secondary []string) bool {
	req = normLang(req)
	if req == "" {
		return false
	}
	for _, l := range secondary {
		l = normLang(l)
		if l == req || l == baseLang(req) {
			return true
		}
	}
	return false
}

func normLang(l string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(l)), "_", "-")
}

func baseLang(l string) string {
	if i := strings.IndexByte(l, '-'); i >= 0 {
		return l[:i]
	}
	return l
}
