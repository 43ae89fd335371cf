package match

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tgifai/newscast/internal/media"
)

var radioTypes = []media.Type{media.Generic, media.Audio, media.News, media.Radio}

func radioInput() Input {
	return Input{
		Ratio:        1,
		Base:         BaseScore(media.News, true),
		RequestMedia: media.News,
		RequestLang:  "pt-pt",
		StationLang:  "pt-pt",
		MediaTypes:   radioTypes,
		Playback:     media.PlaybackAudio,
	}
}

func TestRatio(t *testing.T) {
	assert.Equal(t, 1.0, Ratio("BBC", "bbc"))
	assert.Equal(t, 1.0, Ratio("", ""))
	assert.Equal(t, 0.0, Ratio("", "bbc"))
	assert.Equal(t, 0.0, Ratio("xyz", "bbc"))
	assert.InDelta(t, 0.75, Ratio("tsf", "tsf n"), 0.0001)

	r := Ratio("notícias tsf", "TSF Notícias")
	assert.True(t, r > 0 && r < 1, "got %v", r)
}

func TestBestAlias(t *testing.T) {
	alias, r := BestAlias("bbc", []string{"British Broadcasting Corporation", "BBC", "BBC News"})
	assert.Equal(t, "BBC", alias)
	assert.Equal(t, 1.0, r)

	alias, r = BestAlias("bbc", nil)
	assert.Equal(t, "", alias)
	assert.Equal(t, 0.0, r)
}

func TestBaseScore(t *testing.T) {
	assert.Equal(t, 50, BaseScore(media.News, false))
	assert.Equal(t, 50, BaseScore(media.Generic, true))
	assert.Equal(t, -30, BaseScore(media.Generic, false))
	assert.Equal(t, -30, BaseScore(media.Video, false))
	assert.Equal(t, -20, BaseScore(media.Radio, false))
	assert.Equal(t, 0, BaseScore(media.Audio, false))
}

func TestScore_ExactDefaultIsMax(t *testing.T) {
	in := radioInput()
	in.IsDefault = true
	assert.Equal(t, media.MaxConfidence, Score(in, DefaultWeights()))
}

func TestScore_ExcludedMediaIsZero(t *testing.T) {
	in := radioInput()
	in.IsDefault = true
	in.RequestMedia = media.Video
	assert.Equal(t, 0, Score(in, DefaultWeights()))

	in.RequestMedia = media.Podcast
	assert.Equal(t, 0, Score(in, DefaultWeights()))
}

func TestScore_AudioOnlyExcludesGUI(t *testing.T) {
	in := radioInput()
	in.MediaTypes = []media.Type{media.Generic, media.Audio, media.Video, media.News}
	in.Playback = media.PlaybackGUI
	in.IsDefault = true

	in.RequestMedia = media.Audio
	assert.Equal(t, 0, Score(in, DefaultWeights()))

	in.RequestMedia = media.News
	assert.Equal(t, media.MaxConfidence, Score(in, DefaultWeights()))
}

func TestScore_ForeignTrailsByPenalty(t *testing.T) {
	w := DefaultWeights()
	cases := []struct {
		name      string
		ratio     float64
		isDefault bool
	}{
		{"exact default", 1, true},
		{"exact", 1, false},
		{"partial", 0.5, false},
		{"nothing", 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := radioInput()
			in.Ratio = tc.ratio
			in.IsDefault = tc.isDefault
			native := Score(in, w)

			in.StationLang = "de"
			foreign := Score(in, w)
			assert.GreaterOrEqual(t, native-foreign, w.WrongLangPenalty)
		})
	}
}

func TestScore_LanguageBonuses(t *testing.T) {
	w := DefaultWeights()
	in := radioInput()
	in.Ratio = 0
	in.Base = 0

	in.RequestLang, in.StationLang = "en-us", "en-us"
	assert.Equal(t, w.LangBonus, Score(in, w))

	in.RequestLang, in.StationLang = "en-us", "en"
	assert.Equal(t, w.LangBonus, Score(in, w))

	in.RequestLang, in.StationLang, in.SecondaryLangs = "en-us", "en-gb", []string{"en"}
	assert.Equal(t, w.SecondaryBonus, Score(in, w))

	in.SecondaryLangs = nil
	assert.Equal(t, 0, Score(in, w))

	in.RequestLang, in.StationLang, in.SecondaryLangs = "es", "ca", []string{"es"}
	assert.Equal(t, w.SecondaryBonus, Score(in, w))

	in.RequestLang = "es-mx"
	assert.Equal(t, w.SecondaryBonus, Score(in, w))

	in.RequestLang = "fi"
	assert.Equal(t, 0, Score(in, w))
}

func TestScore_RegionalSiblingTrailsOwnRegion(t *testing.T) {
	w := DefaultWeights()
	in := radioInput()
	in.Ratio, in.Base = 0.5, 0
	in.RequestLang = "en-us"
	in.SecondaryLangs = []string{"en"}

	in.StationLang = "en-us"
	own := Score(in, w)
	in.StationLang = "en-gb"
	sibling := Score(in, w)

	assert.Equal(t, 45, own)
	assert.Equal(t, 40, sibling)
}

func TestScore_NeverNegative(t *testing.T) {
	in := Input{
		Ratio:        0,
		Base:         BaseScore(media.Generic, false),
		RequestMedia: media.Generic,
		RequestLang:  "de",
		StationLang:  "en-us",
		MediaTypes:   radioTypes,
		Playback:     media.PlaybackAudio,
	}
	assert.Equal(t, 0, Score(in, DefaultWeights()))
}

func TestScore_GUIBonus(t *testing.T) {
	w := DefaultWeights()
	in := radioInput()
	in.Ratio, in.Base = 0, 0
	in.MediaTypes = []media.Type{media.Generic, media.Video, media.TV, media.News}
	in.Playback = media.PlaybackGUI
	assert.Equal(t, w.LangBonus+w.GUIBonus, Score(in, w))
}
