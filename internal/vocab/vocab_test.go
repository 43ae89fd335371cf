package vocab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClean(t *testing.T) {
	v := Default()
	cases := []struct {
		in, want string
	}{
		{"the news", ""},
		{"Play me the latest news, please!", "play"},
		{"portuguese news", ""},
		{"TSF notícias", "tsf"},
		{"BBC news", "bbc"},
		{"news from the united states", "from"},
		{"  euronews   in spanish ", "euronews in"},
		{"Ö3 Nachrichten", "ö3"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, v.Clean(tc.in), tc.in)
	}
}

func TestClean_WholeTokensOnly(t *testing.T) {
	v := Default()
	// "a" and "the" must not be cut out of longer words
	assert.Equal(t, "theatre abc", v.Clean("theatre abc news"))
	assert.Equal(t, "nprnews", v.Clean("nprnews"))
}

func TestMatchLang(t *testing.T) {
	v := Default()
	cases := map[string]string{
		"portuguese news":             "pt-pt",
		"australian news":             "en-au",
		"news in English":             "en",
		"british english news":        "en-gb",
		"news from the united states": "en-us",
		"noticias en español":         "es",
		"the news":                    "",
		"русский новости":             "ru",
	}
	for phrase, want := range cases {
		assert.Equal(t, want, v.MatchLang(phrase), phrase)
	}
}

func TestMatch(t *testing.T) {
	v := Default()
	assert.True(t, v.Match("play euro news", KeyEuro))
	assert.True(t, v.Match("play the news", KeyNews))
	assert.True(t, v.Match("Europe's EURONEWS", KeyEuro))
	assert.False(t, v.Match("play bbc", KeyNews))
	assert.False(t, v.Match("play bbc", "no-such-table"))
}

func TestLanguagesPriority(t *testing.T) {
	langs := Default().Languages()
	require.NotEmpty(t, langs)
	assert.Equal(t, "pt-pt", langs[0])
	assert.Equal(t, "en", langs[len(langs)-1])
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse([]byte("news: ["))
	assert.Error(t, err)

	_, err = Parse([]byte("filler: [the]"))
	assert.Error(t, err)

	_, err = Parse([]byte("news: [news]\nlanguages:\n  - keywords: [x]\n"))
	assert.Error(t, err)
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"sky", "news", "24"}, Tokenize("Sky-News 24!"))
	assert.Empty(t, Tokenize(" ,. "))
}
