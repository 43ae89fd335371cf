package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/tgifai/newscast/internal/media"
)

func TestDefault_Loads(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}

	want := []string{"ca", "de", "en-au", "en-ca", "en-gb", "en-us", "es", "fi", "fr", "it", "nl", "pt-pt", "ru", "sv"}
	got := c.Languages()
	if len(got) != len(want) {
		t.Fatalf("Languages: got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Languages[%d]: got %s, want %s", i, got[i], want[i])
		}
	}

	for _, st := range c.Stations() {
		if st.Lang == "" {
			t.Fatalf("station %s has no bucket", st.ID)
		}
		if len(st.MediaTypes) == 0 {
			t.Fatalf("station %s has no media types", st.ID)
		}
		if st.Playback == media.PlaybackGUI && st.Supports(media.Audio) {
			t.Fatalf("gui station %s must not accept audio requests", st.ID)
		}
	}
}

func TestDefault_LangDefaults(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}

	cases := map[string]string{
		"pt-pt": "TSF",
		"PT_PT": "TSF",
		"ca":    "CCMA",
		"es":    "RNE",
		"en-gb": "BBC",
		"en-us": "NPR",
		"en":    "BBC",
	}
	for lang, id := range cases {
		st, ok := c.LangDefault(lang)
		if !ok || st.ID != id {
			t.Fatalf("LangDefault(%s): got %v %v, want %s", lang, st, ok, id)
		}
	}
	if _, ok := c.LangDefault("de"); ok {
		t.Fatal("de has no configured default")
	}
	if _, ok := c.LangDefault("pt-br"); ok {
		t.Fatal("pt-br must not fall back to pt-pt")
	}
}

func TestLookup(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}

	st, err := c.Lookup("euronews pt (audio)")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if st.ID != "EuroNews PT (audio)" || st.Lang != "pt-pt" {
		t.Fatalf("Lookup: got %+v", st)
	}
	if st.Source.Kind != SourceYouTubeLive {
		t.Fatalf("source kind: got %s", st.Source.Kind)
	}

	if _, err := c.Lookup("nope"); !errors.Is(err, ErrStationNotFound) {
		t.Fatalf("expected ErrStationNotFound, got %v", err)
	}
}

func TestStations_StableOrder(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	us := c.ByLang("en-us")
	if len(us) == 0 || us[0].ID != "SkyStream" || us[len(us)-1].ID != "PBS" {
		t.Fatalf("en-us order not preserved: first=%s", us[0].ID)
	}

	// mutating the returned slice must not affect the catalog
	all := c.Stations()
	all[0] = nil
	if c.Stations()[0] == nil {
		t.Fatal("Stations returned internal slice")
	}
}

func TestParse_Validation(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"no aliases", `{"languages":{"en":[{"id":"X","aliases":[],"source":{"kind":"static","url":"u"},"media_types":["news"]}]}}`},
		{"no media types", `{"languages":{"en":[{"id":"X","aliases":["x"],"source":{"kind":"static","url":"u"}}]}}`},
		{"unknown kind", `{"languages":{"en":[{"id":"X","aliases":["x"],"source":{"kind":"ftp","url":"u"},"media_types":["news"]}]}}`},
		{"custom without id", `{"languages":{"en":[{"id":"X","aliases":["x"],"source":{"kind":"custom"},"media_types":["news"]}]}}`},
		{"unknown media", `{"languages":{"en":[{"id":"X","aliases":["x"],"source":{"kind":"static","url":"u"},"media_types":["hologram"]}]}}`},
		{"duplicate id", `{"languages":{"en":[{"id":"X","aliases":["x"],"source":{"kind":"static","url":"u"},"media_types":["news"]}],"de":[{"id":"X","aliases":["x"],"source":{"kind":"static","url":"u"},"media_types":["news"]}]}}`},
		{"missing default", `{"lang_defaults":{"en":"Y"},"languages":{"en":[{"id":"X","aliases":["x"],"source":{"kind":"static","url":"u"},"media_types":["news"]}]}}`},
		{"default in other bucket", `{"lang_defaults":{"de":"X"},"languages":{"en":[{"id":"X","aliases":["x"],"source":{"kind":"static","url":"u"},"media_types":["news"]}]}}`},
		{"bad json", `{`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Parse([]byte(tc.data)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestParse_Defaults(t *testing.T) {
	data := `{"languages":{"EN_us":[{"id":"X","aliases":["x"],"source":{"kind":"rss","url":"http://f"},"media_types":["news","audio"]}]}}`
	c, err := Parse([]byte(data))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	st, _ := c.Lookup("X")
	if st.Lang != "en-us" {
		t.Fatalf("lang: got %s", st.Lang)
	}
	if st.MediaType != media.News || st.Playback != media.PlaybackAudio {
		t.Fatalf("defaults not applied: %+v", st)
	}
	if st.DisplayTitle() != "X" {
		t.Fatalf("DisplayTitle: got %s", st.DisplayTitle())
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stations.json")
	data := `{"version":1,"lang_defaults":{"nl":"VRT"},"languages":{"nl":[{"id":"VRT","aliases":["vrt"],"source":{"kind":"static","url":"http://x/a.mp3"},"media_types":["news"]}]}}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if st, ok := c.LangDefault("nl-be"); !ok || st.ID != "VRT" {
		t.Fatalf("LangDefault(nl-be): got %v %v", st, ok)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestSource(t *testing.T) {
	if Static("u").Dynamic() {
		t.Fatal("static must not be dynamic")
	}
	if !RSS("u").Dynamic() || !YouTubeLive("u").Dynamic() || !Custom("tsf").Dynamic() {
		t.Fatal("non-static sources are dynamic")
	}
	if got := Custom("tsf").Key(); got != "custom:tsf" {
		t.Fatalf("Key: got %s", got)
	}
	if got := RSS("http://f").String(); got != "rss:http://f" {
		t.Fatalf("String: got %s", got)
	}
}
