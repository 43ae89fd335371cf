package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"maps"
	"os"
	"sort"
	"strings"

	"github.com/bytedance/gg/gmap"
	"github.com/bytedance/sonic"
)

//go:embed stations.json
var builtinStations []byte

var ErrStationNotFound = errors.New("station not found")

// archive is the on-disk layout of a station catalog.
type archive struct {
	Version      int                   `json:"version"`
	LangDefaults map[string]string     `json:"lang_defaults"`
	Languages    map[string][]*Station `json:"languages"`
}

// Catalog is an immutable, validated set of stations grouped by language.
type Catalog struct {
	stations     []*Station
	byID         map[string]*Station
	byLang       map[string][]*Station
	langDefaults map[string]string
}

// Default returns the catalog compiled into the binary.
func Default() (*Catalog, error) {
	return Parse(builtinStations)
}

// Load reads a catalog file. An empty path loads the built-in catalog.
func Load(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var a archive
	if err := sonic.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return build(&a)
}

func build(a *archive) (*Catalog, error) {
	c := &Catalog{
		byID:         make(map[string]*Station),
		byLang:       make(map[string][]*Station),
		langDefaults: make(map[string]string),
	}

	langs := gmap.Keys(a.Languages)
	sort.Strings(langs)
	for _, lang := range langs {
		norm := NormalizeLang(lang)
		if norm == "" {
			return nil, errors.New("catalog: empty language key")
		}
		for _, st := range a.Languages[lang] {
			if err := st.Validate(); err != nil {
				return nil, fmt.Errorf("catalog %s: %w", norm, err)
			}
			if _, dup := c.byID[st.ID]; dup {
				return nil, fmt.Errorf("catalog: duplicate station id %q", st.ID)
			}
			st.Lang = norm
			c.byID[st.ID] = st
			c.byLang[norm] = append(c.byLang[norm], st)
			c.stations = append(c.stations, st)
		}
	}

	for lang, id := range a.LangDefaults {
		norm := NormalizeLang(lang)
		st, ok := c.byID[id]
		if !ok {
			return nil, fmt.Errorf("catalog: default for %s: %w: %s", norm, ErrStationNotFound, id)
		}
		if st.Lang != norm {
			return nil, fmt.Errorf("catalog: default for %s names %s station %q", norm, st.Lang, id)
		}
		c.langDefaults[norm] = st.ID
	}
	return c, nil
}

// Stations returns every station in a stable order: languages sorted, then
// declaration order within a language.
func (c *Catalog) Stations() []*Station {
	out := make([]*Station, len(c.stations))
	copy(out, c.stations)
	return out
}

func (c *Catalog) Languages() []string {
	langs := gmap.Keys(c.byLang)
	sort.Strings(langs)
	return langs
}

func (c *Catalog) ByLang(lang string) []*Station {
	return c.byLang[NormalizeLang(lang)]
}

func (c *Catalog) Lookup(id string) (*Station, error) {
	if st, ok := c.byID[id]; ok {
		return st, nil
	}
	// case-insensitive second pass for user supplied ids
	for _, st := range c.stations {
		if strings.EqualFold(st.ID, id) {
			return st, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrStationNotFound, id)
}

// LangDefault returns the default station for lang. A regional tag falls back
// to its base language ("pt-br" -> "pt") and a base tag to the first regional
// default sharing it ("en" -> "en-gb").
func (c *Catalog) LangDefault(lang string) (*Station, bool) {
	lang = NormalizeLang(lang)
	if lang == "" {
		return nil, false
	}
	if id, ok := c.langDefaults[lang]; ok {
		return c.byID[id], true
	}
	base := BaseLang(lang)
	if id, ok := c.langDefaults[base]; ok {
		return c.byID[id], true
	}
	if base != lang {
		return nil, false
	}
	keys := gmap.Keys(c.langDefaults)
	sort.Strings(keys)
	for _, k := range keys {
		if BaseLang(k) == base {
			return c.byID[c.langDefaults[k]], true
		}
	}
	return nil, false
}

// LangDefaults returns a copy of the language to station id table.
func (c *Catalog) LangDefaults() map[string]string {
	return maps.Clone(c.langDefaults)
}

// NormalizeLang lower-cases a language tag and uses "-" as separator.
func NormalizeLang(lang string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(lang)), "_", "-")
}

// BaseLang returns the primary subtag of a language tag.
func BaseLang(lang string) string {
	lang = NormalizeLang(lang)
	if i := strings.IndexByte(lang, '-'); i >= 0 {
		return lang[:i]
	}
	return lang
}
