// Package vocab holds the keyword tables used to clean an utterance before
// fuzzy matching and to detect an explicitly requested language.
package vocab

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"

	"gopkg.in/yaml.v3"
)

const (
	KeyNews   = "news"
	KeyEuro   = "euro"
	KeyFiller = "filler"
)

//go:embed vocab.yaml
var builtinVocab []byte

type langEntry struct {
	Lang     string   `yaml:"lang"`
	Keywords []string `yaml:"keywords"`
}

type file struct {
	News      []string    `yaml:"news"`
	Euro      []string    `yaml:"euro"`
	Filler    []string    `yaml:"filler"`
	Languages []langEntry `yaml:"languages"`
}

// Vocab is an immutable set of tokenized keyword tables.
type Vocab struct {
	tables map[string][][]string
	langs  []string
	// strip is every news, filler and language keyword, longest first.
	strip [][]string
}

var (
	defaultOnce  sync.Once
	defaultVocab *Vocab
)

// Default returns the embedded vocabulary. It panics if the embedded file is
// malformed, which is a build defect.
func Default() *Vocab {
	defaultOnce.Do(func() {
		v, err := Parse(builtinVocab)
		if err != nil {
			panic(fmt.Sprintf("vocab: embedded tables: %v", err))
		}
		defaultVocab = v
	})
	return defaultVocab
}

func Parse(data []byte) (*Vocab, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse vocab: %w", err)
	}
	if len(f.News) == 0 {
		return nil, fmt.Errorf("parse vocab: news table is empty")
	}

	v := &Vocab{tables: make(map[string][][]string)}
	v.tables[KeyNews] = tokenizeAll(f.News)
	v.tables[KeyEuro] = tokenizeAll(f.Euro)
	v.tables[KeyFiller] = tokenizeAll(f.Filler)

	v.strip = append(v.strip, v.tables[KeyNews]...)
	v.strip = append(v.strip, v.tables[KeyFiller]...)
	for _, l := range f.Languages {
		lang := strings.ToLower(strings.TrimSpace(l.Lang))
		if lang == "" {
			return nil, fmt.Errorf("parse vocab: language entry without lang")
		}
		if _, dup := v.tables[lang]; dup {
			return nil, fmt.Errorf("parse vocab: duplicate table %q", lang)
		}
		v.tables[lang] = tokenizeAll(l.Keywords)
		v.langs = append(v.langs, lang)
		v.strip = append(v.strip, v.tables[lang]...)
	}
	sort.SliceStable(v.strip, func(i, j int) bool { return len(v.strip[i]) > len(v.strip[j]) })
	return v, nil
}

// Languages returns the detectable languages in priority order.
func (v *Vocab) Languages() []string {
	return append([]string(nil), v.langs...)
}

// Match reports whether any keyword of table key occurs in phrase as a whole
// token sequence. Unknown keys never match.
func (v *Vocab) Match(phrase, key string) bool {
	tokens := Tokenize(phrase)
	for _, kw := range v.tables[key] {
		if indexSeq(tokens, kw) >= 0 {
			return true
		}
	}
	return false
}

// MatchLang returns the first language, in priority order, whose keywords
// occur in phrase, or "".
func (v *Vocab) MatchLang(phrase string) string {
	tokens := Tokenize(phrase)
	for _, lang := range v.langs {
		for _, kw := range v.tables[lang] {
			if indexSeq(tokens, kw) >= 0 {
				return lang
			}
		}
	}
	return ""
}

// Clean removes news, filler and language keywords from phrase and returns
// the remaining tokens lower-cased and joined by single spaces.
func (v *Vocab) Clean(phrase string) string {
	tokens := Tokenize(phrase)
	for _, kw := range v.strip {
		for {
			i := indexSeq(tokens, kw)
			if i < 0 {
				break
			}
			tokens = append(tokens[:i], tokens[i+len(kw):]...)
		}
	}
	return strings.Join(tokens, " ")
}

// Tokenize lower-cases s and splits it on every rune that is not a letter or
// a digit.
func Tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func tokenizeAll(keywords []string) [][]string {
	out := make([][]string, 0, len(keywords))
	for _, kw := range keywords {
		if t := Tokenize(kw); len(t) > 0 {
			out = append(out, t)
		}
	}
	return out
}

func indexSeq(tokens, seq []string) int {
	if len(seq) == 0 {
		return -1
	}
outer:
	for i := 0; i+len(seq) <= len(tokens); i++ {
		for j := range seq {
			if tokens[i+j] != seq[j] {
				continue outer
			}
		}
		return i
	}
	return -1
}
