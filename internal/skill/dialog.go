package skill

import (
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/bytedance/gopkg/lang/fastrand"
	"gopkg.in/yaml.v3"

	"github.com/tgifai/newscast/internal/catalog"
	"github.com/tgifai/newscast/internal/pkg/logs"
)

const (
	DialogIntro          = "intro"
	DialogNoNewsFound    = "no.news.found"
	DialogPlaying        = "playing"
	DialogAlternatives   = "alternatives"
	DialogDefaultSet     = "default.set"
	DialogDefaultCleared = "default.cleared"

	fallbackDialogLang = "en-us"
)

//go:embed dialogs.yaml
var builtinDialogs []byte

// Dialogs holds spoken templates per language and dialog name, each with one
// or more variants.
type Dialogs struct {
	langs map[string]map[string][]*template.Template
}

func ParseDialogs(data []byte) (*Dialogs, error) {
	var raw map[string]map[string][]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse dialogs: %w", err)
	}
	d := &Dialogs{langs: make(map[string]map[string][]*template.Template, len(raw))}
	for lang, dialogs := range raw {
		lang = catalog.NormalizeLang(lang)
		d.langs[lang] = make(map[string][]*template.Template, len(dialogs))
		for name, variants := range dialogs {
			for i, v := range variants {
				tmpl, err := template.New(fmt.Sprintf("%s/%s/%d", lang, name, i)).
					Option("missingkey=zero").
					Parse(v)
				if err != nil {
					return nil, fmt.Errorf("parse dialog %s/%s: %w", lang, name, err)
				}
				d.langs[lang][name] = append(d.langs[lang][name], tmpl)
			}
		}
	}
	return d, nil
}

func mustBuiltinDialogs() *Dialogs {
	d, err := ParseDialogs(builtinDialogs)
	if err != nil {
		panic(err)
	}
	return d
}

// Render picks a random variant of name for lang, falling back to the base
// language, then English, then the dialog name itself.
func (d *Dialogs) Render(lang, name string, vars map[string]string) string {
	variants := d.lookup(lang, name)
	if len(variants) == 0 {
		return name
	}
	tmpl := variants[fastrand.Intn(len(variants))]
	var sb strings.Builder
	if err := tmpl.Execute(&sb, vars); err != nil {
		logs.Warn("[skill] render dialog %s: %v", tmpl.Name(), err)
		return name
	}
	return strings.TrimSpace(sb.String())
}

func (d *Dialogs) lookup(lang, name string) []*template.Template {
	if d == nil {
		return nil
	}
	lang = catalog.NormalizeLang(lang)
	if v := d.langs[lang][name]; len(v) > 0 {
		return v
	}
	base := catalog.BaseLang(lang)
	if v := d.langs[base][name]; len(v) > 0 {
		return v
	}
	for l, dialogs := range d.langs {
		if catalog.BaseLang(l) == base && len(dialogs[name]) > 0 {
			return dialogs[name]
		}
	}
	return d.langs[fallbackDialogLang][name]
}
