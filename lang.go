package geoman

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"

	"github.com/goliatone/go-geoman/layering"
	"github.com/goliatone/go-geoman/pkg/activity"
)

// DefaultLang is the language used when none is given.
const DefaultLang = "en"

//go:embed translations/*.json
var builtinTranslations embed.FS

// Translations is a nested string table, e.g. {"tooltips": {"placeMarker": "..."}}.
type Translations map[string]any

func (t Translations) clone() Translations {
	if t == nil {
		return nil
	}
	return layering.Clone(t)
}

// messages flattens t into dotted message IDs.
func (t Translations) messages() []*i18n.Message {
	var out []*i18n.Message
	var walk func(prefix string, table map[string]any)
	walk = func(prefix string, table map[string]any) {
		for key, value := range table {
			id := key
			if prefix != "" {
				id = prefix + "." + key
			}
			switch v := value.(type) {
			case string:
				out = append(out, &i18n.Message{ID: id, Other: v})
			case map[string]any:
				walk(id, v)
			case Translations:
				walk(id, v)
			}
		}
	}
	walk("", t)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// BuiltinTranslations returns the tables shipped with the package, keyed by
// language.
func BuiltinTranslations() map[string]Translations {
	entries, err := builtinTranslations.ReadDir("translations")
	if err != nil {
		return map[string]Translations{}
	}
	out := make(map[string]Translations, len(entries))
	for _, entry := range entries {
		raw, err := builtinTranslations.ReadFile(path.Join("translations", entry.Name()))
		if err != nil {
			continue
		}
		var table Translations
		if err := json.Unmarshal(raw, &table); err != nil {
			continue
		}
		out[canonicalLang(strings.TrimSuffix(entry.Name(), path.Ext(entry.Name())))] = table
	}
	return out
}

type langState struct {
	mu       sync.RWMutex
	active   string
	fallback string
	tables   map[string]Translations
	bundle   *i18n.Bundle
}

func newLangState(active string, extra map[string]Translations) *langState {
	tables := BuiltinTranslations()
	for lang, table := range extra {
		tables[canonicalLang(lang)] = table.clone()
	}
	active = canonicalLang(active)
	if active == "" {
		active = DefaultLang
	}
	return &langState{active: active, fallback: DefaultLang, tables: tables}
}

// canonicalLang normalizes a BCP 47 tag so "EN" and "en" name the same
// table. Tags that do not parse are only trimmed.
func canonicalLang(tag string) string {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return ""
	}
	parsed, err := language.Parse(tag)
	if err != nil {
		return tag
	}
	return parsed.String()
}

// rebuild must be called with mu held for writing. Tables that cannot be
// loaded are left out of the bundle and reported.
func (s *langState) rebuild() error {
	bundle := i18n.NewBundle(language.Make(s.fallback))
	langs := make([]string, 0, len(s.tables))
	for lang := range s.tables {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	var errs []error
	for _, lang := range langs {
		if msgs := s.tables[lang].messages(); len(msgs) > 0 {
			if err := bundle.AddMessages(language.Make(lang), msgs...); err != nil {
				errs = append(errs, fmt.Errorf("translations %s: %w", lang, err))
			}
		}
	}
	s.bundle = bundle
	return errors.Join(errs...)
}

// SetLang switches the active language. When overrides are given they are
// merged onto the fallback table and stored as the table for lang; the
// fallback table itself is left untouched. The toolbar is rebuilt and a
// pm:langchange event is fired either way.
func (pm *PM) SetLang(ctx context.Context, lang string, overrides Translations, fallback string) {
	lang = canonicalLang(lang)
	if lang == "" {
		lang = DefaultLang
	}
	fallback = canonicalLang(fallback)
	if fallback == "" {
		fallback = DefaultLang
	}

	s := pm.lang
	s.mu.Lock()
	old := s.active
	if overrides != nil {
		s.tables[lang] = layering.MergeLayers(overrides.clone(), s.tables[fallback].clone())
	}
	s.active = lang
	s.fallback = fallback
	err := s.rebuild()
	table := s.tables[lang].clone()
	s.mu.Unlock()

	if err != nil {
		pm.log(LogEvent{Op: "setLang", Target: lang, Err: err})
	}

	if pm.toolbar != nil {
		pm.toolbar.Reinit()
	}
	pm.fire(ctx, activity.BuildLangChangeEvent(activity.LangChange{
		MapID:        pm.mapID,
		OldLang:      old,
		ActiveLang:   lang,
		Fallback:     fallback,
		Translations: map[string]any(table),
	}))
}

// Lang returns the active language.
func (pm *PM) Lang() string {
	pm.lang.mu.RLock()
	defer pm.lang.mu.RUnlock()
	return pm.lang.active
}

// Translations returns a copy of the table stored for lang.
func (pm *PM) Translations(lang string) Translations {
	pm.lang.mu.RLock()
	defer pm.lang.mu.RUnlock()
	return pm.lang.tables[canonicalLang(lang)].clone()
}

// Localize resolves a dotted message ID such as "tooltips.placeMarker" in the
// active language, falling back to the fallback language. Unknown IDs are
// returned unchanged.
func (pm *PM) Localize(id string) string {
	pm.lang.mu.RLock()
	localizer := i18n.NewLocalizer(pm.lang.bundle, pm.lang.active, pm.lang.fallback)
	pm.lang.mu.RUnlock()
	msg, err := localizer.Localize(&i18n.LocalizeConfig{MessageID: id})
	if err != nil || msg == "" {
		return id
	}
	return msg
}
