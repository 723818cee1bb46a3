// Package i18n serves bot texts from YAML catalogs keyed by dotted paths.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var embedded embed.FS

const (
	localesDir  = "locales"
	fallbackTag = "en"
)

// Translator resolves localized strings using dot-separated keys.
type Translator interface {
	T(key string) string
	// Tf formats the translation of key with fmt verbs.
	Tf(key string, args ...any) string
	Lang() string
}

type catalog map[string]string

// Manager holds the catalogs of every loaded language.
type Manager struct {
	langs       map[string]catalog
	defaultLang string
}

// Load reads the catalogs compiled into the binary.
func Load(defaultLang string) (*Manager, error) {
	return LoadFS(embedded, localesDir, defaultLang)
}

var (
	defaultOnce sync.Once
	defaultTr   Translator
)

// Default returns the embedded English translator. A broken embedded
// catalog is a build defect, so it panics.
func Default() Translator {
	defaultOnce.Do(func() {
		m, err := Load(fallbackTag)
		if err != nil {
			panic(err)
		}
		defaultTr = m.Translator(fallbackTag)
	})
	return defaultTr
}

// LoadFS merges every .yaml or .yml file under dir. Each file maps a
// language tag to a tree of keys.
func LoadFS(fsys fs.FS, dir, defaultLang string) (*Manager, error) {
	if defaultLang == "" {
		defaultLang = fallbackTag
	}

	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("i18n: read %s: %w", dir, err)
	}

	m := &Manager{langs: make(map[string]catalog), defaultLang: defaultLang}
	files := 0
	for _, e := range entries {
		ext := strings.ToLower(path.Ext(e.Name()))
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		files++

		if err := m.merge(fsys, path.Join(dir, e.Name())); err != nil {
			return nil, err
		}
	}

	if files == 0 {
		return nil, fmt.Errorf("i18n: no catalogs in %s", dir)
	}
	if _, ok := m.langs[defaultLang]; !ok {
		return nil, fmt.Errorf("i18n: default language %q is missing", defaultLang)
	}
	return m, nil
}

func (m *Manager) merge(fsys fs.FS, name string) error {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return fmt.Errorf("i18n: read %s: %w", name, err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("i18n: parse %s: %w", name, err)
	}
	if len(doc.Content) == 0 {
		return nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return fmt.Errorf("i18n: %s: top level must map language tags", name)
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		lang := strings.ToLower(strings.TrimSpace(root.Content[i].Value))
		if lang == "" {
			continue
		}
		if m.langs[lang] == nil {
			m.langs[lang] = make(catalog)
		}
		collect("", root.Content[i+1], m.langs[lang])
	}
	return nil
}

// collect flattens a mapping node into dotted keys. Non-scalar leaves
// such as sequences are ignored.
func collect(prefix string, n *yaml.Node, out catalog) {
	switch n.Kind {
	case yaml.ScalarNode:
		if prefix != "" {
			out[prefix] = n.Value
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i].Value
			if key == "" {
				continue
			}
			if prefix != "" {
				key = prefix + "." + key
			}
			collect(key, n.Content[i+1], out)
		}
	}
}

// Translator returns a translator for lang, or for the default language
// when lang is unknown.
func (m *Manager) Translator(lang string) Translator {
	if m == nil {
		return translator{}
	}

	tag := strings.ToLower(strings.TrimSpace(lang))
	if _, ok := m.langs[tag]; !ok {
		tag = m.defaultLang
	}
	return translator{lang: tag, primary: m.langs[tag], fallback: m.langs[m.defaultLang]}
}

// Languages lists the loaded language tags in sorted order.
func (m *Manager) Languages() []string {
	if m == nil {
		return nil
	}

	out := make([]string, 0, len(m.langs))
	for lang := range m.langs {
		out = append(out, lang)
	}
	sort.Strings(out)
	return out
}

type translator struct {
	lang     string
	primary  catalog
	fallback catalog
}

func (t translator) Lang() string { return t.lang }

// T returns the text for key, falling back to the default language and
// finally to the key itself.
func (t translator) T(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return ""
	}
	if v, ok := t.primary[key]; ok {
		return v
	}
	if v, ok := t.fallback[key]; ok {
		return v
	}
	return key
}

func (t translator) Tf(key string, args ...any) string {
	if len(args) == 0 {
		return t.T(key)
	}
	return fmt.Sprintf(t.T(key), args...)
}
