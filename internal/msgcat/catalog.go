package msgcat

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

const DefaultLanguage = "en"

//go:embed messages.*.yaml
var defaultFiles embed.FS

var ErrUnknownLanguage = errors.New("unknown message language")

// Catalog holds text templates keyed by dotted paths ("status.classic.won").
// Templates render with missingkey=error. A Catalog is read-only after New.
type Catalog struct {
	templates map[string]*template.Template
}

// New loads the embedded messages for lang and then applies every yaml file
// from overrideDir, if one is given.
func New(lang, overrideDir string) (*Catalog, error) {
	if strings.TrimSpace(lang) == "" {
		lang = DefaultLanguage
	}

	raw, err := fs.ReadFile(defaultFiles, "messages."+lang+".yaml")
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLanguage, lang)
	}

	flat, err := parseYAMLToFlat(raw)
	if err != nil {
		return nil, fmt.Errorf("parse embedded messages: %w", err)
	}

	if strings.TrimSpace(overrideDir) != "" {
		overrides, err := readDir(overrideDir)
		if err != nil {
			return nil, err
		}

		for key, text := range overrides {
			flat[key] = text
		}
	}

	catalog := &Catalog{templates: make(map[string]*template.Template, len(flat))}
	for key, text := range flat {
		tpl, err := template.New(key).Option("missingkey=error").Parse(text)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", key, err)
		}

		catalog.templates[key] = tpl
	}

	return catalog, nil
}

// Languages lists the embedded message sets.
func Languages() []string {
	entries, _ := fs.Glob(defaultFiles, "messages.*.yaml")

	langs := make([]string, 0, len(entries))
	for _, name := range entries {
		langs = append(langs, strings.TrimSuffix(strings.TrimPrefix(name, "messages."), ".yaml"))
	}

	sort.Strings(langs)

	return langs
}

// Render executes the template stored under key.
func (that *Catalog) Render(key string, data any) (string, error) {
	tpl, ok := that.templates[key]
	if !ok {
		return "", fmt.Errorf("template not found: %s", key)
	}

	var b strings.Builder
	if err := tpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render %s: %w", key, err)
	}

	return b.String(), nil
}

// Text renders key and falls back to the key itself, so a broken template never
// leaves the user without an answer.
func (that *Catalog) Text(key string, data any) string {
	text, err := that.Render(key, data)
	if err != nil {
		return key
	}

	return text
}

// Keys returns every known key in sorted order.
func (that *Catalog) Keys() []string {
	keys := make([]string, 0, len(that.templates))
	for key := range that.templates {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}

func readDir(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read template dir: %w", err)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext == ".yaml" || ext == ".yml" {
			files = append(files, entry.Name())
		}
	}

	sort.Strings(files)

	merged := make(map[string]string)
	seen := make(map[string]string)

	for _, name := range files {
		b, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}

		flat, err := parseYAMLToFlat(b)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}

		for key, text := range flat {
			if prev, ok := seen[key]; ok {
				return nil, fmt.Errorf("duplicate override key %q in %s and %s", key, prev, name)
			}

			seen[key] = name
			merged[key] = text
		}
	}

	return merged, nil
}

func parseYAMLToFlat(b []byte) (map[string]string, error) {
	var m map[string]any
	if err := yaml.Unmarshal(b, &m); err != nil {
		return nil, err
	}

	flat := make(map[string]string)
	if err := flattenStrings(m, "", flat); err != nil {
		return nil, err
	}

	return flat, nil
}

// flattenStrings accepts nested maps with string leaves only.
func flattenStrings(src any, prefix string, out map[string]string) error {
	switch v := src.(type) {
	case map[string]any:
		for k, vv := range v {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}

			if err := flattenStrings(vv, key, out); err != nil {
				return err
			}
		}

		return nil
	case string:
		if prefix == "" {
			return errors.New("string value without key")
		}

		out[prefix] = v

		return nil
	case nil:
		return nil
	default:
		return fmt.Errorf("unsupported value at %s: %T", prefix, v)
	}
}
