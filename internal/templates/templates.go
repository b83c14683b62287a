// README: Tenant-type reply templates with {{var}} substitution and pluralization.
package templates

import (
	"embed"
	"fmt"
	"io/fs"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed bundles/*.yaml
var bundleFS embed.FS

// defaultBundle backs any company type without a dedicated bundle.
const defaultBundle = "default"

type bundle struct {
	Templates   map[string]string `yaml:"templates"`
	Terminology map[string]string `yaml:"terminology"`
}

// Renderer resolves (companyType, key) to a template and substitutes
// {{var}} placeholders. Bundles are immutable after construction.
type Renderer struct {
	bundles map[string]bundle
}

var placeholderRe = regexp.MustCompile(`\{\{(\w+)\}\}`)

func NewRenderer() (*Renderer, error) {
	entries, err := fs.ReadDir(bundleFS, "bundles")
	if err != nil {
		return nil, fmt.Errorf("read template bundles: %w", err)
	}
	r := &Renderer{bundles: make(map[string]bundle, len(entries))}
	for _, e := range entries {
		name := strings.TrimSuffix(e.Name(), ".yaml")
		raw, err := fs.ReadFile(bundleFS, "bundles/"+e.Name())
		if err != nil {
			return nil, fmt.Errorf("read bundle %s: %w", e.Name(), err)
		}
		var b bundle
		if err := yaml.Unmarshal(raw, &b); err != nil {
			return nil, fmt.Errorf("parse bundle %s: %w", e.Name(), err)
		}
		r.bundles[name] = b
	}
	if _, ok := r.bundles[defaultBundle]; !ok {
		return nil, fmt.Errorf("default template bundle missing")
	}
	return r, nil
}

// Render resolves and substitutes a template for the company type.
func (r *Renderer) Render(companyType, key string, vars map[string]any) (string, error) {
	return r.RenderWith(companyType, key, vars, nil)
}

// RenderWith additionally applies per-tenant terminology overrides
// ({reservation, person, people, service}) on top of the bundle's table.
func (r *Renderer) RenderWith(companyType, key string, vars map[string]any, overrides map[string]string) (string, error) {
	b, ok := r.bundles[companyType]
	tpl, found := "", false
	if ok {
		tpl, found = b.Templates[key]
	}
	if !found {
		def := r.bundles[defaultBundle]
		if tpl, found = def.Templates[key]; !found {
			return "", fmt.Errorf("template %q not found for type %q", key, companyType)
		}
	}

	terms := r.terminology(companyType, overrides)
	merged := make(map[string]any, len(vars)+len(terms)+1)
	for k, v := range terms {
		merged[k] = v
	}
	for k, v := range vars {
		merged[k] = v
	}
	// Pluralized person word driven by the guests count.
	if g, ok := intVar(merged["guests"]); ok {
		if g == 1 {
			merged["person_word"] = terms["person"]
		} else {
			merged["person_word"] = terms["people"]
		}
	}

	out := placeholderRe.ReplaceAllStringFunc(tpl, func(m string) string {
		name := placeholderRe.FindStringSubmatch(m)[1]
		if v, ok := merged[name]; ok {
			return fmt.Sprint(v)
		}
		return ""
	})
	return strings.TrimSpace(out), nil
}

func (r *Renderer) terminology(companyType string, overrides map[string]string) map[string]string {
	terms := map[string]string{
		"reservation": "reserva",
		"person":      "persona",
		"people":      "personas",
		"service":     "servicio",
	}
	for k, v := range r.bundles[defaultBundle].Terminology {
		terms[k] = v
	}
	if b, ok := r.bundles[companyType]; ok {
		for k, v := range b.Terminology {
			terms[k] = v
		}
	}
	for k, v := range overrides {
		if v != "" {
			terms[k] = v
		}
	}
	return terms
}

func intVar(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case string:
		i, err := strconv.Atoi(n)
		if err != nil {
			return 0, false
		}
		return i, true
	}
	return 0, false
}
