// Package taxonomy holds the closed, versioned registry of issue codes and
// flag names. It is the single place where an intake checkbox is mapped to a
// canonical code; anything it cannot resolve is reported as unknown.
package taxonomy

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Context flags are derived from the case unit rather than from selections
const (
	FlagDefendantIsOwner   = "defendant_is_owner"
	FlagDefendantIsManager = "defendant_is_manager"
	FlagDefendantIsEntity  = "defendant_is_entity"
	FlagHouseholdHasMinors = "household_has_minors"
	FlagMultiplePlaintiffs = "multiple_plaintiffs"
	FlagMultipleDefendants = "multiple_defendants"
)

//go:embed registry.yaml
var defaultRegistryYAML []byte

// Category is a group of related issue codes
type Category struct {
	Key     string   `yaml:"key"`
	Label   string   `yaml:"label"`
	Aliases []string `yaml:"aliases"`
	Codes   []string `yaml:"codes"`
}

type registryFile struct {
	Version      string            `yaml:"version"`
	ContextFlags []string          `yaml:"context_flags"`
	Categories   []Category        `yaml:"categories"`
	CodeAliases  map[string]string `yaml:"code_aliases"`
}

// Registry is an immutable lookup table of codes, aliases and flag names
type Registry struct {
	version       string
	categories    []Category
	contextFlags  []string
	codes         []string
	codeCategory  map[string]string
	categoryAlias map[string]string
	codeAlias     map[string]string
	flagNames     []string
	flagSet       map[string]bool
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the registry compiled into the binary. It panics if the
// embedded table is malformed.
func Default() *Registry {
	defaultOnce.Do(func() {
		r, err := Load(defaultRegistryYAML)
		if err != nil {
			panic(fmt.Sprintf("taxonomy: embedded registry: %v", err))
		}
		defaultRegistry = r
	})
	return defaultRegistry
}

// Load parses and validates a registry table
func Load(data []byte) (*Registry, error) {
	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}
	if file.Version == "" {
		return nil, fmt.Errorf("registry version is required")
	}

	r := &Registry{
		version:       file.Version,
		categories:    file.Categories,
		contextFlags:  file.ContextFlags,
		codeCategory:  make(map[string]string),
		categoryAlias: make(map[string]string),
		codeAlias:     make(map[string]string),
		flagSet:       make(map[string]bool),
	}

	addFlag := func(name string) error {
		if r.flagSet[name] {
			return fmt.Errorf("duplicate flag %q", name)
		}
		r.flagSet[name] = true
		r.flagNames = append(r.flagNames, name)
		return nil
	}

	for _, cat := range file.Categories {
		if cat.Key == "" || cat.Key != CanonicalKey(cat.Key) {
			return nil, fmt.Errorf("invalid category key %q", cat.Key)
		}
		if _, exists := r.categoryAlias[cat.Key]; exists {
			return nil, fmt.Errorf("duplicate category %q", cat.Key)
		}
		r.categoryAlias[cat.Key] = cat.Key
		for _, code := range cat.Codes {
			if code != CanonicalKey(code) {
				return nil, fmt.Errorf("invalid code %q in category %q", code, cat.Key)
			}
			full := cat.Key + "." + code
			r.codes = append(r.codes, full)
			r.codeCategory[full] = cat.Key
			if err := addFlag(full); err != nil {
				return nil, err
			}
		}
	}

	// Aliases resolve after all canonical keys are known so an alias can never
	// shadow a real category.
	for _, cat := range file.Categories {
		for _, alias := range cat.Aliases {
			alias = CanonicalKey(alias)
			if existing, ok := r.categoryAlias[alias]; ok && existing != cat.Key {
				return nil, fmt.Errorf("category alias %q collides with %q", alias, existing)
			}
			r.categoryAlias[alias] = cat.Key
		}
	}

	// Alias keys are looked up in canonical form, so store them that way.
	for from, to := range file.CodeAliases {
		if _, ok := r.codeCategory[to]; !ok {
			return nil, fmt.Errorf("code alias %q targets unknown code %q", from, to)
		}
		key := CanonicalKey(from)
		if existing, ok := r.codeAlias[key]; ok && existing != to {
			return nil, fmt.Errorf("code alias %q collides with another alias for %q", from, existing)
		}
		r.codeAlias[key] = to
	}

	for _, cat := range file.Categories {
		if err := addFlag(AggregateFlag(cat.Key)); err != nil {
			return nil, err
		}
	}
	for _, name := range file.ContextFlags {
		if err := addFlag(name); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Version identifies the registry table
func (r *Registry) Version() string { return r.version }

// Categories returns the categories in table order
func (r *Registry) Categories() []Category {
	out := make([]Category, len(r.categories))
	copy(out, r.categories)
	return out
}

// Codes returns every issue code in table order
func (r *Registry) Codes() []string {
	out := make([]string, len(r.codes))
	copy(out, r.codes)
	return out
}

// ContextFlags returns the names of flags derived from the case unit
func (r *Registry) ContextFlags() []string {
	out := make([]string, len(r.contextFlags))
	copy(out, r.contextFlags)
	return out
}

// FlagNames returns every valid flag name: issue codes, category aggregates
// and context flags.
func (r *Registry) FlagNames() []string {
	out := make([]string, len(r.flagNames))
	copy(out, r.flagNames)
	return out
}

// IsFlag reports whether name is a registered flag
func (r *Registry) IsFlag(name string) bool {
	return r.flagSet[name]
}

// HasCode reports whether code is a canonical issue code
func (r *Registry) HasCode(code string) bool {
	_, ok := r.codeCategory[code]
	return ok
}

// CategoryOf returns the category key of a canonical code
func (r *Registry) CategoryOf(code string) string {
	return r.codeCategory[code]
}

// Resolve maps a checkbox within a category group to its canonical code.
// The second return is false when the pair is not in the registry; the
// first return is then the best-effort key for reporting.
func (r *Registry) Resolve(category, checkbox string) (string, bool) {
	cat := CanonicalKey(category)
	box := CanonicalKey(checkbox)
	raw := cat + "." + box

	if canonical, ok := r.categoryAlias[cat]; ok {
		full := canonical + "." + box
		if r.HasCode(full) {
			return full, true
		}
		if target, ok := r.codeAlias[full]; ok {
			return target, true
		}
	}
	if target, ok := r.codeAlias[raw]; ok {
		return target, true
	}
	return raw, false
}

// ResolveCode maps a flat "<category>.<checkbox>" key to its canonical code
func (r *Registry) ResolveCode(key string) (string, bool) {
	cat, box, found := strings.Cut(key, ".")
	if !found {
		return CanonicalKey(key), false
	}
	return r.Resolve(cat, box)
}

// AggregateFlag returns the flag set when any code in category is selected
func AggregateFlag(category string) string {
	return "has_" + category
}

// CanonicalKey lower-cases a UI key and folds separators to underscores
func CanonicalKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '/':
			return '_'
		}
		return r
	}, s)
}
