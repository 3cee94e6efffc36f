// Package knowledge holds the read-only lore, character, and world-rule base
// the validators consult. It is loaded once and injected explicitly; nothing
// here is ambient global state.
package knowledge

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Fact is one established piece of lore, addressable by category and key.
type Fact struct {
	Category string `yaml:"category"`
	Key      string `yaml:"key"`
	Value    string `yaml:"value"`
}

// WorldRule is a hard constraint on what narrative content may assert.
type WorldRule struct {
	ID          string   `yaml:"id"`
	Description string   `yaml:"description"`
	Forbidden   []string `yaml:"forbidden"`
}

// CharacterProfile describes a character's established traits and limits.
type CharacterProfile struct {
	Name          string             `yaml:"name"`
	Traits        map[string]string  `yaml:"traits"`
	NumericTraits map[string]float64 `yaml:"numeric_traits"`
	Forbidden     []string           `yaml:"forbidden"`
	Knowledge     []string           `yaml:"knowledge"`
}

// Base is the loaded knowledge base.
type Base struct {
	Version        int                `yaml:"version"`
	Facts          []Fact             `yaml:"facts"`
	Rules          []WorldRule        `yaml:"world_rules"`
	Characters     []CharacterProfile `yaml:"characters"`
	ThemeOpposites [][]string         `yaml:"theme_opposites"`

	factIndex      map[string]string
	characterIndex map[string]*CharacterProfile
}

// DefaultThemeOpposites is used when the loaded base declares none.
var DefaultThemeOpposites = [][]string{
	{"hope", "despair"},
	{"trust", "betrayal"},
	{"redemption", "corruption"},
	{"belonging", "isolation"},
	{"courage", "fear"},
	{"forgiveness", "revenge"},
}

// Empty returns a usable base with no entries.
func Empty() *Base {
	b := &Base{Version: 1}
	b.index()
	return b
}

// LoadFile reads a YAML knowledge base.
func LoadFile(path string) (*Base, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading knowledge base: %w", err)
	}

	var base Base
	if err := yaml.Unmarshal(data, &base); err != nil {
		return nil, fmt.Errorf("loading knowledge base: %w", err)
	}
	if err := validateBase(&base); err != nil {
		return nil, fmt.Errorf("loading knowledge base: %w", err)
	}

	base.index()
	return &base, nil
}

func validateBase(b *Base) error {
	if b.Version != 1 {
		return fmt.Errorf("unsupported version: %d", b.Version)
	}
	seen := make(map[string]struct{})
	for i, fact := range b.Facts {
		if strings.TrimSpace(fact.Key) == "" {
			return fmt.Errorf("fact %d key is required", i)
		}
		key := factKey(fact.Category, fact.Key)
		if _, exists := seen[key]; exists {
			return fmt.Errorf("duplicate fact: %s/%s", fact.Category, fact.Key)
		}
		seen[key] = struct{}{}
	}
	names := make(map[string]struct{})
	for i, character := range b.Characters {
		if strings.TrimSpace(character.Name) == "" {
			return fmt.Errorf("character %d name is required", i)
		}
		key := strings.ToLower(character.Name)
		if _, exists := names[key]; exists {
			return fmt.Errorf("duplicate character: %s", character.Name)
		}
		names[key] = struct{}{}
	}
	for i, rule := range b.Rules {
		if strings.TrimSpace(rule.ID) == "" {
			return fmt.Errorf("world rule %d id is required", i)
		}
	}
	for i, pair := range b.ThemeOpposites {
		if len(pair) != 2 {
			return fmt.Errorf("theme opposite %d must have exactly two themes", i)
		}
	}
	return nil
}

func (b *Base) index() {
	b.factIndex = make(map[string]string, len(b.Facts))
	for _, fact := range b.Facts {
		b.factIndex[factKey(fact.Category, fact.Key)] = fact.Value
	}
	b.characterIndex = make(map[string]*CharacterProfile, len(b.Characters))
	for i := range b.Characters {
		character := &b.Characters[i]
		b.characterIndex[strings.ToLower(character.Name)] = character
	}
}

func factKey(category, key string) string {
	return strings.ToLower(strings.TrimSpace(category)) + "/" + strings.ToLower(strings.TrimSpace(key))
}

// Fact looks up an established fact. Absence is an ordinary result, never an
// error.
func (b *Base) Fact(category, key string) (string, bool) {
	value, ok := b.factIndex[factKey(category, key)]
	return value, ok
}

// Character looks up a profile by name, case-insensitively.
func (b *Base) Character(name string) (CharacterProfile, bool) {
	profile, ok := b.characterIndex[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return CharacterProfile{}, false
	}
	return *profile, true
}

// WorldRules returns every loaded rule.
func (b *Base) WorldRules() []WorldRule {
	return b.Rules
}

// OpposedThemePairs returns the contradictory-theme table, falling back to the
// defaults when the base declares none.
func (b *Base) OpposedThemePairs() [][]string {
	if len(b.ThemeOpposites) > 0 {
		return b.ThemeOpposites
	}
	return DefaultThemeOpposites
}
