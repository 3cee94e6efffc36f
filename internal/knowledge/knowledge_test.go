package knowledge

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFile(t *testing.T) {
	base := loadBase(t, `version: 1
facts:
  - { category: history, key: founding, value: "The city rose after the flood." }
world_rules:
  - { id: no_resurrection, description: "The dead stay dead.", forbidden: ["came back to life"] }
characters:
  - name: Mira
    traits: { disposition: gentle }
    numeric_traits: { openness: 0.8 }
    forbidden: ["kills in cold blood"]
    knowledge: ["the vault code"]
theme_opposites:
  - [hope, despair]
`)

	if value, ok := base.Fact("History", "Founding"); !ok || value != "The city rose after the flood." {
		t.Fatalf("expected case-insensitive fact lookup, got %q, %v", value, ok)
	}
	if _, ok := base.Fact("history", "collapse"); ok {
		t.Fatalf("expected absent fact to report absence, not error")
	}

	profile, ok := base.Character("mira")
	if !ok {
		t.Fatalf("expected character lookup to succeed")
	}
	if profile.Traits["disposition"] != "gentle" {
		t.Fatalf("expected trait to load, got %v", profile.Traits)
	}
	if profile.NumericTraits["openness"] != 0.8 {
		t.Fatalf("expected numeric trait to load, got %v", profile.NumericTraits)
	}

	if len(base.WorldRules()) != 1 {
		t.Fatalf("expected one world rule, got %d", len(base.WorldRules()))
	}
	pairs := base.OpposedThemePairs()
	if len(pairs) != 1 || pairs[0][0] != "hope" {
		t.Fatalf("expected declared theme opposites to win, got %v", pairs)
	}
}

func TestLoadFile_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		contents string
	}{
		{"bad version", "version: 2\n"},
		{"duplicate fact", `version: 1
facts:
  - { category: a, key: k, value: x }
  - { category: A, key: K, value: y }
`},
		{"duplicate character", `version: 1
characters:
  - name: Mira
  - name: mira
`},
		{"rule without id", `version: 1
world_rules:
  - { description: "x" }
`},
		{"malformed theme pair", `version: 1
theme_opposites:
  - [hope]
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "knowledge.yaml")
			if err := os.WriteFile(path, []byte(tt.contents), 0o600); err != nil {
				t.Fatalf("write: %v", err)
			}
			if _, err := LoadFile(path); err == nil {
				t.Fatalf("expected load to fail")
			}
		})
	}
}

func TestOpposedThemePairs_Default(t *testing.T) {
	base := Empty()
	if len(base.OpposedThemePairs()) == 0 {
		t.Fatalf("expected default theme opposites for an empty base")
	}
}

func TestParseDocument(t *testing.T) {
	doc, err := ParseDocument([]byte(`---
title: Mira
type: character
tags: [protagonist]
traits:
  disposition: gentle
---
Mira keeps the archive.
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if doc.Title != "Mira" || doc.EntryType != "character" {
		t.Fatalf("unexpected document: %+v", doc)
	}
	if len(doc.Tags) != 1 || doc.Tags[0] != "protagonist" {
		t.Fatalf("expected tags to parse, got %v", doc.Tags)
	}
}

func TestParseDocument_Errors(t *testing.T) {
	if _, err := ParseDocument([]byte("no frontmatter here")); err != ErrNoFrontmatter {
		t.Fatalf("expected ErrNoFrontmatter, got %v", err)
	}
	if _, err := ParseDocument([]byte("---\ntype: lore\n---\nbody")); err != ErrMissingTitle {
		t.Fatalf("expected ErrMissingTitle, got %v", err)
	}
	if _, err := ParseDocument([]byte("---\ntitle: X\n---\nbody")); err != ErrMissingType {
		t.Fatalf("expected ErrMissingType, got %v", err)
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "mira.md", `---
title: Mira
type: character
forbidden: ["kills in cold blood"]
---
The archivist.
`)
	writeDoc(t, dir, "founding.md", `---
title: founding
type: lore
category: history
---
The city rose after the flood.
`)
	writeDoc(t, dir, "rule.md", `---
title: no_resurrection
type: world_rule
forbidden: ["came back to life"]
---
The dead stay dead.
`)
	writeDoc(t, dir, "notes.md", "just plain notes, no frontmatter")

	base, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("load dir: %v", err)
	}

	if _, ok := base.Character("Mira"); !ok {
		t.Fatalf("expected character from document")
	}
	if value, ok := base.Fact("history", "founding"); !ok || value != "The city rose after the flood." {
		t.Fatalf("expected lore fact from document, got %q, %v", value, ok)
	}
	if len(base.WorldRules()) != 1 {
		t.Fatalf("expected one world rule, got %d", len(base.WorldRules()))
	}
}

func writeDoc(t *testing.T, dir, name, contents string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(contents), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func loadBase(t *testing.T, contents string) *Base {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "knowledge.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write knowledge: %v", err)
	}
	base, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load knowledge: %v", err)
	}
	return base
}
