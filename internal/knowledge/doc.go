package knowledge

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Knowledge can also be authored as markdown documents with YAML frontmatter,
// one entry per file. The frontmatter declares a title and an entry type
// (lore, character, or world_rule); the body carries the prose description.

type Document struct {
	Frontmatter map[string]any
	Title       string
	EntryType   string
	Tags        []string
	Body        string
	SourceFile  string
}

var (
	ErrNoFrontmatter = errors.New("no frontmatter found")
	ErrInvalidYAML   = errors.New("invalid YAML in frontmatter")
	ErrMissingTitle  = errors.New("frontmatter missing required 'title' field")
	ErrMissingType   = errors.New("frontmatter missing required 'type' field")
)

func ParseDocument(content []byte) (*Document, error) {
	trimmed := bytes.TrimLeft(content, "\ufeff\n\r\t ")
	if !bytes.HasPrefix(trimmed, []byte("---\n")) {
		return nil, ErrNoFrontmatter
	}

	rest := trimmed[len("---\n"):]
	end := bytes.Index(rest, []byte("---\n"))
	if end == -1 {
		return nil, ErrNoFrontmatter
	}

	var frontmatter map[string]any
	if err := yaml.Unmarshal(rest[:end], &frontmatter); err != nil {
		return nil, ErrInvalidYAML
	}

	title, ok := frontmatter["title"].(string)
	if !ok || strings.TrimSpace(title) == "" {
		return nil, ErrMissingTitle
	}
	entryType, ok := frontmatter["type"].(string)
	if !ok || strings.TrimSpace(entryType) == "" {
		return nil, ErrMissingType
	}

	tags, err := parseTags(frontmatter["tags"])
	if err != nil {
		return nil, err
	}

	return &Document{
		Frontmatter: frontmatter,
		Title:       title,
		EntryType:   strings.ToLower(entryType),
		Tags:        tags,
		Body:        string(rest[end+len("---\n"):]),
	}, nil
}

func parseTags(value any) ([]string, error) {
	if value == nil {
		return nil, nil
	}
	switch v := value.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, nil
		}
		return []string{v}, nil
	case []any:
		tags := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("tags must be strings")
			}
			if strings.TrimSpace(s) == "" {
				continue
			}
			tags = append(tags, s)
		}
		if len(tags) == 0 {
			return nil, nil
		}
		return tags, nil
	default:
		return nil, fmt.Errorf("tags must be string or list of strings")
	}
}

// LoadDir walks a directory of markdown knowledge documents and merges them
// into a base. Files without frontmatter or with unrecognized entry types are
// skipped rather than failing the load.
func LoadDir(dir string) (*Base, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".md") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking knowledge dir: %w", err)
	}
	sort.Strings(files)

	base := Empty()
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		doc, err := ParseDocument(data)
		if err != nil {
			if errors.Is(err, ErrNoFrontmatter) || errors.Is(err, ErrMissingType) {
				continue
			}
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		doc.SourceFile = path
		if err := base.merge(doc); err != nil {
			return nil, fmt.Errorf("merging %s: %w", path, err)
		}
	}
	base.index()
	return base, nil
}

func (b *Base) merge(doc *Document) error {
	switch doc.EntryType {
	case "lore":
		category, _ := doc.Frontmatter["category"].(string)
		b.Facts = append(b.Facts, Fact{
			Category: category,
			Key:      doc.Title,
			Value:    strings.TrimSpace(doc.Body),
		})
	case "character":
		profile := CharacterProfile{
			Name:          doc.Title,
			Traits:        stringMap(doc.Frontmatter["traits"]),
			NumericTraits: floatMap(doc.Frontmatter["numeric_traits"]),
			Forbidden:     stringList(doc.Frontmatter["forbidden"]),
			Knowledge:     stringList(doc.Frontmatter["knowledge"]),
		}
		b.Characters = append(b.Characters, profile)
	case "world_rule":
		b.Rules = append(b.Rules, WorldRule{
			ID:          doc.Title,
			Description: strings.TrimSpace(doc.Body),
			Forbidden:   stringList(doc.Frontmatter["forbidden"]),
		})
	default:
		// Unrecognized entry types are ignored.
	}
	return nil
}

func stringMap(value any) map[string]string {
	raw, ok := value.(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}

func floatMap(value any) map[string]float64 {
	raw, ok := value.(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]float64, len(raw))
	for k, v := range raw {
		switch n := v.(type) {
		case float64:
			out[k] = n
		case int:
			out[k] = float64(n)
		}
	}
	return out
}

func stringList(value any) []string {
	raw, ok := value.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}
