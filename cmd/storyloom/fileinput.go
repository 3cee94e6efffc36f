package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"storyloom/internal/narrative"
)

// YAML input files for one-shot evaluation and branch validation.

type choiceFile struct {
	Text     string            `yaml:"text"`
	Type     string            `yaml:"type"`
	Metadata map[string]string `yaml:"metadata"`
}

type branchFile struct {
	Contents []contentEntry `yaml:"contents"`
}

type contentEntry struct {
	ID         string            `yaml:"id"`
	Text       string            `yaml:"text"`
	Timestamp  time.Time         `yaml:"timestamp"`
	Characters []string          `yaml:"characters"`
	Location   string            `yaml:"location"`
	Themes     []string          `yaml:"themes"`
	Metadata   map[string]string `yaml:"metadata"`
}

func loadChoiceFile(path string) (choiceFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return choiceFile{}, fmt.Errorf("loading choice file: %w", err)
	}
	var file choiceFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return choiceFile{}, fmt.Errorf("loading choice file: %w", err)
	}
	if file.Text == "" {
		return choiceFile{}, fmt.Errorf("loading choice file: text is required")
	}
	return file, nil
}

func loadBranchFile(path string) ([]narrative.Content, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading branch file: %w", err)
	}
	var file branchFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("loading branch file: %w", err)
	}
	if len(file.Contents) == 0 {
		return nil, fmt.Errorf("loading branch file: contents are required")
	}

	branch := make([]narrative.Content, 0, len(file.Contents))
	for i, entry := range file.Contents {
		if entry.ID == "" {
			return nil, fmt.Errorf("loading branch file: content %d id is required", i)
		}
		branch = append(branch, narrative.Content{
			ID:         entry.ID,
			Text:       entry.Text,
			Timestamp:  entry.Timestamp,
			Characters: entry.Characters,
			Location:   entry.Location,
			Themes:     entry.Themes,
			Metadata:   entry.Metadata,
		})
	}
	return branch, nil
}
