package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type ProjectConfig struct {
	Project   string          `yaml:"project"`
	Version   int             `yaml:"version"`
	Storage   StorageConfig   `yaml:"storage"`
	Knowledge KnowledgeConfig `yaml:"knowledge"`
	Causality CausalityConfig `yaml:"causality"`
	Coherence CoherenceConfig `yaml:"coherence"`
}

type StorageConfig struct {
	Backend string `yaml:"backend"`
	DSN     string `yaml:"dsn"`
}

type KnowledgeConfig struct {
	// Path points at either a YAML knowledge base file or a directory of
	// markdown documents with frontmatter.
	Path string `yaml:"path"`
}

type CausalityConfig struct {
	SignificanceThreshold float64         `yaml:"significance_threshold"`
	LookBack              int             `yaml:"look_back"`
	Retention             RetentionConfig `yaml:"retention"`
}

type RetentionConfig struct {
	Immediate    Duration `yaml:"immediate"`
	Arc          Duration `yaml:"arc"`
	World        Duration `yaml:"world"`
	Generational Duration `yaml:"generational"`
}

type CoherenceConfig struct {
	CausalThreshold float64  `yaml:"causal_threshold"`
	ValidThreshold  float64  `yaml:"valid_threshold"`
	CacheTTL        Duration `yaml:"cache_ttl"`
	MaxEventGap     Duration `yaml:"max_event_gap"`
	MaxSnapshots    int      `yaml:"max_snapshots"`
}

// Duration parses YAML durations in Go's syntax ("5m", "24h").
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func LoadProjectConfig(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	if err := validateProjectConfig(&cfg); err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	return &cfg, nil
}

func validateProjectConfig(cfg *ProjectConfig) error {
	if strings.TrimSpace(cfg.Project) == "" {
		return fmt.Errorf("project name is required")
	}
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported version: %d", cfg.Version)
	}

	switch cfg.Storage.Backend {
	case "":
		cfg.Storage.Backend = "sqlite"
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported storage backend: %s", cfg.Storage.Backend)
	}
	if strings.TrimSpace(cfg.Storage.DSN) == "" {
		if cfg.Storage.Backend != "sqlite" {
			return fmt.Errorf("storage dsn is required for backend %s", cfg.Storage.Backend)
		}
		cfg.Storage.DSN = "sqlite://storyloom.db"
	}

	if cfg.Causality.SignificanceThreshold < 0 || cfg.Causality.SignificanceThreshold > 1 {
		return fmt.Errorf("significance_threshold must be in [0, 1]")
	}
	if cfg.Causality.LookBack < 0 {
		return fmt.Errorf("look_back must not be negative")
	}
	if cfg.Coherence.CausalThreshold < 0 || cfg.Coherence.CausalThreshold > 1 {
		return fmt.Errorf("causal_threshold must be in [0, 1]")
	}
	if cfg.Coherence.ValidThreshold < 0 || cfg.Coherence.ValidThreshold > 1 {
		return fmt.Errorf("valid_threshold must be in [0, 1]")
	}

	return nil
}
