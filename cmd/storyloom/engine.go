package main

import (
	"fmt"
	"os"
	"time"

	"storyloom/internal/causality"
	"storyloom/internal/coherence"
	"storyloom/internal/config"
	"storyloom/internal/knowledge"
	"storyloom/internal/narrative"
)

func loadKnowledge(path string) (*knowledge.Base, error) {
	if path == "" {
		return knowledge.Empty(), nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("loading knowledge base: %w", err)
	}
	if info.IsDir() {
		return knowledge.LoadDir(path)
	}
	return knowledge.LoadFile(path)
}

func causalityConfig(cfg *config.ProjectConfig) causality.Config {
	out := causality.Config{
		SignificanceThreshold: cfg.Causality.SignificanceThreshold,
		LookBack:              cfg.Causality.LookBack,
	}
	retention := map[narrative.Scale]time.Duration{
		narrative.ScaleImmediate:    cfg.Causality.Retention.Immediate.Std(),
		narrative.ScaleArc:          cfg.Causality.Retention.Arc.Std(),
		narrative.ScaleWorld:        cfg.Causality.Retention.World.Std(),
		narrative.ScaleGenerational: cfg.Causality.Retention.Generational.Std(),
	}
	for scale, window := range retention {
		if window <= 0 {
			delete(retention, scale)
		}
	}
	if len(retention) > 0 {
		out.Retention = retention
	}
	return out
}

func coherenceConfig(cfg *config.ProjectConfig) coherence.Config {
	return coherence.Config{
		CausalThreshold: cfg.Coherence.CausalThreshold,
		ValidThreshold:  cfg.Coherence.ValidThreshold,
		CacheTTL:        cfg.Coherence.CacheTTL.Std(),
		Timeline: coherence.TimelineConfig{
			MaxEventGap:  cfg.Coherence.MaxEventGap.Std(),
			MaxSnapshots: cfg.Coherence.MaxSnapshots,
		},
	}
}
