package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func initCmd() *cobra.Command {
	var projectName string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold a new storyloom project",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(projectName) == "" {
				return fmt.Errorf("--name is required")
			}
			return runInit(projectName)
		},
	}
	cmd.Flags().StringVar(&projectName, "name", "", "Project name")
	return cmd
}

func runInit(projectName string) error {
	configPath := "storyloom.yaml"
	knowledgePath := "knowledge.yaml"
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("%s already exists", configPath)
	}
	if _, err := os.Stat(knowledgePath); err == nil {
		return fmt.Errorf("%s already exists", knowledgePath)
	}

	configContents := fmt.Sprintf(`project: %s
version: 1

storage:
  backend: sqlite
  dsn: sqlite://storyloom.db

knowledge:
  path: knowledge.yaml

causality:
  significance_threshold: 0.3
  look_back: 10

coherence:
  causal_threshold: 0.7
  valid_threshold: 0.7
  cache_ttl: 5m
`, projectName)
	if err := os.WriteFile(configPath, []byte(configContents), 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", configPath, err)
	}

	knowledgeContents := `version: 1

facts:
  - category: world
    key: setting
    value: describe the established setting here

world_rules: []

characters: []
`
	if err := os.WriteFile(knowledgePath, []byte(knowledgeContents), 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", knowledgePath, err)
	}

	return nil
}
