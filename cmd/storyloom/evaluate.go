package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"storyloom/internal/causality"
	"storyloom/internal/config"
	"storyloom/internal/narrative"
)

func evaluateCmd() *cobra.Command {
	var text string
	var choiceType string
	var file string
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Score a choice's impact across all time scales",
		RunE: func(cmd *cobra.Command, args []string) error {
			if text == "" && file == "" {
				return fmt.Errorf("--text or --file is required")
			}
			return runEvaluate(text, choiceType, file)
		},
	}
	cmd.Flags().StringVar(&text, "text", "", "The choice text")
	cmd.Flags().StringVar(&choiceType, "type", "dialogue", "Choice type")
	cmd.Flags().StringVar(&file, "file", "", "YAML choice file instead of --text")
	return cmd
}

func runEvaluate(text, choiceType, file string) error {
	cfg, err := config.LoadProjectConfig("storyloom.yaml")
	if err != nil {
		return err
	}

	choice := narrative.PlayerChoice{
		SessionID: "adhoc",
		Text:      text,
		Type:      narrative.ChoiceType(choiceType),
		Timestamp: time.Now(),
	}
	if file != "" {
		loaded, err := loadChoiceFile(file)
		if err != nil {
			return err
		}
		choice.Text = loaded.Text
		choice.Metadata = loaded.Metadata
		if loaded.Type != "" {
			choice.Type = narrative.ChoiceType(loaded.Type)
		}
	}

	manager := causality.NewManager(causalityConfig(cfg), nil)
	assessments := manager.EvaluateChoiceImpact(choice, narrative.AllScales)
	for _, scale := range narrative.AllScales {
		assessment, ok := assessments[scale]
		if !ok {
			continue
		}
		fmt.Fprintf(os.Stdout, "%-13s magnitude=%.2f causal=%.2f alignment=%.2f confidence=%.2f\n",
			string(scale)+":", assessment.Magnitude, assessment.CausalStrength,
			assessment.TherapeuticAlignment, assessment.Confidence)
	}
	return nil
}
