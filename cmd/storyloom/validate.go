package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"storyloom/internal/coherence"
	"storyloom/internal/config"
	"storyloom/internal/narrative"
)

func validateCmd() *cobra.Command {
	var sessionID string
	var file string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Run consistency checks over a stored session or a branch file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if sessionID == "" && file == "" {
				return fmt.Errorf("--session or --file is required")
			}
			return runValidate(sessionID, file)
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "Stored session to validate")
	cmd.Flags().StringVar(&file, "file", "", "YAML branch file to validate instead")
	return cmd
}

func runValidate(sessionID, file string) error {
	ctx := context.Background()

	cfg, err := config.LoadProjectConfig("storyloom.yaml")
	if err != nil {
		return err
	}

	kb, err := loadKnowledge(cfg.Knowledge.Path)
	if err != nil {
		return err
	}

	var history []narrative.Content
	if file != "" {
		history, err = loadBranchFile(file)
		if err != nil {
			return err
		}
		sessionID = "branch"
	} else {
		db, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer db.Close(ctx)

		history, err = db.ListContent(ctx, sessionID)
		if err != nil {
			return err
		}
		if len(history) == 0 {
			return fmt.Errorf("session %s has no stored content", sessionID)
		}
	}

	orchestrator := coherence.NewOrchestrator(coherenceConfig(cfg), kb, nil, nil)

	var errorIssues []narrative.ConsistencyIssue
	var warnIssues []narrative.ConsistencyIssue
	collect := func(issues []narrative.ConsistencyIssue) {
		for _, issue := range issues {
			switch issue.Severity {
			case narrative.SeverityError:
				errorIssues = append(errorIssues, issue)
			case narrative.SeverityWarn:
				warnIssues = append(warnIssues, issue)
			}
		}
	}

	for _, content := range history {
		result := orchestrator.ValidateNarrativeConsistency(sessionID, content)
		collect(result.Issues)
	}
	collect(orchestrator.ValidateTimeline(sessionID))
	collect(orchestrator.ValidateBranch(history).Issues)

	if len(errorIssues) == 0 && len(warnIssues) == 0 {
		fmt.Fprintln(os.Stdout, "No issues found.")
		return nil
	}

	if len(errorIssues) > 0 {
		fmt.Fprintf(os.Stdout, "Errors (%d):\n", len(errorIssues))
		printIssues(os.Stdout, errorIssues)
	}
	if len(warnIssues) > 0 {
		if len(errorIssues) > 0 {
			fmt.Fprintln(os.Stdout, "")
		}
		fmt.Fprintf(os.Stdout, "Warnings (%d):\n", len(warnIssues))
		printIssues(os.Stdout, warnIssues)
	}

	if len(errorIssues) > 0 {
		return fmt.Errorf("validation found errors")
	}
	return nil
}

func printIssues(out *os.File, issues []narrative.ConsistencyIssue) {
	for _, issue := range issues {
		location := string(issue.Type)
		if len(issue.AffectedElements) > 0 {
			location = fmt.Sprintf("%s [%s]", location, issue.AffectedElements[0])
		}
		fmt.Fprintf(out, "  - %s: %s (confidence %.2f)\n", location, issue.Description, issue.Confidence)
	}
}
