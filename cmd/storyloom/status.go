package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"storyloom/internal/config"
)

func statusCmd() *cobra.Command {
	var sessionID string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show stored sessions and their record counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(sessionID)
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "Limit output to one session")
	return cmd
}

func runStatus(sessionID string) error {
	ctx := context.Background()

	cfg, err := config.LoadProjectConfig("storyloom.yaml")
	if err != nil {
		return err
	}

	db, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close(ctx)

	sessions := []string{sessionID}
	if sessionID == "" {
		sessions, err = db.Sessions(ctx)
		if err != nil {
			return err
		}
		if len(sessions) == 0 {
			fmt.Fprintln(os.Stdout, "No stored sessions.")
			return nil
		}
	}

	for _, session := range sessions {
		contents, err := db.ListContent(ctx, session)
		if err != nil {
			return err
		}
		events, err := db.ListEvents(ctx, session)
		if err != nil {
			return err
		}
		resolutions, err := db.ListResolutions(ctx, session)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "%s: %d contents, %d events, %d resolutions\n",
			session, len(contents), len(events), len(resolutions))
	}
	return nil
}
