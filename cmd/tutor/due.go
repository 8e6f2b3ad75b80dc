package main

import (
	"encoding/json"
	"time"

	"github.com/spf13/cobra"
)

func newDueCmd(g *globals) *cobra.Command {
	var (
		user       string
		limit      int
		jsonOutput bool
	)
	cmd := &cobra.Command{
		Use:   "due",
		Short: "List concepts due for revision",
		RunE: func(cmd *cobra.Command, _ []string) error {
			userID, err := parseUserID(user)
			if err != nil {
				return err
			}

			app, err := newApplication(cmd.Context(), g.cfg, g.logger)
			if err != nil {
				return err
			}
			defer app.cleanup()

			due, err := app.scheduler.DueConcepts(cmd.Context(), userID, time.Now().UTC(), limit)
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(due)
			}
			renderCandidates(cmd.OutOrStdout(), due)
			return nil
		},
	}
	cmd.Flags().StringVarP(&user, "user", "u", "", "Learner name or UUID")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum concepts to list (0 lists all)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Write JSON instead of a table")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
