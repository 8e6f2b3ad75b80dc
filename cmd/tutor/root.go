package main

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/phrazzld/scry-tutor/internal/config"
	"github.com/phrazzld/scry-tutor/internal/platform/logger"
)

// userNamespace scopes user IDs derived from plain names.
var userNamespace = uuid.MustParse("6f1c2a52-1b0e-4f0b-9d6c-5e2b7f3a9c10")

// globals carries state shared by every subcommand after PersistentPreRunE.
type globals struct {
	configPath string
	cfg        *config.Config
	logger     *slog.Logger
}

func newRootCmd() *cobra.Command {
	g := &globals{}

	root := &cobra.Command{
		Use:           "tutor",
		Short:         "Adaptive tutoring engine",
		Long:          "tutor routes learner messages through a concept graph, tracks per-concept mastery and suggests revisions as knowledge decays.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(g.configPath)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			log, err := logger.Setup(cfg.Log)
			if err != nil {
				return fmt.Errorf("failed to set up logger: %w", err)
			}
			g.cfg = cfg
			g.logger = log
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "Config file (default: ./config.yaml if present)")

	root.AddCommand(
		newChatCmd(g),
		newDueCmd(g),
		newGraphCmd(g),
		newMigrateCmd(g),
		newServeOpsCmd(g),
	)
	return root
}

// parseUserID accepts either a UUID or any other name, which is mapped to a
// stable UUID.
func parseUserID(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, fmt.Errorf("user cannot be empty")
	}
	if id, err := uuid.Parse(raw); err == nil {
		return id, nil
	}
	return uuid.NewSHA1(userNamespace, []byte(raw)), nil
}
