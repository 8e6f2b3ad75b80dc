package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/phrazzld/scry-tutor/internal/platform/postgres"
)

func newMigrateCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate <" + strings.Join(postgres.MigrationCommands, "|") + ">",
		Short:     "Run Postgres schema migrations",
		Args:      cobra.ExactArgs(1),
		ValidArgs: postgres.MigrationCommands,
		RunE: func(cmd *cobra.Command, args []string) error {
			if g.cfg.Database.Driver != "postgres" {
				return fmt.Errorf("migrations need database.driver=postgres, have %q", g.cfg.Database.Driver)
			}

			db, err := postgres.Open(cmd.Context(), g.cfg.Database.URL, g.logger)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			return postgres.Migrate(cmd.Context(), db, args[0], g.logger)
		},
	}
}
