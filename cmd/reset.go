package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lockforge/schemaengine/internal/config"
	"github.com/lockforge/schemaengine/internal/dbopen"
	"github.com/lockforge/schemaengine/internal/migrate"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Drop every managed object in the target database and reapply the full migration history.",
	RunE: func(c *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		env, err := config.ResolveEnvironment(cfg, environmentFlag)
		if err != nil {
			return err
		}

		ctx := context.Background()
		eng := migrate.New()
		if err := eng.WithParams(migrate.Params{
			Dialect:             dbopen.DetectDialect(env.DatabaseURL),
			ConnString:          env.DatabaseURL,
			MigrationsDir:       env.MigrationsDir,
			DisableAdvisoryLock: !config.AdvisoryLockEnabled(),
		}); err != nil {
			return err
		}
		if err := eng.Connect(ctx, dbopen.Open); err != nil {
			return err
		}
		defer func() { _ = eng.Close() }()

		if err := eng.Reset(ctx); err != nil {
			return err
		}
		fmt.Println("Database reset.")

		result, err := eng.ApplyMigrations(ctx)
		if err != nil {
			return err
		}
		for _, name := range result.Applied {
			fmt.Printf("Applied %s\n", name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(resetCmd)
}
