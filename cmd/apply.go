package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lockforge/schemaengine/internal/config"
	"github.com/lockforge/schemaengine/internal/dbopen"
	"github.com/lockforge/schemaengine/internal/migrate"
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply every pending migration to the target database.",
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

		result, err := eng.ApplyMigrations(ctx)
		if err != nil {
			return err
		}
		if len(result.Applied) == 0 {
			fmt.Println("No pending migrations.")
			return nil
		}
		for _, name := range result.Applied {
			fmt.Printf("Applied %s\n", name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(applyCmd)
}
