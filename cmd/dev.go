package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lockforge/schemaengine/internal/config"
	"github.com/lockforge/schemaengine/internal/dbopen"
	"github.com/lockforge/schemaengine/internal/migrate"
	"github.com/lockforge/schemaengine/internal/migrate/diagnostic"
	"github.com/lockforge/schemaengine/internal/migrate/shadow"
)

var shadowURLFlag string

var devCmd = &cobra.Command{
	Use:   "dev",
	Short: "Diagnose drift between the migration history and the target database (dev_diagnostic).",
	RunE: func(c *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		env, err := config.ResolveEnvironment(cfg, environmentFlag)
		if err != nil {
			return err
		}

		shadowCfg := shadow.Config{Mode: shadow.Internal}
		if shadowURLFlag != "" {
			shadowCfg = shadow.Config{Mode: shadow.External, URL: shadowURLFlag}
		} else if env.ShadowDatabaseURL != "" {
			shadowCfg = shadow.Config{Mode: shadow.External, URL: env.ShadowDatabaseURL}
		}

		ctx := context.Background()
		eng := migrate.New()
		if err := eng.WithParams(migrate.Params{
			Dialect:             dbopen.DetectDialect(env.DatabaseURL),
			ConnString:          env.DatabaseURL,
			MigrationsDir:       env.MigrationsDir,
			Shadow:              shadowCfg,
			DisableAdvisoryLock: !config.AdvisoryLockEnabled(),
		}); err != nil {
			return err
		}
		if err := eng.Connect(ctx, dbopen.Open); err != nil {
			return err
		}
		defer func() { _ = eng.Close() }()

		action, err := eng.DevDiagnostic(ctx, dbopen.Open, eng.DB())
		if err != nil {
			return err
		}

		switch action.Kind {
		case diagnostic.CreateMigration:
			fmt.Println("Schema is in sync; safe to create a new migration.")
		case diagnostic.Reset:
			fmt.Printf("Reset required: %s\n", action.Reason)
		}
		return nil
	},
}

func init() {
	devCmd.Flags().StringVar(&shadowURLFlag, "shadow-database-url", "", "connection string for an external shadow database")
	rootCmd.AddCommand(devCmd)
}
