package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"gbv_reporter/config"
	"gbv_reporter/logging"
	"gbv_reporter/storage"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the report and escalation tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}
		if cfg.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN is not set")
		}
		logging.Setup(logLevel(cfg.LogLevel), cfg.LogFormat)

		db, err := storage.ConnectPostgres(cmd.Context(), cfg.PostgresDSN)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := storage.NewReportStore(db).Migrate(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("✅ Schema is up to date")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
