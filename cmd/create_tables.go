package cmd

import (
	"github.com/spf13/cobra"

	"dwhpipe/internal/ui"
	"dwhpipe/internal/warehouse"
	"dwhpipe/pkg/errors"
)

var createTablesCmd = &cobra.Command{
	Use:   "create-tables",
	Short: "Drop and recreate all warehouse tables",
	Long: "Resets the schema: drops every staging, dimension, and fact table\n" +
		"and recreates them empty. Safe to run repeatedly.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.ValidateWarehouse(); err != nil {
			return err
		}

		svc := warehouse.NewService(cfg.Warehouse)
		if err := errors.Retry(cmd.Context(), nil, svc.Connect); err != nil {
			return err
		}
		defer svc.Close()

		if err := svc.ResetTables(cmd.Context()); err != nil {
			return err
		}

		ui.ShowSuccess("All tables dropped and recreated")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(createTablesCmd)
}
