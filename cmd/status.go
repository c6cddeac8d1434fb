package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"dwhpipe/internal/cluster"
	"dwhpipe/internal/ui"
	"dwhpipe/internal/warehouse"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show cluster state and table row counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ui.ShowHeader("Warehouse Status")

		ctx := cmd.Context()

		if cfg.Cluster.Identifier != "" && cfg.AWS.Region != "" {
			clients, err := cluster.NewClients(ctx, cfg.AWS)
			if err != nil {
				return err
			}
			mgr := cluster.NewManager(clients.Redshift, *cfg, cfg.IAM.RoleARN)
			state, err := mgr.Status(ctx)
			if err != nil {
				return err
			}
			ui.ShowInfo(fmt.Sprintf("Cluster %s: %s", cfg.Cluster.Identifier, state))
			if state != cluster.StateAvailable {
				return nil
			}
		}

		if err := cfg.ValidateWarehouse(); err != nil {
			ui.ShowWarning(err.Error())
			return nil
		}

		svc := warehouse.NewService(cfg.Warehouse)
		if err := svc.Connect(); err != nil {
			ui.ShowWarning("Cannot reach the warehouse: " + err.Error())
			return nil
		}
		defer svc.Close()

		counts, err := svc.TableCounts(ctx)
		if err != nil {
			return err
		}

		rows := make([][]string, 0, len(counts))
		for _, c := range counts {
			rows = append(rows, []string{c.Table, strconv.FormatInt(c.Rows, 10)})
		}
		ui.RenderTable(os.Stdout, []string{"Table", "Rows"}, rows)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
