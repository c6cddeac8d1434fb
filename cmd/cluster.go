package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"dwhpipe/internal/cluster"
	"dwhpipe/internal/config"
	"dwhpipe/internal/ui"
	"dwhpipe/pkg/models"
)

var (
	clusterCreate   bool
	clusterDelete   bool
	clusterStatus   bool
	clusterWithRole bool
)

var clusterCmd = &cobra.Command{
	Use:   "cluster",
	Short: "Create, inspect, or delete the warehouse cluster",
	Long: "Manages the transient Redshift cluster. --create ensures the S3 read\n" +
		"role exists, submits the creation request, and waits for the cluster\n" +
		"to become available; --delete tears it down; --status reports state.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !clusterCreate && !clusterDelete && !clusterStatus {
			return fmt.Errorf("one of --create, --delete, or --status is required")
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		ctx := cmd.Context()
		clients, err := cluster.NewClients(ctx, cfg.AWS)
		if err != nil {
			return err
		}

		switch {
		case clusterCreate:
			return runClusterCreate(cmd, clients, cfg)
		case clusterDelete:
			return runClusterDelete(cmd, clients, cfg)
		default:
			return runClusterStatus(cmd, clients, cfg)
		}
	},
}

func runClusterCreate(cmd *cobra.Command, clients *cluster.Clients, cfg *models.Config) error {
	ctx := cmd.Context()

	roleARN := cfg.IAM.RoleARN
	if roleARN == "" {
		roleName := cfg.IAM.RoleName
		if roleName == "" {
			return fmt.Errorf("iam role_name is required to create the storage role")
		}
		ui.ShowInfo("Ensuring IAM role " + roleName)
		arn, err := cluster.EnsureRole(ctx, clients.IAM, roleName)
		if err != nil {
			return err
		}
		roleARN = arn
	}

	mgr := cluster.NewManager(clients.Redshift, *cfg, roleARN)

	state, err := mgr.Create(ctx)
	if err != nil {
		return err
	}
	if state == cluster.StateAvailable {
		ui.ShowInfo("Cluster already available; no creation request submitted")
	} else {
		ui.ShowInfo("Waiting for cluster " + cfg.Cluster.Identifier)
		if _, err := mgr.WaitForAvailable(ctx); err != nil {
			return err
		}
	}

	host, port, err := mgr.Endpoint(ctx)
	if err != nil {
		return err
	}
	ui.ShowSuccess(fmt.Sprintf("Cluster available at %s:%d", host, port))

	// Persist the endpoint and role so etl/create-tables can connect.
	cfg.Warehouse.Host = host
	cfg.Warehouse.Port = port
	cfg.IAM.RoleARN = roleARN
	if err := config.Save(cfg); err != nil {
		return err
	}
	ui.ShowInfo("Endpoint written to " + config.GetConfigFile())
	return nil
}

func runClusterDelete(cmd *cobra.Command, clients *cluster.Clients, cfg *models.Config) error {
	ctx := cmd.Context()
	mgr := cluster.NewManager(clients.Redshift, *cfg, cfg.IAM.RoleARN)

	if err := mgr.Delete(ctx); err != nil {
		return err
	}
	ui.ShowInfo("Waiting for cluster deletion")
	if _, err := mgr.WaitForDeleted(ctx); err != nil {
		return err
	}
	ui.ShowSuccess("Cluster deleted")

	if clusterWithRole && cfg.IAM.RoleName != "" {
		if err := cluster.RemoveRole(ctx, clients.IAM, cfg.IAM.RoleName); err != nil {
			return err
		}
		ui.ShowSuccess("IAM role " + cfg.IAM.RoleName + " removed")
	}
	return nil
}

func runClusterStatus(cmd *cobra.Command, clients *cluster.Clients, cfg *models.Config) error {
	ctx := cmd.Context()
	mgr := cluster.NewManager(clients.Redshift, *cfg, cfg.IAM.RoleARN)

	state, err := mgr.Status(ctx)
	if err != nil {
		return err
	}
	fmt.Println(state)

	if state == cluster.StateAvailable {
		host, port, err := mgr.Endpoint(ctx)
		if err == nil {
			ui.ShowInfo(fmt.Sprintf("Endpoint: %s:%d", host, port))
		}
	}
	return nil
}

func init() {
	flags := clusterCmd.Flags()
	flags.BoolVarP(&clusterCreate, "create", "c", false, "create the cluster and wait until available")
	flags.BoolVarP(&clusterDelete, "delete", "d", false, "delete the cluster")
	flags.BoolVarP(&clusterStatus, "status", "s", false, "print the cluster state")
	flags.BoolVar(&clusterWithRole, "with-role", false, "also remove the IAM role when deleting")
	clusterCmd.MarkFlagsMutuallyExclusive("create", "delete", "status")
	rootCmd.AddCommand(clusterCmd)
}
