package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"dwhpipe/internal/cluster"
	"dwhpipe/internal/loader"
	"dwhpipe/internal/pipeline"
	"dwhpipe/internal/warehouse"
	"dwhpipe/pkg/errors"
)

var (
	etlSkipReset     bool
	etlSkipPreflight bool
)

func addEtlFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&etlSkipReset, "skip-reset", false, "keep the current schema instead of resetting it first")
	fs.BoolVar(&etlSkipPreflight, "skip-preflight", false, "skip listing the source prefixes before loading")
}

var etlCmd = &cobra.Command{
	Use:   "etl",
	Short: "Run the full pipeline: reset, load, transform",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
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

		var lister loader.ObjectLister
		if !etlSkipPreflight {
			clients, err := cluster.NewClients(cmd.Context(), cfg.AWS)
			if err != nil {
				return err
			}
			lister = clients.S3
		}

		p := pipeline.New(svc, *cfg, pipeline.Options{
			SkipReset: etlSkipReset,
			Lister:    lister,
		})
		return p.Run(cmd.Context())
	},
}

func init() {
	addEtlFlags(etlCmd.Flags())
	rootCmd.AddCommand(etlCmd)
}
