package cmd

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"dwhpipe/internal/config"
	"dwhpipe/internal/ui"
	"dwhpipe/pkg/models"
)

var rootCmd = &cobra.Command{
	Use:   "dwhpipe",
	Short: "Load app-usage logs into a Redshift star schema",
	Long: "dwhpipe provisions a transient Redshift cluster, bulk-loads raw JSON\n" +
		"event and song files from S3 into staging tables, and transforms them\n" +
		"into a star schema for analytical querying.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.ShowError(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	if file := os.Getenv(config.EnvConfigFile); file != "" {
		viper.SetConfigFile(file)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home + "/.dwhpipe")
		}
	}

	viper.SetEnvPrefix("DWHPIPE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Config file not found is okay; setup creates it.
	_ = viper.ReadInConfig()
}

// loadConfig reads the config file and layers viper on top, so values like
// DWHPIPE_WAREHOUSE_PASSWORD or DWHPIPE_AWS_REGION override the file
// without editing it.
func loadConfig() (*models.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	applyOverrides(cfg)
	return cfg, nil
}

func applyOverrides(cfg *models.Config) {
	stringKeys := []struct {
		key  string
		dest *string
	}{
		{"warehouse.host", &cfg.Warehouse.Host},
		{"warehouse.database", &cfg.Warehouse.Database},
		{"warehouse.username", &cfg.Warehouse.Username},
		{"warehouse.password", &cfg.Warehouse.Password},
		{"warehouse.timeout", &cfg.Warehouse.Timeout},
		{"cluster.identifier", &cfg.Cluster.Identifier},
		{"cluster.node_type", &cfg.Cluster.NodeType},
		{"iam.role_name", &cfg.IAM.RoleName},
		{"iam.role_arn", &cfg.IAM.RoleARN},
		{"aws.access_key_id", &cfg.AWS.AccessKeyID},
		{"aws.secret_access_key", &cfg.AWS.SecretAccessKey},
		{"aws.region", &cfg.AWS.Region},
		{"storage.log_data", &cfg.Storage.LogData},
		{"storage.log_jsonpath", &cfg.Storage.LogJSONPath},
		{"storage.song_data", &cfg.Storage.SongData},
		{"poll.interval", &cfg.Poll.Interval},
	}
	for _, k := range stringKeys {
		if v := viper.GetString(k.key); v != "" {
			*k.dest = v
		}
	}

	if v := viper.GetInt("warehouse.port"); v != 0 {
		cfg.Warehouse.Port = v
	}
	if v := viper.GetInt("cluster.num_nodes"); v != 0 {
		cfg.Cluster.NumNodes = v
	}
	if v := viper.GetInt("poll.max_attempts"); v != 0 {
		cfg.Poll.MaxAttempts = v
	}
}
