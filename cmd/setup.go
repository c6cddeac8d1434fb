package cmd

import (
	"strconv"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"dwhpipe/internal/config"
	"dwhpipe/internal/ui"
	"dwhpipe/pkg/models"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactively create the configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ui.ShowHeader("dwhpipe Setup")

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		if config.Exists() {
			overwrite := false
			prompt := &survey.Confirm{
				Message: "A configuration file already exists. Overwrite it?",
			}
			if err := survey.AskOne(prompt, &overwrite); err != nil {
				return err
			}
			if !overwrite {
				return nil
			}
		}

		if err := askConfig(cfg); err != nil {
			return err
		}

		if err := config.Save(cfg); err != nil {
			return err
		}
		ui.ShowSuccess("Configuration written to " + config.GetConfigFile())
		return nil
	},
}

func askConfig(cfg *models.Config) error {
	questions := []*survey.Question{
		{
			Name:     "identifier",
			Prompt:   &survey.Input{Message: "Cluster identifier:", Default: orDefault(cfg.Cluster.Identifier, "dwhpipe-cluster")},
			Validate: survey.Required,
		},
		{
			Name:   "nodeType",
			Prompt: &survey.Input{Message: "Node type:", Default: orDefault(cfg.Cluster.NodeType, "dc2.large")},
		},
		{
			Name: "clusterType",
			Prompt: &survey.Select{
				Message: "Cluster type:",
				Options: []string{"single-node", "multi-node"},
				Default: orDefault(cfg.Cluster.ClusterType, "single-node"),
			},
		},
		{
			Name:     "region",
			Prompt:   &survey.Input{Message: "AWS region:", Default: orDefault(cfg.AWS.Region, "us-west-2")},
			Validate: survey.Required,
		},
		{
			Name:   "accessKey",
			Prompt: &survey.Input{Message: "AWS access key id (blank for default chain):", Default: cfg.AWS.AccessKeyID},
		},
		{
			Name:   "secretKey",
			Prompt: &survey.Password{Message: "AWS secret access key:"},
		},
		{
			Name:     "roleName",
			Prompt:   &survey.Input{Message: "IAM role name:", Default: orDefault(cfg.IAM.RoleName, "dwhpipe-s3-read")},
			Validate: survey.Required,
		},
		{
			Name:     "database",
			Prompt:   &survey.Input{Message: "Database name:", Default: orDefault(cfg.Warehouse.Database, "dwh")},
			Validate: survey.Required,
		},
		{
			Name:     "username",
			Prompt:   &survey.Input{Message: "Master username:", Default: orDefault(cfg.Warehouse.Username, "dwhuser")},
			Validate: survey.Required,
		},
		{
			Name:     "password",
			Prompt:   &survey.Password{Message: "Master password:"},
			Validate: survey.Required,
		},
		{
			Name:   "logData",
			Prompt: &survey.Input{Message: "Event log prefix:", Default: orDefault(cfg.Storage.LogData, "s3://udacity-dend/log_data")},
		},
		{
			Name:   "logJSONPath",
			Prompt: &survey.Input{Message: "Event jsonpaths document:", Default: orDefault(cfg.Storage.LogJSONPath, "s3://udacity-dend/log_json_path.json")},
		},
		{
			Name:   "songData",
			Prompt: &survey.Input{Message: "Song catalog prefix:", Default: orDefault(cfg.Storage.SongData, "s3://udacity-dend/song_data")},
		},
	}

	answers := struct {
		Identifier  string
		NodeType    string
		ClusterType string
		Region      string
		AccessKey   string
		SecretKey   string
		RoleName    string
		Database    string
		Username    string
		Password    string
		LogData     string
		LogJSONPath string
		SongData    string
	}{}

	if err := survey.Ask(questions, &answers); err != nil {
		return err
	}

	cfg.Cluster.Identifier = answers.Identifier
	cfg.Cluster.NodeType = answers.NodeType
	cfg.Cluster.ClusterType = answers.ClusterType
	if answers.ClusterType == "multi-node" {
		numNodes := ""
		if err := survey.AskOne(&survey.Input{Message: "Number of nodes:", Default: "4"}, &numNodes); err != nil {
			return err
		}
		cfg.Cluster.NumNodes = atoiOr(numNodes, 4)
	}
	cfg.AWS.Region = answers.Region
	cfg.AWS.AccessKeyID = answers.AccessKey
	if answers.SecretKey != "" {
		cfg.AWS.SecretAccessKey = answers.SecretKey
	}
	cfg.IAM.RoleName = answers.RoleName
	cfg.Warehouse.Database = answers.Database
	cfg.Warehouse.Username = answers.Username
	cfg.Warehouse.Password = answers.Password
	cfg.Storage.LogData = answers.LogData
	cfg.Storage.LogJSONPath = answers.LogJSONPath
	cfg.Storage.SongData = answers.SongData
	cfg.Normalize()
	return nil
}

func orDefault(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}

func atoiOr(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 2 {
		return fallback
	}
	return n
}

func init() {
	rootCmd.AddCommand(setupCmd)
}
