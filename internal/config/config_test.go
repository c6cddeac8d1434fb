package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dwhpipe/pkg/models"
)

func useTempConfig(t *testing.T) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv(EnvConfigFile, file)
	return file
}

func TestGetConfigFileFromEnv(t *testing.T) {
	t.Setenv(EnvConfigFile, "/tmp/custom/config.yaml")

	assert.Equal(t, "/tmp/custom/config.yaml", GetConfigFile())
	assert.Equal(t, "/tmp/custom", GetConfigPath())
}

func TestLoadMissingFile(t *testing.T) {
	useTempConfig(t)

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, models.DefaultPort, cfg.Warehouse.Port)
	assert.Equal(t, models.DefaultPollAttempts, cfg.Poll.MaxAttempts)
	assert.Equal(t, "single-node", cfg.Cluster.ClusterType)
	assert.Empty(t, cfg.Warehouse.Host)
}

func TestSaveAndLoad(t *testing.T) {
	file := useTempConfig(t)

	cfg := &models.Config{
		Warehouse: models.Warehouse{
			Host:     "example.redshift.amazonaws.com",
			Port:     5439,
			Database: "dwh",
			Username: "dwhuser",
			Password: "secret",
			Timeout:  "5m",
		},
		Cluster: models.Cluster{
			Identifier:  "dwh-cluster",
			ClusterType: "multi-node",
			NodeType:    "dc2.large",
			NumNodes:    4,
		},
		IAM: models.IAM{RoleName: "dwhpipe-s3-read"},
		AWS: models.AWS{Region: "us-west-2"},
		Storage: models.Storage{
			LogData:     "s3://udacity-dend/log_data",
			LogJSONPath: "s3://udacity-dend/log_json_path.json",
			SongData:    "s3://udacity-dend/song_data",
		},
		Poll: models.Poll{Interval: "15s", MaxAttempts: 40},
	}

	require.NoError(t, Save(cfg))
	assert.True(t, Exists())

	// The file holds credentials and must stay owner-only
	info, err := os.Stat(file)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadInvalidYAML(t *testing.T) {
	file := useTempConfig(t)
	require.NoError(t, os.WriteFile(file, []byte("warehouse: [not a mapping"), 0600))

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmarshal config")
}

func TestExists(t *testing.T) {
	file := useTempConfig(t)

	assert.False(t, Exists())

	require.NoError(t, os.WriteFile(file, []byte("{}\n"), 0600))
	assert.True(t, Exists())
}
