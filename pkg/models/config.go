package models

import (
	"fmt"
	"strings"
	"time"
)

// Config is the immutable settings value handed to every component at
// construction. There is no ambient global configuration state.
type Config struct {
	Warehouse Warehouse `yaml:"warehouse"`
	Cluster   Cluster   `yaml:"cluster"`
	IAM       IAM       `yaml:"iam"`
	AWS       AWS       `yaml:"aws"`
	Storage   Storage   `yaml:"storage"`
	Poll      Poll      `yaml:"poll"`
}

// Warehouse holds the SQL connection parameters for the Redshift endpoint.
type Warehouse struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Timeout  string `yaml:"timeout"` // e.g. "5m"
}

// TimeoutDuration parses the statement timeout, falling back to the default.
func (w Warehouse) TimeoutDuration() time.Duration {
	if d, err := time.ParseDuration(w.Timeout); err == nil && d > 0 {
		return d
	}
	return DefaultTimeout
}

// Cluster holds the provisioning parameters for the transient cluster.
type Cluster struct {
	Identifier  string `yaml:"identifier"`
	ClusterType string `yaml:"cluster_type"` // single-node or multi-node
	NodeType    string `yaml:"node_type"`
	NumNodes    int    `yaml:"num_nodes"`
}

// IAM identifies the role the cluster assumes to read object storage.
type IAM struct {
	RoleName string `yaml:"role_name"`
	RoleARN  string `yaml:"role_arn"`
}

// AWS holds the credentials used for provisioning and storage access.
type AWS struct {
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Region          string `yaml:"region"`
}

// Storage names the source prefixes holding the raw JSON datasets.
type Storage struct {
	LogData     string `yaml:"log_data"`
	LogJSONPath string `yaml:"log_jsonpath"`
	SongData    string `yaml:"song_data"`
}

// Poll controls the cluster readiness polling loop.
type Poll struct {
	Interval    string `yaml:"interval"` // e.g. "30s"
	MaxAttempts int    `yaml:"max_attempts"`
}

// IntervalDuration parses the poll interval, falling back to the default.
func (p Poll) IntervalDuration() time.Duration {
	if d, err := time.ParseDuration(p.Interval); err == nil && d > 0 {
		return d
	}
	return DefaultPollInterval
}

// Defaults applied by Normalize when fields are unset.
const (
	DefaultPort         = 5439
	DefaultPollInterval = 30 * time.Second
	DefaultPollAttempts = 20
	DefaultTimeout      = 5 * time.Minute
)

// Normalize fills unset fields with defaults.
func (c *Config) Normalize() {
	if c.Warehouse.Port == 0 {
		c.Warehouse.Port = DefaultPort
	}
	if c.Poll.MaxAttempts == 0 {
		c.Poll.MaxAttempts = DefaultPollAttempts
	}
	if c.Cluster.ClusterType == "" {
		c.Cluster.ClusterType = "single-node"
	}
}

// ValidateWarehouse checks the fields a SQL connection needs. The host is
// only known once the cluster is available, so it is checked here and not
// by the provisioning commands.
func (c *Config) ValidateWarehouse() error {
	if c.Warehouse.Host == "" {
		return fmt.Errorf("warehouse host is required; run 'dwhpipe cluster --create' or 'dwhpipe cluster --status' to obtain the endpoint")
	}
	if c.Warehouse.Database == "" {
		return fmt.Errorf("warehouse database is required")
	}
	if c.Warehouse.Username == "" {
		return fmt.Errorf("warehouse username is required")
	}
	if c.Warehouse.Password == "" {
		return fmt.Errorf("warehouse password is required")
	}
	return nil
}

// Validate checks the fields every pipeline stage depends on.
func (c *Config) Validate() error {
	if c.Warehouse.Database == "" {
		return fmt.Errorf("warehouse database is required")
	}
	if c.Warehouse.Username == "" {
		return fmt.Errorf("warehouse username is required")
	}
	if c.Warehouse.Password == "" {
		return fmt.Errorf("warehouse password is required")
	}
	if c.Warehouse.Timeout != "" {
		if _, err := time.ParseDuration(c.Warehouse.Timeout); err != nil {
			return fmt.Errorf("invalid warehouse timeout: %w", err)
		}
	}
	if c.Cluster.Identifier == "" {
		return fmt.Errorf("cluster identifier is required")
	}
	if c.Cluster.NodeType == "" {
		return fmt.Errorf("cluster node type is required")
	}
	if c.Cluster.ClusterType == "multi-node" && c.Cluster.NumNodes < 2 {
		return fmt.Errorf("multi-node cluster requires at least 2 nodes")
	}
	if c.AWS.Region == "" {
		return fmt.Errorf("aws region is required")
	}
	if c.Poll.Interval != "" {
		if _, err := time.ParseDuration(c.Poll.Interval); err != nil {
			return fmt.Errorf("invalid poll interval: %w", err)
		}
	}
	for _, p := range []struct{ field, value string }{
		{"storage log_data", c.Storage.LogData},
		{"storage song_data", c.Storage.SongData},
		{"storage log_jsonpath", c.Storage.LogJSONPath},
	} {
		if p.value == "" {
			return fmt.Errorf("%s is required", p.field)
		}
		if !strings.HasPrefix(p.value, "s3://") {
			return fmt.Errorf("%s must be an s3:// path, got %q", p.field, p.value)
		}
	}
	return nil
}
