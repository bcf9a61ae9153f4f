package config

import (
	"fmt"
	"path"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

// Databricks domain suffixes for URL detection
var databricksDomains = []string{
	".cloud.databricks.com",
	".azuredatabricks.net",
	".gcp.databricks.com",
}

// Viper keys.
const (
	KeyTrackingURI     = "tracking_uri"
	KeyExperimentID    = "experiment_id"
	KeyExperimentRoot  = "experiment_root"
	KeyDatabricksHost  = "databricks_host"
	KeyDatabricksToken = "databricks_token"
	KeyLogLevel        = "log_level"
	KeyCheckpointDir   = "checkpoint_dir"
	KeyLogDir          = "log_dir"
)

// Config is the process-level configuration of spacetime-init: where the
// tracking server lives and where run artifacts go by default.
type Config struct {
	TrackingURI     string
	ExperimentID    string
	ExperimentRoot  string
	DatabricksHost  string
	DatabricksToken string
	LogLevel        string
	CheckpointDir   string
	LogDir          string
}

func New() *Config {
	return FromViper(viper.GetViper())
}

// FromViper reads a Config from v.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		TrackingURI:     v.GetString(KeyTrackingURI),
		ExperimentID:    v.GetString(KeyExperimentID),
		ExperimentRoot:  v.GetString(KeyExperimentRoot),
		DatabricksHost:  v.GetString(KeyDatabricksHost),
		DatabricksToken: v.GetString(KeyDatabricksToken),
		LogLevel:        v.GetString(KeyLogLevel),
		CheckpointDir:   v.GetString(KeyCheckpointDir),
		LogDir:          v.GetString(KeyLogDir),
	}
}

// SetDefaults registers the default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyTrackingURI, "http://localhost:5000")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyCheckpointDir, "./checkpoints")
	v.SetDefault(KeyLogDir, "./logs")
}

func (c *Config) Validate() error {
	if c.TrackingURI == "" {
		return fmt.Errorf("tracking URI is required")
	}

	if c.LogLevel != "" {
		if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
			return fmt.Errorf("invalid log level: %s (valid: debug, info, warn, error)", c.LogLevel)
		}
	}

	if c.ExperimentRoot != "" && !strings.HasPrefix(c.ExperimentRoot, "/") {
		return fmt.Errorf("experiment root must be an absolute workspace path: %s", c.ExperimentRoot)
	}

	return nil
}

// ExperimentPath places an experiment name under the configured root.
// Databricks only accepts absolute workspace paths, so runs there land in
// /Shared unless a root is configured.
func (c *Config) ExperimentPath(name string) string {
	root := c.ExperimentRoot
	if root == "" && c.IsDatabricks() {
		root = "/Shared"
	}
	if root == "" {
		return name
	}
	return path.Join(root, name)
}

// IsDatabricks checks if the tracking URI points to Databricks
func (c *Config) IsDatabricks() bool {
	if c.TrackingURI == "databricks" {
		return true
	}

	if strings.HasPrefix(c.TrackingURI, "databricks://") {
		return true
	}

	if strings.HasPrefix(c.TrackingURI, "https://") {
		return c.isDatabricksHost(extractHostFromURL(c.TrackingURI))
	}

	return false
}

func extractHostFromURL(url string) string {
	host := strings.TrimPrefix(url, "https://")
	if idx := strings.Index(host, "/"); idx != -1 {
		host = host[:idx]
	}
	return host
}

func (c *Config) isDatabricksHost(host string) bool {
	for _, domain := range databricksDomains {
		if strings.HasSuffix(host, domain) {
			return true
		}
	}
	return false
}

// GetDatabricksProfile extracts the profile name from databricks://{profile} URI
func (c *Config) GetDatabricksProfile() string {
	if !strings.HasPrefix(c.TrackingURI, "databricks://") {
		return ""
	}

	profile := strings.TrimPrefix(c.TrackingURI, "databricks://")
	if idx := strings.Index(profile, "/"); idx != -1 {
		profile = profile[:idx]
	}
	return profile
}
