package mlflow

import (
	"fmt"

	"github.com/databricks/databricks-sdk-go"
	"github.com/databricks/databricks-sdk-go/service/ml"

	"github.com/yeha-adry/spacetime/internal/config"
)

// Client talks to an MLflow tracking server, either Databricks-hosted or
// open source, through the Databricks SDK.
type Client struct {
	experiments ml.ExperimentsInterface
	config      *config.Config
}

func NewClient(cfg *config.Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	var databricksConfig *databricks.Config

	if cfg.IsDatabricks() {
		databricksConfig = &databricks.Config{}

		if cfg.TrackingURI == "databricks" {
			// Host from DATABRICKS_HOST, otherwise the default profile
			if cfg.DatabricksHost != "" {
				databricksConfig.Host = cfg.DatabricksHost
			}
		} else if profile := cfg.GetDatabricksProfile(); profile != "" {
			// databricks://{profile}
			databricksConfig.Profile = profile
		} else {
			// Workspace URL used directly as the host
			databricksConfig.Host = cfg.TrackingURI
		}

		// An explicit token wins over the profile.
		if cfg.DatabricksToken != "" {
			databricksConfig.Token = cfg.DatabricksToken
		}

		// Neither a host nor a profile to authenticate against
		if databricksConfig.Host == "" && databricksConfig.Profile == "" {
			return nil, fmt.Errorf("Databricks host or profile is required when using Databricks MLflow. Set DATABRICKS_HOST environment variable, use a full Databricks URL as tracking URI, or specify a profile with databricks://{profile}")
		}
	} else {
		// Open source MLflow server
		databricksConfig = &databricks.Config{
			Host: cfg.TrackingURI,
			// Open source servers do not authenticate, but the SDK needs a credential.
			Token: "dummy-token-for-regular-mlflow",
		}
	}

	client, err := databricks.NewWorkspaceClient(databricksConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create MLflow client: %w", err)
	}

	return NewClientWithAPI(client.Experiments, cfg), nil
}

// NewClientWithAPI wraps an existing experiments API.
func NewClientWithAPI(experiments ml.ExperimentsInterface, cfg *config.Config) *Client {
	return &Client{
		experiments: experiments,
		config:      cfg,
	}
}
