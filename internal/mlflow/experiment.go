package mlflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/databricks/databricks-sdk-go/apierr"
	"github.com/databricks/databricks-sdk-go/service/ml"
)

// EnsureExperiment returns the ID of the experiment called name, creating
// it with tags when it does not exist yet. A configured experiment ID
// short-circuits the lookup.
func (c *Client) EnsureExperiment(ctx context.Context, name string, tags map[string]string) (string, error) {
	if c.config.ExperimentID != "" {
		return c.config.ExperimentID, nil
	}

	path := c.config.ExperimentPath(name)
	resp, err := c.experiments.GetByName(ctx, ml.GetByNameRequest{
		ExperimentName: path,
	})
	if err == nil && resp.Experiment != nil {
		return resp.Experiment.ExperimentId, nil
	}
	if err != nil && !isNotFound(err) {
		return "", fmt.Errorf("failed to get experiment %s: %w", path, err)
	}

	experimentTags := make([]ml.ExperimentTag, 0, len(tags))
	for key, value := range tags {
		experimentTags = append(experimentTags, ml.ExperimentTag{
			Key:   key,
			Value: value,
		})
	}

	created, err := c.experiments.CreateExperiment(ctx, ml.CreateExperiment{
		Name: path,
		Tags: experimentTags,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create experiment %s: %w", path, err)
	}

	return created.ExperimentId, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, apierr.ErrResourceDoesNotExist) || errors.Is(err, apierr.ErrNotFound)
}
