package mlflow

import (
	"context"
	"fmt"
	"sort"

	"github.com/databricks/databricks-sdk-go/service/ml"
)

// MLflow caps a single log-batch request at 100 params and 1000 metrics.
const (
	maxParamsPerBatch  = 100
	maxMetricsPerBatch = 1000
)

// LogParamsFromMap logs params in sorted key order, batched.
func (c *Client) LogParamsFromMap(ctx context.Context, runID string, params map[string]string) error {
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for start := 0; start < len(keys); start += maxParamsPerBatch {
		end := start + maxParamsPerBatch
		if end > len(keys) {
			end = len(keys)
		}

		batch := make([]ml.Param, 0, end-start)
		for _, key := range keys[start:end] {
			batch = append(batch, ml.Param{Key: key, Value: params[key]})
		}

		if err := c.experiments.LogBatch(ctx, ml.LogBatch{
			RunId:  runID,
			Params: batch,
		}); err != nil {
			return fmt.Errorf("failed to log %d parameters: %w", len(batch), err)
		}
	}

	return nil
}
