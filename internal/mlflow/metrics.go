package mlflow

import (
	"context"
	"fmt"
	"time"

	"github.com/databricks/databricks-sdk-go/service/ml"

	"github.com/yeha-adry/spacetime/internal/models"
)

// LogMetrics sends metrics through the batch API.
func (c *Client) LogMetrics(ctx context.Context, runID string, metrics []models.Metric) error {
	for start := 0; start < len(metrics); start += maxMetricsPerBatch {
		end := start + maxMetricsPerBatch
		if end > len(metrics) {
			end = len(metrics)
		}

		batch := make([]ml.Metric, 0, end-start)
		for _, metric := range metrics[start:end] {
			timestamp := metric.Timestamp
			if timestamp.IsZero() {
				timestamp = time.Now()
			}
			batch = append(batch, ml.Metric{
				Key:       metric.Key,
				Value:     metric.Value,
				Timestamp: timestamp.UnixMilli(),
				Step:      metric.Step,
			})
		}

		if err := c.experiments.LogBatch(ctx, ml.LogBatch{
			RunId:   runID,
			Metrics: batch,
		}); err != nil {
			return fmt.Errorf("failed to log %d metrics: %w", len(batch), err)
		}
	}

	return nil
}
