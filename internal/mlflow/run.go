package mlflow

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/databricks/databricks-sdk-go/service/ml"

	"github.com/yeha-adry/spacetime/internal/models"
)

// Reserved MLflow tags.
const (
	TagRunName     = "mlflow.runName"
	TagDescription = "mlflow.note.content"
)

var runStatuses = map[models.RunStatus]ml.UpdateRunStatus{
	models.RunStatusRunning:  ml.UpdateRunStatusRunning,
	models.RunStatusFinished: ml.UpdateRunStatusFinished,
	models.RunStatusFailed:   ml.UpdateRunStatusFailed,
	models.RunStatusKilled:   ml.UpdateRunStatusKilled,
}

// CreateRun starts a run in the configured experiment. Without a name the
// run is labelled by its start time.
func (c *Client) CreateRun(ctx context.Context, config *models.RunConfig) (*models.RunInfo, error) {
	if config.ExperimentID == nil || *config.ExperimentID == "" {
		return nil, fmt.Errorf("experiment ID must be provided")
	}
	experimentID := *config.ExperimentID

	startTime := time.Now()
	runName := "run-" + startTime.Format("2006-01-02-15-04-05")
	if config.RunName != nil {
		runName = *config.RunName
	}

	var description string
	if config.Description != nil {
		description = *config.Description
	}

	resp, err := c.experiments.CreateRun(ctx, ml.CreateRun{
		ExperimentId: experimentID,
		RunName:      runName,
		StartTime:    startTime.UnixMilli(),
		Tags:         runTags(config.Tags, runName, description),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	if resp.Run == nil || resp.Run.Info == nil {
		return nil, fmt.Errorf("failed to create run: empty response")
	}

	return &models.RunInfo{
		RunID:        resp.Run.Info.RunId,
		ExperimentID: experimentID,
		RunName:      runName,
		Status:       string(models.RunStatusRunning),
		StartTime:    startTime,
		Tags:         config.Tags,
		Description:  description,
	}, nil
}

// runTags orders user tags by key and appends the reserved ones.
func runTags(tags map[string]string, runName, description string) []ml.RunTag {
	keys := make([]string, 0, len(tags))
	for key := range tags {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := make([]ml.RunTag, 0, len(keys)+2)
	for _, key := range keys {
		out = append(out, ml.RunTag{Key: key, Value: tags[key]})
	}
	out = append(out, ml.RunTag{Key: TagRunName, Value: runName})
	if description != "" {
		out = append(out, ml.RunTag{Key: TagDescription, Value: description})
	}
	return out
}

// UpdateRun moves a run to status, stamping the end time for terminal states.
func (c *Client) UpdateRun(ctx context.Context, runID string, status models.RunStatus) error {
	mlStatus, ok := runStatuses[status]
	if !ok {
		return fmt.Errorf("invalid run status: %s", status)
	}

	update := ml.UpdateRun{
		RunId:  runID,
		Status: mlStatus,
	}
	if status.Terminal() {
		update.EndTime = time.Now().UnixMilli()
	}

	if _, err := c.experiments.UpdateRun(ctx, update); err != nil {
		return fmt.Errorf("failed to update run %s: %w", runID, err)
	}
	return nil
}

func (c *Client) GetRun(ctx context.Context, runID string) (*models.RunInfo, error) {
	resp, err := c.experiments.GetRun(ctx, ml.GetRunRequest{
		RunId: runID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	if resp.Run == nil || resp.Run.Info == nil {
		return nil, fmt.Errorf("run %s not found", runID)
	}

	run := resp.Run
	tags := make(map[string]string)
	if run.Data != nil {
		for _, tag := range run.Data.Tags {
			tags[tag.Key] = tag.Value
		}
	}

	info := &models.RunInfo{
		RunID:        run.Info.RunId,
		ExperimentID: run.Info.ExperimentId,
		RunName:      tags[TagRunName],
		Status:       string(run.Info.Status),
		StartTime:    time.UnixMilli(run.Info.StartTime),
		Tags:         tags,
		Description:  tags[TagDescription],
	}
	if run.Info.EndTime != 0 {
		endTime := time.UnixMilli(run.Info.EndTime)
		info.EndTime = &endTime
	}

	return info, nil
}
