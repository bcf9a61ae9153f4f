package tracking

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/yeha-adry/spacetime/internal/models"
)

// Tags written on experiments and runs started by MLflow.
const (
	TagEntity  = "spacetime.entity"
	TagLogDir  = "spacetime.log_dir"
	TagProject = "spacetime.project"
)

// API is the part of the MLflow client the tracker uses.
type API interface {
	EnsureExperiment(ctx context.Context, name string, tags map[string]string) (string, error)
	CreateRun(ctx context.Context, config *models.RunConfig) (*models.RunInfo, error)
	LogParamsFromMap(ctx context.Context, runID string, params map[string]string) error
	LogMetrics(ctx context.Context, runID string, metrics []models.Metric) error
	UpdateRun(ctx context.Context, runID string, status models.RunStatus) error
}

// MLflow tracks runs on an MLflow server. Projects become experiments.
type MLflow struct {
	api    API
	logger *zap.Logger
}

func NewMLflow(api API, logger *zap.Logger) *MLflow {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MLflow{api: api, logger: logger}
}

func (m *MLflow) Start(ctx context.Context, spec RunSpec) (Run, error) {
	experimentTags := map[string]string{}
	if spec.Entity != "" {
		experimentTags[TagEntity] = spec.Entity
	}
	experimentID, err := m.api.EnsureExperiment(ctx, spec.Project, experimentTags)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project %s: %w", spec.Project, err)
	}

	tags := map[string]string{TagProject: spec.Project}
	if spec.Entity != "" {
		tags[TagEntity] = spec.Entity
	}
	if spec.Dir != "" {
		tags[TagLogDir] = spec.Dir
	}

	name := spec.Name
	info, err := m.api.CreateRun(ctx, &models.RunConfig{
		ExperimentID: &experimentID,
		RunName:      &name,
		Tags:         tags,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start run %s: %w", spec.Name, err)
	}

	m.logger.Info("started tracking run",
		zap.String("runID", info.RunID),
		zap.String("experimentID", experimentID),
		zap.String("project", spec.Project),
		zap.String("name", spec.Name))

	return &mlflowRun{api: m.api, info: info, logger: m.logger}, nil
}

type mlflowRun struct {
	api    API
	info   *models.RunInfo
	logger *zap.Logger
}

func (r *mlflowRun) ID() string   { return r.info.RunID }
func (r *mlflowRun) Name() string { return r.info.RunName }

func (r *mlflowRun) UpdateConfig(ctx context.Context, params map[string]string) error {
	if err := r.api.LogParamsFromMap(ctx, r.info.RunID, params); err != nil {
		return fmt.Errorf("failed to update config of run %s: %w", r.info.RunID, err)
	}
	r.logger.Debug("updated run config", zap.String("runID", r.info.RunID), zap.Int("params", len(params)))
	return nil
}

func (r *mlflowRun) Log(ctx context.Context, step int64, metrics map[string]float64) error {
	keys := make([]string, 0, len(metrics))
	for key := range metrics {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	now := time.Now()
	batch := make([]models.Metric, 0, len(keys))
	for _, key := range keys {
		batch = append(batch, models.Metric{
			Key:       key,
			Value:     metrics[key],
			Timestamp: now,
			Step:      step,
		})
	}
	return r.api.LogMetrics(ctx, r.info.RunID, batch)
}

func (r *mlflowRun) End(ctx context.Context, status models.RunStatus) error {
	if err := r.api.UpdateRun(ctx, r.info.RunID, status); err != nil {
		return err
	}
	r.logger.Info("ended tracking run", zap.String("runID", r.info.RunID), zap.String("status", string(status)))
	return nil
}
