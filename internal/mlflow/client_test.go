package mlflow

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/databricks/databricks-sdk-go/apierr"
	"github.com/databricks/databricks-sdk-go/service/ml"
	"github.com/stretchr/testify/require"

	"github.com/yeha-adry/spacetime/internal/config"
	"github.com/yeha-adry/spacetime/internal/models"
)

// fakeExperiments records calls to the subset of the experiments API the
// client uses. Any other method panics through the nil embedded interface.
type fakeExperiments struct {
	ml.ExperimentsInterface

	experiments map[string]string
	created     []ml.CreateExperiment
	runs        []ml.CreateRun
	batches     []ml.LogBatch
	updates     []ml.UpdateRun
	stored      map[string]*ml.Run
	getErr      error
}

func newFakeExperiments() *fakeExperiments {
	return &fakeExperiments{experiments: map[string]string{}}
}

func (f *fakeExperiments) GetByName(_ context.Context, req ml.GetByNameRequest) (*ml.GetExperimentByNameResponse, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	id, ok := f.experiments[req.ExperimentName]
	if !ok {
		return nil, fmt.Errorf("experiment %s: %w", req.ExperimentName, apierr.ErrResourceDoesNotExist)
	}
	return &ml.GetExperimentByNameResponse{Experiment: &ml.Experiment{ExperimentId: id}}, nil
}

func (f *fakeExperiments) CreateExperiment(_ context.Context, req ml.CreateExperiment) (*ml.CreateExperimentResponse, error) {
	f.created = append(f.created, req)
	id := fmt.Sprintf("%d", len(f.experiments)+1)
	f.experiments[req.Name] = id
	return &ml.CreateExperimentResponse{ExperimentId: id}, nil
}

func (f *fakeExperiments) CreateRun(_ context.Context, req ml.CreateRun) (*ml.CreateRunResponse, error) {
	f.runs = append(f.runs, req)
	return &ml.CreateRunResponse{Run: &ml.Run{Info: &ml.RunInfo{RunId: fmt.Sprintf("run-%d", len(f.runs))}}}, nil
}

func (f *fakeExperiments) LogBatch(_ context.Context, req ml.LogBatch) error {
	f.batches = append(f.batches, req)
	return nil
}

func (f *fakeExperiments) UpdateRun(_ context.Context, req ml.UpdateRun) (*ml.UpdateRunResponse, error) {
	f.updates = append(f.updates, req)
	return &ml.UpdateRunResponse{}, nil
}

func (f *fakeExperiments) GetRun(_ context.Context, req ml.GetRunRequest) (*ml.GetRunResponse, error) {
	run, ok := f.stored[req.RunId]
	if !ok {
		return nil, fmt.Errorf("run %s: %w", req.RunId, apierr.ErrResourceDoesNotExist)
	}
	return &ml.GetRunResponse{Run: run}, nil
}

func newTestClient(f *fakeExperiments, cfg *config.Config) *Client {
	if cfg == nil {
		cfg = &config.Config{TrackingURI: "http://localhost:5000"}
	}
	return NewClientWithAPI(f, cfg)
}

func TestEnsureExperimentCreatesOnce(t *testing.T) {
	f := newFakeExperiments()
	c := newTestClient(f, nil)
	ctx := context.Background()

	id, err := c.EnsureExperiment(ctx, "spacetime-d=m4-horizon=24", map[string]string{"entity": "lab"})
	require.NoError(t, err)
	require.Equal(t, "1", id)
	require.Len(t, f.created, 1)
	require.Equal(t, []ml.ExperimentTag{{Key: "entity", Value: "lab"}}, f.created[0].Tags)

	again, err := c.EnsureExperiment(ctx, "spacetime-d=m4-horizon=24", nil)
	require.NoError(t, err)
	require.Equal(t, id, again)
	require.Len(t, f.created, 1)
}

func TestEnsureExperimentUsesRootAndOverride(t *testing.T) {
	f := newFakeExperiments()
	c := newTestClient(f, &config.Config{TrackingURI: "databricks"})
	_, err := c.EnsureExperiment(context.Background(), "proj", nil)
	require.NoError(t, err)
	require.Equal(t, "/Shared/proj", f.created[0].Name)

	pinned := newTestClient(f, &config.Config{TrackingURI: "databricks", ExperimentID: "42"})
	id, err := pinned.EnsureExperiment(context.Background(), "other", nil)
	require.NoError(t, err)
	require.Equal(t, "42", id)
	require.Len(t, f.created, 1)
}

func TestEnsureExperimentLookupError(t *testing.T) {
	f := newFakeExperiments()
	f.getErr = fmt.Errorf("connection refused")
	_, err := newTestClient(f, nil).EnsureExperiment(context.Background(), "proj", nil)
	require.ErrorContains(t, err, "failed to get experiment proj")
	require.Empty(t, f.created)
}

func TestCreateRun(t *testing.T) {
	f := newFakeExperiments()
	c := newTestClient(f, nil)

	experimentID := "7"
	name := "m=spacetime-se=0"
	info, err := c.CreateRun(context.Background(), &models.RunConfig{
		ExperimentID: &experimentID,
		RunName:      &name,
		Tags:         map[string]string{"b": "2", "a": "1"},
	})
	require.NoError(t, err)
	require.Equal(t, "run-1", info.RunID)
	require.Equal(t, name, info.RunName)
	require.Equal(t, string(models.RunStatusRunning), info.Status)

	require.Equal(t, []ml.RunTag{
		{Key: "a", Value: "1"},
		{Key: "b", Value: "2"},
		{Key: TagRunName, Value: name},
	}, f.runs[0].Tags)
}

func TestCreateRunRequiresExperiment(t *testing.T) {
	_, err := newTestClient(newFakeExperiments(), nil).CreateRun(context.Background(), &models.RunConfig{})
	require.ErrorContains(t, err, "experiment ID must be provided")
}

func TestLogParamsFromMapBatches(t *testing.T) {
	f := newFakeExperiments()
	c := newTestClient(f, nil)

	params := make(map[string]string, 150)
	for i := 0; i < 150; i++ {
		params[fmt.Sprintf("p%03d", i)] = fmt.Sprint(i)
	}
	require.NoError(t, c.LogParamsFromMap(context.Background(), "run-1", params))
	require.Len(t, f.batches, 2)
	require.Len(t, f.batches[0].Params, maxParamsPerBatch)
	require.Len(t, f.batches[1].Params, 50)
	require.Equal(t, "p000", f.batches[0].Params[0].Key)
	require.Equal(t, "run-1", f.batches[1].RunId)
}

func TestLogMetrics(t *testing.T) {
	f := newFakeExperiments()
	c := newTestClient(f, nil)
	ts := time.UnixMilli(1700000000000)

	err := c.LogMetrics(context.Background(), "run-1", []models.Metric{
		{Key: "train/loss", Value: 0.5, Step: 1, Timestamp: ts},
		{Key: "val/loss", Value: 0.7, Step: 1},
	})
	require.NoError(t, err)
	require.Len(t, f.batches, 1)
	require.Equal(t, int64(1700000000000), f.batches[0].Metrics[0].Timestamp)
	require.NotZero(t, f.batches[0].Metrics[1].Timestamp)
}

func TestUpdateRun(t *testing.T) {
	f := newFakeExperiments()
	c := newTestClient(f, nil)

	require.NoError(t, c.UpdateRun(context.Background(), "run-1", models.RunStatusFinished))
	require.Equal(t, ml.UpdateRunStatusFinished, f.updates[0].Status)
	require.NotZero(t, f.updates[0].EndTime)

	require.NoError(t, c.UpdateRun(context.Background(), "run-1", models.RunStatusRunning))
	require.Zero(t, f.updates[1].EndTime)

	require.Error(t, c.UpdateRun(context.Background(), "run-1", models.RunStatus("PAUSED")))
}

func TestGetRun(t *testing.T) {
	f := newFakeExperiments()
	f.stored = map[string]*ml.Run{
		"run-1": {
			Info: &ml.RunInfo{
				RunId:        "run-1",
				ExperimentId: "7",
				Status:       ml.RunInfoStatusFinished,
				StartTime:    1700000000000,
				EndTime:      1700000060000,
			},
			Data: &ml.RunData{Tags: []ml.RunTag{
				{Key: TagRunName, Value: "m=spacetime-se=0"},
				{Key: "spacetime.project", Value: "spacetime-d=etth-horizon=24"},
			}},
		},
		"run-2": {Info: &ml.RunInfo{RunId: "run-2", Status: ml.RunInfoStatusRunning}},
	}
	c := newTestClient(f, nil)

	info, err := c.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	require.Equal(t, "run-1", info.RunID)
	require.Equal(t, "7", info.ExperimentID)
	require.Equal(t, "m=spacetime-se=0", info.RunName)
	require.Equal(t, string(models.RunStatusFinished), info.Status)
	require.Equal(t, int64(1700000000000), info.StartTime.UnixMilli())
	require.NotNil(t, info.EndTime)
	require.Equal(t, int64(1700000060000), info.EndTime.UnixMilli())
	require.Equal(t, "spacetime-d=etth-horizon=24", info.Tags["spacetime.project"])

	running, err := c.GetRun(context.Background(), "run-2")
	require.NoError(t, err)
	require.Nil(t, running.EndTime)
	require.Empty(t, running.RunName)

	_, err = c.GetRun(context.Background(), "missing")
	require.ErrorIs(t, err, apierr.ErrResourceDoesNotExist)
}
