package testutil

import (
	"context"
	"errors"

	"github.com/yeha-adry/spacetime/internal/models"
	"github.com/yeha-adry/spacetime/internal/tracking"
)

// Tracker records the runs it starts.
type Tracker struct {
	Specs []tracking.RunSpec
	Runs  []*Run
	Err   error

	// ConfigErr is copied to every run started.
	ConfigErr error
}

func (t *Tracker) Start(_ context.Context, spec tracking.RunSpec) (tracking.Run, error) {
	if t.Err != nil {
		return nil, t.Err
	}
	t.Specs = append(t.Specs, spec)
	run := &Run{RunName: spec.Name, ConfigErr: t.ConfigErr}
	t.Runs = append(t.Runs, run)
	return run, nil
}

// Run is an in-memory tracking run.
type Run struct {
	RunName string
	Config  map[string]string
	Metrics map[int64]map[string]float64
	Status  models.RunStatus
	LogErr  error

	// ConfigErr fails UpdateConfig.
	ConfigErr error
}

func (r *Run) ID() string   { return "run-" + r.RunName }
func (r *Run) Name() string { return r.RunName }

func (r *Run) UpdateConfig(_ context.Context, params map[string]string) error {
	if r.ConfigErr != nil {
		return r.ConfigErr
	}
	if r.Config == nil {
		r.Config = map[string]string{}
	}
	for k, v := range params {
		r.Config[k] = v
	}
	return nil
}

func (r *Run) Log(_ context.Context, step int64, metrics map[string]float64) error {
	if r.LogErr != nil {
		return r.LogErr
	}
	if r.Metrics == nil {
		r.Metrics = map[int64]map[string]float64{}
	}
	r.Metrics[step] = metrics
	return nil
}

func (r *Run) End(_ context.Context, status models.RunStatus) error {
	if r.Status.Terminal() {
		return errors.New("run already ended")
	}
	r.Status = status
	return nil
}
