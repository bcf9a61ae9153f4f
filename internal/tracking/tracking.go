// Package tracking starts remote experiment-tracking runs.
//
// A Tracker is chosen per run: Null when tracking is disabled, MLflow
// otherwise. Callers treat a nil Run as "not tracked".
package tracking

import (
	"context"
	"fmt"
	"sync"

	"github.com/yeha-adry/spacetime/internal/models"
)

// RunSpec describes the run to start.
type RunSpec struct {
	// Entity is the team or user owning the run.
	Entity string
	// Name is the experiment name of the run.
	Name string
	// Project groups runs; it maps to an MLflow experiment.
	Project string
	// Dir is the local log directory of the run.
	Dir string
}

// Run is a handle on a started tracking run.
type Run interface {
	ID() string
	Name() string
	// UpdateConfig records configuration values on the run.
	UpdateConfig(ctx context.Context, params map[string]string) error
	// Log records scalar metrics at step.
	Log(ctx context.Context, step int64, metrics map[string]float64) error
	End(ctx context.Context, status models.RunStatus) error
}

// Tracker starts runs.
type Tracker interface {
	Start(ctx context.Context, spec RunSpec) (Run, error)
}

// Null is the tracker used when tracking is disabled. It never touches
// the network and returns a nil Run.
type Null struct{}

func (Null) Start(context.Context, RunSpec) (Run, error) {
	return nil, nil
}

// Lazy defers building a tracker until the first Start, so credentials
// and clients are only required when a run is actually tracked.
func Lazy(build func() (Tracker, error)) Tracker {
	return &lazy{build: build}
}

type lazy struct {
	build   func() (Tracker, error)
	once    sync.Once
	tracker Tracker
	err     error
}

func (l *lazy) Start(ctx context.Context, spec RunSpec) (Run, error) {
	l.once.Do(func() {
		l.tracker, l.err = l.build()
	})
	if l.err != nil {
		return nil, fmt.Errorf("failed to set up tracker: %w", l.err)
	}
	return l.tracker.Start(ctx, spec)
}
