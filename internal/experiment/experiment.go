// Package experiment prepares a training run: it seeds the process,
// picks the device, names the run, lays out its checkpoint and log files
// and starts tracking.
package experiment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/yeha-adry/spacetime/internal/device"
	"github.com/yeha-adry/spacetime/internal/models"
	"github.com/yeha-adry/spacetime/internal/naming"
	"github.com/yeha-adry/spacetime/internal/seeding"
	"github.com/yeha-adry/spacetime/internal/tracking"
)

// ErrNoTracker is returned when tracking is enabled but no tracker was given.
var ErrNoTracker = errors.New("tracking enabled but no tracker configured")

// Options tune a single initialization.
type Options struct {
	// NamePrefix is prepended to the experiment name as "<prefix>-".
	NamePrefix string
	// BestTrainMetric and BestValMetric seed the best-so-far metrics.
	BestTrainMetric float64
	BestValMetric   float64
}

// DefaultOptions has no prefix and +Inf best metrics, meaning no result yet.
func DefaultOptions() Options {
	return Options{
		BestTrainMetric: math.Inf(1),
		BestValMetric:   math.Inf(1),
	}
}

// Layout is every name and path derived from a configuration.
type Layout struct {
	ExperimentName          string `json:"experiment_name"`
	ProjectName             string `json:"project_name"`
	CheckpointDir           string `json:"checkpoint_dir"`
	BestTrainCheckpointPath string `json:"best_train_checkpoint_path"`
	BestValCheckpointPath   string `json:"best_val_checkpoint_path"`
	LogDir                  string `json:"log_dir"`
	LogResultsPath          string `json:"log_results_path"`
	LogConfigsPath          string `json:"log_configs_path"`
}

// Plan derives the layout of cfg without touching it or the filesystem.
func Plan(cfg *models.RunConfiguration, prefix string) Layout {
	name := naming.ExperimentName(cfg, prefix)
	project := naming.ProjectName(cfg)
	checkpointDir := filepath.Join(cfg.CheckpointDir, cfg.Dataset)
	logDir := filepath.Join(cfg.LogDir, project)

	return Layout{
		ExperimentName:          name,
		ProjectName:             project,
		CheckpointDir:           checkpointDir,
		BestTrainCheckpointPath: filepath.Join(checkpointDir, "btrn-"+name+".pth"),
		BestValCheckpointPath:   filepath.Join(checkpointDir, "bval-"+name+".pth"),
		LogDir:                  logDir,
		LogResultsPath:          filepath.Join(logDir, "r-"+name+".csv"),
		LogConfigsPath:          filepath.Join(logDir, "c-"+name+".csv"),
	}
}

// Initializer carries the collaborators of Initialize.
type Initializer struct {
	Fs      afero.Fs
	Seeding *seeding.Context
	Probe   device.Probe
	// Tracker starts runs when tracking is enabled.
	Tracker tracking.Tracker
	// Out receives the one-line notices printed for the user.
	Out    io.Writer
	Logger *zap.Logger
}

// New returns an initializer over the host filesystem, environment and GPUs.
func New(tracker tracking.Tracker, logger *zap.Logger) *Initializer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Initializer{
		Fs:      afero.NewOsFs(),
		Seeding: seeding.NewContext(),
		Probe:   device.NewNvidiaProbe(),
		Tracker: tracker,
		Out:     os.Stdout,
		Logger:  logger,
	}
}

// Initialize prepares cfg for training and returns the tracking run, which
// is nil when tracking is disabled. cfg is updated in place with the
// device, experiment name, best metrics, checkpoint and log paths. Errors
// are returned as they happen and nothing is retried. A tracking run that
// was started before the error is ended with status FAILED.
func (i *Initializer) Initialize(ctx context.Context, cfg *models.RunConfiguration, opts Options) (tracking.Run, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := i.Seeding.Seed(cfg.Seed); err != nil {
		return nil, fmt.Errorf("failed to seed run: %w", err)
	}
	cfg.Device = device.Select(i.Probe, cfg.NoCuda)

	if cfg.NShots == nil && cfg.NumExamples != nil {
		shots := *cfg.NumExamples
		cfg.NShots = &shots
	}

	layout := Plan(cfg, opts.NamePrefix)
	cfg.ExperimentName = layout.ExperimentName
	cfg.BestTrainMetric = opts.BestTrainMetric
	cfg.BestValMetric = opts.BestValMetric

	if _, err := i.ensureDir(layout.CheckpointDir); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory %s: %w", layout.CheckpointDir, err)
	}
	cfg.CheckpointDir = layout.CheckpointDir
	cfg.BestTrainCheckpointPath = layout.BestTrainCheckpointPath
	cfg.BestValCheckpointPath = layout.BestValCheckpointPath

	run, err := i.startRun(ctx, cfg, layout)
	if err != nil {
		return nil, err
	}

	created, err := i.ensureDir(layout.LogDir)
	if err != nil {
		return nil, i.abort(ctx, run, fmt.Errorf("failed to create log directory %s: %w", layout.LogDir, err))
	}
	if created {
		fmt.Fprintf(i.Out, "-> Created logging directory at %s!\n", layout.LogDir)
	}
	cfg.LogDir = layout.LogDir
	cfg.LogResultsPath = layout.LogResultsPath
	cfg.LogConfigsPath = layout.LogConfigsPath
	cfg.LogResults = models.NewResultsLog()

	i.Logger.Info("initialized experiment",
		zap.String("name", cfg.ExperimentName),
		zap.String("project", layout.ProjectName),
		zap.Stringer("device", cfg.Device),
		zap.Int64("seed", cfg.Seed),
		zap.Bool("tracked", run != nil))

	return run, nil
}

func (i *Initializer) startRun(ctx context.Context, cfg *models.RunConfiguration, layout Layout) (tracking.Run, error) {
	tracker := i.Tracker
	if cfg.NoWandb {
		tracker = tracking.Null{}
	} else if tracker == nil {
		return nil, ErrNoTracker
	}

	// The run sees the log directory before it is scoped to the project.
	run, err := tracker.Start(ctx, tracking.RunSpec{
		Entity:  cfg.WandbEntity,
		Name:    cfg.ExperimentName,
		Project: layout.ProjectName,
		Dir:     cfg.LogDir,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start tracking run: %w", err)
	}
	if run == nil {
		return nil, nil
	}

	if err := run.UpdateConfig(ctx, cfg.Params()); err != nil {
		return nil, i.abort(ctx, run, fmt.Errorf("failed to record run config: %w", err))
	}
	return run, nil
}

// abort ends a started run as failed and returns err. The run handle is
// not returned to the caller, so nothing else could end it.
func (i *Initializer) abort(ctx context.Context, run tracking.Run, err error) error {
	if run == nil {
		return err
	}
	if endErr := run.End(ctx, models.RunStatusFailed); endErr != nil {
		i.Logger.Warn("failed to end tracking run",
			zap.String("runID", run.ID()),
			zap.Error(endErr))
	}
	return err
}

// ensureDir creates dir and its parents, reporting whether it was absent.
// MkdirAll succeeds if another process creates dir concurrently.
func (i *Initializer) ensureDir(dir string) (bool, error) {
	exists, err := afero.DirExists(i.Fs, dir)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	if err := i.Fs.MkdirAll(dir, 0o755); err != nil {
		return false, err
	}
	i.Logger.Debug("created directory", zap.String("dir", dir))
	return true, nil
}
