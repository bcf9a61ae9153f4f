// Package results writes the local CSV logs of a run and mirrors epoch
// metrics to its tracking run.
package results

import (
	"context"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/spf13/afero"

	"github.com/yeha-adry/spacetime/internal/models"
	"github.com/yeha-adry/spacetime/internal/tracking"
)

// Recorder collects per-epoch results for an initialized run.
type Recorder struct {
	fs   afero.Fs
	log  *models.ResultsLog
	path string
	run  tracking.Run
}

// NewRecorder records into the results log and path set up by the
// initializer. run may be nil.
func NewRecorder(fs afero.Fs, cfg *models.RunConfiguration, run tracking.Run) (*Recorder, error) {
	if cfg.LogResults == nil || cfg.LogResultsPath == "" {
		return nil, fmt.Errorf("run %q has not been initialized", cfg.ExperimentName)
	}
	return &Recorder{
		fs:   fs,
		log:  cfg.LogResults,
		path: cfg.LogResultsPath,
		run:  run,
	}, nil
}

// Record appends one row for epoch and split. Metrics reach the tracking
// run as "<split>/<name>" at step epoch.
func (r *Recorder) Record(ctx context.Context, epoch int, split string, metrics map[string]float64) error {
	row := make(map[string]string, len(metrics)+2)
	for name, value := range metrics {
		row[name] = strconv.FormatFloat(value, 'g', -1, 64)
	}
	row[models.ColumnEpoch] = strconv.Itoa(epoch)
	row[models.ColumnSplit] = split
	r.log.Append(row)

	if r.run == nil {
		return nil
	}
	scoped := make(map[string]float64, len(metrics))
	for name, value := range metrics {
		scoped[split+"/"+name] = value
	}
	if err := r.run.Log(ctx, int64(epoch), scoped); err != nil {
		return fmt.Errorf("failed to log epoch %d %s metrics: %w", epoch, split, err)
	}
	return nil
}

// Flush rewrites the results CSV with every row recorded so far.
func (r *Recorder) Flush() error {
	return writeCSV(r.fs, r.path, r.log.Rows())
}

// WriteConfigCSV writes cfg as a one-row CSV, columns sorted by name.
func WriteConfigCSV(fs afero.Fs, path string, cfg *models.RunConfiguration) error {
	params := cfg.Params()
	keys := cfg.ParamKeys()
	values := make([]string, len(keys))
	for i, key := range keys {
		values[i] = params[key]
	}
	return writeCSV(fs, path, [][]string{keys, values})
}

func writeCSV(fs afero.Fs, path string, records [][]string) error {
	f, err := fs.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(records); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
