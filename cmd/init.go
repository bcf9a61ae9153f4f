package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"math"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/yeha-adry/spacetime/internal/experiment"
	"github.com/yeha-adry/spacetime/internal/mlflow"
	"github.com/yeha-adry/spacetime/internal/results"
	"github.com/yeha-adry/spacetime/internal/seeding"
	"github.com/yeha-adry/spacetime/internal/tracking"
)

// initSummary is what `init --output json` prints.
type initSummary struct {
	experiment.Layout
	Device string   `json:"device"`
	Seed   int64    `json:"seed"`
	Env    []string `json:"env"`
	RunID  string   `json:"run_id,omitempty"`
}

func newInitCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a training run",
		Long: `Seed the run, select its device, derive its experiment name, create
its checkpoint and log directories and start a tracking run unless
--no-wandb is set.`,
		Example: `  # Initialize from a file, overriding the seed
  spacetime-init init --from-file run.yaml --seed 1

  # Initialize without tracking
  spacetime-init init --dataset etth --variant 1 --model spacetime --no-wandb`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, a, afero.NewOsFs())
		},
	}

	addRunFlags(cmd)
	cmd.Flags().Float64("best-train-metric", math.Inf(1), "Initial best training metric")
	cmd.Flags().Float64("best-val-metric", math.Inf(1), "Initial best validation metric")
	cmd.Flags().Bool("write-config", true, "Write the configuration CSV next to the results log")
	cmd.Flags().StringP("output", "o", "text", "Output format (text/json)")

	return cmd
}

func runInit(cmd *cobra.Command, a *app, fs afero.Fs) error {
	appCfg := a.config()
	runCfg, err := buildRunConfiguration(cmd, fs, appCfg)
	if err != nil {
		return err
	}

	output, _ := cmd.Flags().GetString("output")
	if output != "text" && output != "json" {
		return fmt.Errorf("invalid output format: %s (valid: text, json)", output)
	}

	opts := experiment.DefaultOptions()
	opts.NamePrefix, _ = cmd.Flags().GetString("name-prefix")
	opts.BestTrainMetric, _ = cmd.Flags().GetFloat64("best-train-metric")
	opts.BestValMetric, _ = cmd.Flags().GetFloat64("best-val-metric")

	tracker := tracking.Lazy(func() (tracking.Tracker, error) {
		client, err := mlflow.NewClient(appCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create MLflow client: %w", err)
		}
		return tracking.NewMLflow(client, a.logger), nil
	})

	initializer := experiment.New(tracker, a.logger)
	initializer.Fs = fs
	initializer.Out = cmd.ErrOrStderr()
	initializer.Seeding = seeding.NewContext()

	layout := experiment.Plan(runCfg, opts.NamePrefix)
	run, err := initializer.Initialize(cmd.Context(), runCfg, opts)
	if err != nil {
		return err
	}

	if write, _ := cmd.Flags().GetBool("write-config"); write {
		if err := results.WriteConfigCSV(fs, runCfg.LogConfigsPath, runCfg); err != nil {
			return err
		}
	}

	summary := initSummary{
		Layout: layout,
		Device: runCfg.Device.String(),
		Seed:   runCfg.Seed,
		Env:    initializer.Seeding.Env(),
	}
	if run != nil {
		summary.RunID = run.ID()
	}

	return printSummary(cmd.OutOrStdout(), output, summary)
}

func printSummary(w io.Writer, output string, s initSummary) error {
	if output == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}

	fmt.Fprintf(w, "Experiment: %s\n", s.ExperimentName)
	fmt.Fprintf(w, "Project: %s\n", s.ProjectName)
	fmt.Fprintf(w, "Device: %s\n", s.Device)
	fmt.Fprintf(w, "Seed: %d\n", s.Seed)
	fmt.Fprintf(w, "Checkpoints:\n  %s\n  %s\n", s.BestTrainCheckpointPath, s.BestValCheckpointPath)
	fmt.Fprintf(w, "Logs:\n  %s\n  %s\n", s.LogResultsPath, s.LogConfigsPath)
	if s.RunID != "" {
		fmt.Fprintf(w, "Run ID: %s\n", s.RunID)
	}
	return nil
}
