package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/yeha-adry/spacetime/internal/mlflow"
	"github.com/yeha-adry/spacetime/internal/models"
)

// Valid run statuses
var validRunStatuses = map[string]models.RunStatus{
	"FINISHED": models.RunStatusFinished,
	"FAILED":   models.RunStatusFailed,
	"KILLED":   models.RunStatusKilled,
}

// runClient is the part of the MLflow client the run commands use.
type runClient interface {
	GetRun(ctx context.Context, runID string) (*models.RunInfo, error)
	UpdateRun(ctx context.Context, runID string, status models.RunStatus) error
}

func newRunCmd(a *app) *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Manage tracking runs",
		Long:  "Inspect and end the MLflow runs started by init",
	}

	runGetCmd := &cobra.Command{
		Use:   "get",
		Short: "Show a tracking run",
		RunE: func(cmd *cobra.Command, args []string) error {
			runID, _ := cmd.Flags().GetString("run-id")
			output, _ := cmd.Flags().GetString("output")
			if output != "text" && output != "json" {
				return fmt.Errorf("invalid output format: %s (valid: text, json)", output)
			}

			client, err := mlflow.NewClient(a.config())
			if err != nil {
				return fmt.Errorf("failed to create MLflow client: %w", err)
			}
			return getRun(cmd.Context(), client, runID, cmd.OutOrStdout(), output)
		},
	}
	runGetCmd.Flags().String("run-id", "", "Run ID to show (required)")
	runGetCmd.Flags().StringP("output", "o", "text", "Output format (text/json)")
	runGetCmd.MarkFlagRequired("run-id")

	runEndCmd := &cobra.Command{
		Use:   "end",
		Short: "End a tracking run",
		Long: `Mark a tracking run started by init as finished, failed or killed.
A run that has already ended is left untouched.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			runID, _ := cmd.Flags().GetString("run-id")
			status, _ := cmd.Flags().GetString("status")

			runStatus, valid := validRunStatuses[strings.ToUpper(status)]
			if !valid {
				return fmt.Errorf("invalid status: %s (valid: FINISHED, FAILED, KILLED)", status)
			}

			client, err := mlflow.NewClient(a.config())
			if err != nil {
				return fmt.Errorf("failed to create MLflow client: %w", err)
			}
			return endRun(cmd.Context(), client, runID, runStatus, cmd.OutOrStdout())
		},
	}
	runEndCmd.Flags().String("run-id", "", "Run ID to end (required)")
	runEndCmd.Flags().String("status", "FINISHED", "End status (FINISHED/FAILED/KILLED)")
	runEndCmd.MarkFlagRequired("run-id")

	runCmd.AddCommand(runGetCmd)
	runCmd.AddCommand(runEndCmd)
	return runCmd
}

func getRun(ctx context.Context, client runClient, runID string, w io.Writer, output string) error {
	info, err := client.GetRun(ctx, runID)
	if err != nil {
		return err
	}

	if output == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}

	fmt.Fprintf(w, "Run ID: %s\n", info.RunID)
	fmt.Fprintf(w, "Name: %s\n", info.RunName)
	fmt.Fprintf(w, "Experiment ID: %s\n", info.ExperimentID)
	fmt.Fprintf(w, "Status: %s\n", info.Status)
	fmt.Fprintf(w, "Started: %s\n", info.StartTime.Format(time.RFC3339))
	if info.EndTime != nil {
		fmt.Fprintf(w, "Ended: %s\n", info.EndTime.Format(time.RFC3339))
	}

	keys := make([]string, 0, len(info.Tags))
	for key := range info.Tags {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(w, "Tag %s: %s\n", key, info.Tags[key])
	}
	return nil
}

func endRun(ctx context.Context, client runClient, runID string, status models.RunStatus, w io.Writer) error {
	info, err := client.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	if current := models.RunStatus(info.Status); current.Terminal() {
		return fmt.Errorf("run %s already ended with status %s", runID, current)
	}

	if err := client.UpdateRun(ctx, runID, status); err != nil {
		return fmt.Errorf("failed to end run: %w", err)
	}

	fmt.Fprintf(w, "Run ended successfully\n")
	fmt.Fprintf(w, "Run ID: %s\n", runID)
	fmt.Fprintf(w, "Status: %s\n", status)
	return nil
}
