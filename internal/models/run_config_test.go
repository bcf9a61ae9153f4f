package models

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yeha-adry/spacetime/internal/device"
)

func validConfig() *RunConfiguration {
	return &RunConfiguration{
		Dataset:       "etth",
		Model:         "spacetime",
		CheckpointDir: "./checkpoints",
		LogDir:        "./logs",
		Horizon:       24,
		LR:            0.001,
		Layernorm:     true,
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	tests := []struct {
		field  string
		mutate func(c *RunConfiguration)
	}{
		{"dataset", func(c *RunConfiguration) { c.Dataset = "" }},
		{"model", func(c *RunConfiguration) { c.Model = "" }},
		{"checkpoint_dir", func(c *RunConfiguration) { c.CheckpointDir = "" }},
		{"log_dir", func(c *RunConfiguration) { c.LogDir = "" }},
		{"vocab_size", func(c *RunConfiguration) { c.DatasetType = DatasetTypeGrokking }},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			require.True(t, errors.Is(err, ErrMissingField))
			var missing *MissingFieldError
			require.ErrorAs(t, err, &missing)
			require.Equal(t, tt.field, missing.Field)
		})
	}
}

func TestParams(t *testing.T) {
	c := validConfig()
	params := c.Params()
	require.Equal(t, "etth", params["dataset"])
	require.Equal(t, "None", params["variant"])
	require.Equal(t, "None", params["num_examples"])
	require.Equal(t, "0.001", params["lr"])
	require.Equal(t, "true", params["layernorm"])
	require.Equal(t, "24", params["horizon"])
	require.NotContains(t, params, "experiment_name")
	require.NotContains(t, params, "device")

	c.Device = device.CUDA
	c.ExperimentName = "m=spacetime"
	c.BestTrainMetric = math.Inf(1)
	c.BestValMetric = 0.5
	params = c.Params()
	require.Equal(t, "cuda:0", params["device"])
	require.Equal(t, "inf", params["best_train_metric"])
	require.Equal(t, "0.5", params["best_val_metric"])
}

func TestParamKeysSorted(t *testing.T) {
	keys := validConfig().ParamKeys()
	require.IsIncreasing(t, keys)
	require.Contains(t, keys, "seed")
}

func TestRunStatusTerminal(t *testing.T) {
	require.False(t, RunStatusRunning.Terminal())
	require.True(t, RunStatusFinished.Terminal())
	require.True(t, RunStatusFailed.Terminal())
	require.True(t, RunStatusKilled.Terminal())
}
