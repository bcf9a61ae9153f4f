package results

import (
	"context"
	"encoding/csv"
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/yeha-adry/spacetime/internal/models"
	"github.com/yeha-adry/spacetime/internal/testutil"
)

func initialized() *models.RunConfiguration {
	cfg := testutil.RunConfiguration("/root")
	cfg.ExperimentName = testutil.ExperimentName
	cfg.LogResults = models.NewResultsLog()
	cfg.LogResultsPath = "/root/logs/r-" + testutil.ExperimentName + ".csv"
	return cfg
}

func TestRecorderWritesCSV(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/root/logs", 0o755))
	cfg := initialized()

	rec, err := NewRecorder(fs, cfg, nil)
	require.NoError(t, err)
	require.NoError(t, rec.Record(context.Background(), 0, "train", map[string]float64{"loss": 0.5}))
	require.NoError(t, rec.Record(context.Background(), 0, "val", map[string]float64{"loss": 0.75, "rmse": 1}))
	require.NoError(t, rec.Flush())

	data, err := afero.ReadFile(fs, cfg.LogResultsPath)
	require.NoError(t, err)
	require.Equal(t, "epoch,split,loss,rmse\n0,train,0.5,\n0,val,0.75,1\n", string(data))
}

func TestRecorderMirrorsToRun(t *testing.T) {
	run := &testutil.Run{RunName: "r"}
	rec, err := NewRecorder(afero.NewMemMapFs(), initialized(), run)
	require.NoError(t, err)

	require.NoError(t, rec.Record(context.Background(), 4, "val", map[string]float64{"loss": 0.25}))
	require.Equal(t, map[string]float64{"val/loss": 0.25}, run.Metrics[4])

	run.LogErr = errors.New("rate limited")
	require.ErrorContains(t, rec.Record(context.Background(), 5, "val", nil), "rate limited")
}

func TestNewRecorderRequiresInitializedRun(t *testing.T) {
	_, err := NewRecorder(afero.NewMemMapFs(), testutil.RunConfiguration("/root"), nil)
	require.Error(t, err)
}

func TestWriteConfigCSV(t *testing.T) {
	fs := afero.NewMemMapFs()
	cfg := testutil.RunConfiguration("/root")
	require.NoError(t, WriteConfigCSV(fs, "/c.csv", cfg))

	f, err := fs.Open("/c.csv")
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, cfg.ParamKeys(), records[0])

	row := map[string]string{}
	for i, key := range records[0] {
		row[key] = records[1][i]
	}
	require.Equal(t, "spacetime", row["model"])
	require.Equal(t, "None", row["scheduler"])
	require.Equal(t, "0.001", row["lr"])
}
