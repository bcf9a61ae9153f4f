package naming

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yeha-adry/spacetime/internal/testutil"
)

func TestExperimentName(t *testing.T) {
	c := testutil.RunConfiguration(t.TempDir())
	require.Equal(t, testutil.ExperimentName, ExperimentName(c, ""))
	require.Equal(t, "sweep-"+testutil.ExperimentName, ExperimentName(c, "sweep"))
}

func TestExperimentNameIsDeterministic(t *testing.T) {
	dir := t.TempDir()
	first := ExperimentName(testutil.RunConfiguration(dir), "p")
	second := ExperimentName(testutil.RunConfiguration(dir), "p")
	require.Equal(t, first, second)
}

func TestExperimentNameReplacements(t *testing.T) {
	c := testutil.RunConfiguration(t.TempDir())
	c.Model = "abnormal"
	c.KernelInit = "xavier"
	c.Activation = "identity"
	c.OutputConfig = "output/avgpool"
	c.Layernorm = false
	c.Scheduler = testutil.String("plateau")

	name := ExperimentName(c, "")
	require.Contains(t, name, "m=abno-")
	require.Contains(t, name, "-ki=xa-")
	require.Contains(t, name, "-ac=id-")
	require.Contains(t, name, "-oc=avgp-")
	require.Contains(t, name, "-la=0-")
	require.Contains(t, name, "-sc=plateau-")
}

func TestExperimentNameGrokking(t *testing.T) {
	c := testutil.GrokkingConfiguration(t.TempDir())
	name := ExperimentName(c, "")
	require.Equal(t, testutil.ExperimentName+"-vs=97-ne=4000-isl=3", name)

	c.DatasetType = "informer"
	require.Equal(t, testutil.ExperimentName, ExperimentName(c, ""))
}

func TestProjectName(t *testing.T) {
	c := testutil.RunConfiguration(t.TempDir())
	c.Dataset = "m4"
	require.Equal(t, "spacetime-d=m4-horizon=24", ProjectName(c))

	c.Dataset = "etth"
	c.Variant = testutil.String("1")
	c.Horizon = 720
	require.Equal(t, "etth1", DatasetName(c))
	require.Equal(t, "spacetime-d=etth1-horizon=720", ProjectName(c))
}

func TestProjectNameGrokking(t *testing.T) {
	c := testutil.GrokkingConfiguration(t.TempDir())
	require.Equal(t, "spacetime-d=modular-horizon=24-vs=97-ne=4000-isl=3", ProjectName(c))
}

func TestReplaceIsSequential(t *testing.T) {
	require.Equal(t, "1-0-na-no-xa-id-avgp", Replace("True-False-None-normal-xavier-identity-avgpool"))
}
