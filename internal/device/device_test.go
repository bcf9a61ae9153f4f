package device

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestSelect(t *testing.T) {
	require.Equal(t, CUDA, Select(Fixed(true), false))
	require.Equal(t, CPU, Select(Fixed(true), true))
	require.Equal(t, CPU, Select(Fixed(false), false))
	require.Equal(t, CPU, Select(nil, false))
}

func TestNvidiaProbe(t *testing.T) {
	withDriver := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(withDriver, "/proc/driver/nvidia/version", []byte("NVRM 550"), 0o644))

	tests := []struct {
		name string
		fs   afero.Fs
		env  map[string]string
		want bool
	}{
		{"no driver", afero.NewMemMapFs(), nil, false},
		{"driver", withDriver, nil, true},
		{"driver with mask", withDriver, map[string]string{"CUDA_VISIBLE_DEVICES": "0,1"}, true},
		{"empty mask", withDriver, map[string]string{"CUDA_VISIBLE_DEVICES": ""}, false},
		{"negative mask", withDriver, map[string]string{"CUDA_VISIBLE_DEVICES": "-1"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &NvidiaProbe{Fs: tt.fs, LookupEnv: envMap(tt.env)}
			require.Equal(t, tt.want, p.AcceleratorAvailable())
		})
	}
}

func TestDeviceString(t *testing.T) {
	require.Equal(t, "cuda:0", CUDA.String())
	require.True(t, CUDA.IsAccelerator())
	require.False(t, CPU.IsAccelerator())
}
