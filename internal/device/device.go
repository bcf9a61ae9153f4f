package device

import (
	"os"
	"strings"

	"github.com/spf13/afero"
)

// Device names the compute device a run trains on.
type Device string

const (
	CPU  Device = "cpu"
	CUDA Device = "cuda:0"
)

func (d Device) String() string {
	return string(d)
}

// IsAccelerator reports whether d is a GPU device.
func (d Device) IsAccelerator() bool {
	return strings.HasPrefix(string(d), "cuda")
}

// Probe reports whether an accelerator is usable by the training process.
type Probe interface {
	AcceleratorAvailable() bool
}

// Select returns the accelerator when one is available and not disabled.
func Select(probe Probe, noCuda bool) Device {
	if !noCuda && probe != nil && probe.AcceleratorAvailable() {
		return CUDA
	}
	return CPU
}

// Driver files whose presence indicates a loaded NVIDIA driver.
var driverPaths = []string{
	"/proc/driver/nvidia/version",
	"/dev/nvidia0",
}

// NvidiaProbe detects an NVIDIA GPU through the driver files and the
// CUDA_VISIBLE_DEVICES mask.
type NvidiaProbe struct {
	Fs        afero.Fs
	LookupEnv func(string) (string, bool)
}

// NewNvidiaProbe returns a probe over the host filesystem and environment.
func NewNvidiaProbe() *NvidiaProbe {
	return &NvidiaProbe{
		Fs:        afero.NewOsFs(),
		LookupEnv: os.LookupEnv,
	}
}

func (p *NvidiaProbe) AcceleratorAvailable() bool {
	// An explicitly empty or negative mask hides every device.
	lookup := p.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if visible, ok := lookup("CUDA_VISIBLE_DEVICES"); ok {
		visible = strings.TrimSpace(visible)
		if visible == "" || strings.HasPrefix(visible, "-") {
			return false
		}
	}

	for _, path := range driverPaths {
		if exists, err := afero.Exists(p.Fs, path); err == nil && exists {
			return true
		}
	}
	return false
}

// Fixed is a Probe with a predetermined answer.
type Fixed bool

func (f Fixed) AcceleratorAvailable() bool {
	return bool(f)
}
