//go:build linux

// File: internal/verbs/probe_linux_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package verbs

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/sys/unix"
)

func swapProbeSteps(t *testing.T, locate func() (string, error), list func() ([]Device, error)) {
	t.Helper()
	prevLocate, prevList := locateDriverLib, listDevices
	locateDriverLib, listDevices = locate, list
	t.Cleanup(func() {
		locateDriverLib, listDevices = prevLocate, prevList
	})
}

func TestProbe_DriverLibMissing(t *testing.T) {
	swapProbeSteps(t,
		func() (string, error) { return "", errors.New("not found") },
		func() ([]Device, error) { t.Fatal("listDevices must not be called"); return nil, nil },
	)

	devices, viable := Probe(zaptest.NewLogger(t))
	require.False(t, viable)
	require.Empty(t, devices)
}

func TestProbe_KernelModuleAbsent(t *testing.T) {
	swapProbeSteps(t,
		func() (string, error) { return "/usr/lib/libibverbs.so.1", nil },
		func() ([]Device, error) { return nil, unix.ENOENT },
	)

	devices, viable := Probe(zaptest.NewLogger(t))
	require.False(t, viable)
	require.Empty(t, devices)
}

func TestProbe_NoDevices(t *testing.T) {
	swapProbeSteps(t,
		func() (string, error) { return "/usr/lib/libibverbs.so.1", nil },
		func() ([]Device, error) { return nil, nil },
	)

	_, viable := Probe(zaptest.NewLogger(t))
	require.False(t, viable)
}

func TestProbe_Viable(t *testing.T) {
	want := []Device{{Name: "mlx5_0", Path: "/sys/class/infiniband/mlx5_0"}}
	swapProbeSteps(t,
		func() (string, error) { return "/usr/lib/libibverbs.so.1", nil },
		func() ([]Device, error) { return want, nil },
	)

	devices, viable := Probe(zaptest.NewLogger(t))
	require.True(t, viable)
	require.Equal(t, want, devices)
}

func TestModuleAbsent_Classification(t *testing.T) {
	require.True(t, moduleAbsent(unix.ENOENT))
	require.True(t, moduleAbsent(unix.ENOSYS))
	require.True(t, moduleAbsent(os.ErrNotExist))

	// Anything outside the recognized set must stay on the fatal path.
	require.False(t, moduleAbsent(unix.EACCES))
	require.False(t, moduleAbsent(errors.New("unexpected")))
}
