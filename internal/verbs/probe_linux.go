//go:build linux

// File: internal/verbs/probe_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Viability probing for the InfiniBand verbs stack. Absence of the driver
// library or kernel module is a normal runtime condition and degrades to an
// unviable result; a loadable library with broken device enumeration is not,
// and terminates the process.

package verbs

import (
	"errors"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

const sysClassInfiniband = "/sys/class/infiniband"

// driverLibNames lists the shared objects whose presence marks a loadable
// verbs driver stack.
var driverLibNames = []string{"libibverbs.so.1", "libibverbs.so"}

// driverLibDirs lists the directories searched for the driver library, in
// order.
var driverLibDirs = []string{
	"/usr/lib/x86_64-linux-gnu",
	"/usr/lib/aarch64-linux-gnu",
	"/usr/lib64",
	"/usr/lib",
	"/usr/local/lib",
}

// Overridable probe steps, swappable in tests.
var (
	locateDriverLib = defaultLocateDriverLib
	listDevices     = defaultListDevices
)

func defaultLocateDriverLib() (string, error) {
	for _, dir := range driverLibDirs {
		for _, name := range driverLibNames {
			p := filepath.Join(dir, name)
			if _, err := os.Stat(p); err == nil {
				return p, nil
			}
		}
	}
	return "", errors.New("libibverbs not found in library search path")
}

func defaultListDevices() ([]Device, error) {
	entries, err := os.ReadDir(sysClassInfiniband)
	if err != nil {
		return nil, err
	}
	devices := make([]Device, 0, len(entries))
	for _, e := range entries {
		devices = append(devices, Device{
			Name: e.Name(),
			Path: filepath.Join(sysClassInfiniband, e.Name()),
		})
	}
	return devices, nil
}

// moduleAbsent reports whether an enumeration failure means the kernel module
// is simply not loaded. The recognized set is closed: anything unrecognized
// takes the fatal path in Probe.
func moduleAbsent(err error) bool {
	return errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, unix.ENOENT) ||
		errors.Is(err, unix.ENOSYS)
}

// Probe classifies verbs stack availability on this host and returns the
// discovered device list alongside the viability verdict. It never fails for
// hardware absence; it does not return at all when enumeration is broken on a
// host that has the driver library.
func Probe(logger *zap.Logger) ([]Device, bool) {
	libPath, err := locateDriverLib()
	if err != nil {
		logger.Debug("ibv transport is not viable because the verbs driver library couldn't be loaded",
			zap.Error(err))
		return nil, false
	}

	devices, err := listDevices()
	if err != nil {
		if moduleAbsent(err) {
			logger.Debug("ibv transport is not viable because it couldn't get the list of InfiniBand devices; the kernel module isn't loaded",
				zap.Error(err))
			return nil, false
		}
		logger.Fatal("couldn't get list of InfiniBand devices",
			zap.String("driver", libPath),
			zap.Error(err))
	}

	if len(devices) == 0 {
		logger.Debug("ibv transport is not viable because it couldn't find any InfiniBand NICs")
		return nil, false
	}

	logger.Debug("ibv transport is viable",
		zap.String("driver", libPath),
		zap.Int("devices", len(devices)))
	return devices, true
}
