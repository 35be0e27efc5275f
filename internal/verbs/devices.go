// File: internal/verbs/devices.go
// Package verbs probes the host's InfiniBand verbs stack.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package verbs

// Device identifies one RDMA-capable device discovered on the host.
type Device struct {
	Name string // device name, e.g. "mlx5_0"
	Path string // sysfs node backing the device
}
