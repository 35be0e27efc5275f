//go:build !linux

// File: transport/ibv/bindprobe_stub.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package ibv

import (
	"net"

	"github.com/momentics/ibvlink/api"
)

func defaultBindProbe(cand net.IPAddr) (string, error) {
	return "", api.ErrNotSupported
}
