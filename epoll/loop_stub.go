//go:build !linux

// File: epoll/loop_stub.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Stub for platforms without epoll.

package epoll

import (
	"go.uber.org/zap"

	"github.com/momentics/ibvlink/api"
)

// Loop is unavailable on this platform.
type Loop struct{}

// New reports that epoll multiplexing is unsupported here.
func New(logger *zap.Logger) (*Loop, error) {
	return nil, api.ErrNotSupported
}

func (l *Loop) Register(fd int, events api.Events, h api.DescriptorHandler) error {
	return api.ErrNotSupported
}

func (l *Loop) Unregister(fd int) error { return api.ErrNotSupported }

func (l *Loop) Close() {}

func (l *Loop) Join() {}
