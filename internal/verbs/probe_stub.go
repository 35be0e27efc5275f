//go:build !linux

// File: internal/verbs/probe_stub.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Stub probe for platforms without a verbs stack.

package verbs

import "go.uber.org/zap"

// Probe always reports not viable: the verbs stack requires Linux.
func Probe(logger *zap.Logger) ([]Device, bool) {
	logger.Debug("ibv transport is not viable on this platform")
	return nil, false
}
