// File: api/events.go
// Package api defines core event types for ibvlink.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// Events is a bitmask of descriptor readiness conditions.
type Events uint32

const (
	// EventReadable indicates the descriptor is ready for reading.
	EventReadable Events = 1 << iota
	// EventWritable indicates the descriptor is ready for writing.
	EventWritable
	// EventError indicates an error or hangup condition on the descriptor.
	EventError
)

// DescriptorHandler receives readiness notifications for a registered
// descriptor. OnReady runs on the epoll loop's own thread and must not block.
type DescriptorHandler interface {
	OnReady(events Events)
}
