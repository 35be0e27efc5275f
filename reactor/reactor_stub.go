//go:build !linux

// File: reactor/reactor_stub.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Stub for platforms without a verbs stack.

package reactor

import (
	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/momentics/ibvlink/api"
)

// Completion is one finished asynchronous operation reported by the hardware.
type Completion struct {
	QueueNum uint32
	OpID     uint64
	Status   uint32
	Bytes    uint32
}

// CompletionHandler consumes completions for one queue pair.
type CompletionHandler interface {
	OnCompletion(c Completion)
}

// CompletionSource drains ready completions from the hardware queues.
type CompletionSource interface {
	Poll(out []Completion) (int, error)
	Close() error
}

// Config carries reactor construction parameters.
type Config struct {
	Logger    *zap.Logger
	Source    CompletionSource
	PollBatch int
	Clock     clock.Clock
}

// Reactor is unavailable on this platform.
type Reactor struct{}

// New reports that the completion reactor is unsupported here.
func New(cfg *Config) (*Reactor, error) {
	return nil, api.ErrNotSupported
}

func (r *Reactor) Defer(fn func()) {}

func (r *Reactor) InLoop() bool { return false }

func (r *Reactor) RegisterHandler(queueNum uint32, h CompletionHandler) {}

func (r *Reactor) UnregisterHandler(queueNum uint32) {}

func (r *Reactor) Close() {}

func (r *Reactor) Join() {}
