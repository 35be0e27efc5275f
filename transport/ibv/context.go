// File: transport/ibv/context.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Transport context lifecycle: viability probing at construction, domain
// descriptor generation, and delegation to the two owned event loops.

package ibv

import (
	"sync"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/momentics/ibvlink/api"
	"github.com/momentics/ibvlink/epoll"
	"github.com/momentics/ibvlink/internal/verbs"
	"github.com/momentics/ibvlink/reactor"
)

// Prefix the descriptor with the transport name so descriptors are easy to
// disambiguate when debugging.
const domainDescriptorPrefix = "ibv:"

// generateDomainDescriptor returns the compatibility token for a viable
// context. Nothing in the verbs stack exposes an identifier for the
// InfiniBand subnet a device belongs to, so two processes that both have
// access to a device are assumed to have been set up to reach each other: the
// token is a fixed wildcard and every pair of viable contexts matches.
func generateDomainDescriptor() string {
	return domainDescriptorPrefix + "*"
}

// probeDevices is an override point for tests.
var probeDevices = verbs.Probe

// Config holds parameters for context construction. All fields are optional.
type Config struct {
	// Logger receives probe and loop diagnostics. Defaults to a no-op logger.
	Logger *zap.Logger

	// Source is the completion-queue binding for the discovered devices,
	// supplied by the verbs collaborator. A nil source leaves the reactor
	// deferral-only.
	Source reactor.CompletionSource

	// PollBatch is the number of completions polled per reactor cycle.
	PollBatch int

	// Clock drives the reactor's idle backoff. Defaults to the wall clock.
	Clock clock.Clock
}

// DefaultConfig returns the default construction parameters.
func DefaultConfig() *Config {
	return &Config{
		Logger:    zap.NewNop(),
		PollBatch: 16,
	}
}

// Context is the ibv transport context. Create it with New; consumers must
// branch on IsViable before using it for I/O.
type Context struct {
	logger *zap.Logger

	viable           bool
	domainDescriptor string
	deviceNames      []string

	loop    *epoll.Loop
	reactor *reactor.Reactor

	closeOnce sync.Once
}

var _ api.Context = (*Context)(nil)

// New probes the host and returns a transport context. Hardware absence is a
// normal condition and yields an unviable context, never an error; errors are
// reserved for failures setting up the loops on a viable host.
func New(cfg *Config) (*Context, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	devices, viable := probeDevices(logger)
	if !viable {
		return &Context{logger: logger}, nil
	}

	names := make([]string, len(devices))
	for i, d := range devices {
		names[i] = d.Name
	}

	r, err := reactor.New(&reactor.Config{
		Logger:    logger,
		Source:    cfg.Source,
		PollBatch: cfg.PollBatch,
		Clock:     cfg.Clock,
	})
	if err != nil {
		return nil, err
	}

	l, err := epoll.New(logger)
	if err != nil {
		r.Close()
		r.Join()
		return nil, err
	}

	logger.Debug("ibv transport context created", zap.Strings("devices", names))
	return &Context{
		logger:           logger,
		viable:           true,
		domainDescriptor: generateDomainDescriptor(),
		deviceNames:      names,
		loop:             l,
		reactor:          r,
	}, nil
}

// IsViable reports whether the verbs stack is present and functional on this
// host. Fixed at construction.
func (c *Context) IsViable() bool {
	return c.viable
}

// DomainDescriptor returns the peer-compatibility token: "ibv:*" for viable
// contexts, "" for unviable ones. Peers compare descriptors by exact string
// equality, so an unviable context never matches anything.
func (c *Context) DomainDescriptor() string {
	return c.domainDescriptor
}

// Devices returns the names of the discovered RDMA devices.
func (c *Context) Devices() []string {
	return c.deviceNames
}

// RegisterDescriptor watches fd on the epoll loop. Callable from any thread.
func (c *Context) RegisterDescriptor(fd int, events api.Events, h api.DescriptorHandler) error {
	if !c.viable {
		return nil
	}
	return c.loop.Register(fd, events, h)
}

// UnregisterDescriptor stops watching fd. Idempotent.
func (c *Context) UnregisterDescriptor(fd int) error {
	if !c.viable {
		return nil
	}
	return c.loop.Unregister(fd)
}

// DeferToLoop submits fn to the reactor thread. Collaborators use this for
// every touch of reactor-confined state from other threads.
func (c *Context) DeferToLoop(fn func()) {
	if !c.viable {
		return
	}
	c.reactor.Defer(fn)
}

// InLoop reports whether the caller runs on the reactor thread.
func (c *Context) InLoop() bool {
	if !c.viable {
		return false
	}
	return c.reactor.InLoop()
}

// Reactor exposes the completion reactor to the connection implementation.
func (c *Context) Reactor() *reactor.Reactor {
	return c.reactor
}

// Close triggers orderly shutdown of both owned loops. Non-blocking,
// idempotent, safe under concurrent invocation from arbitrary threads. A
// closed context cannot be resurrected.
func (c *Context) Close() {
	if !c.viable {
		return
	}
	c.closeOnce.Do(func() {
		c.logger.Debug("closing ibv transport context")
		c.loop.Close()
		c.reactor.Close()
	})
}

// Join blocks until both loop threads have exited. Call only after Close; on
// an unviable context it is a safe no-op. Never call Join from a task running
// on the reactor thread: defer the join to another thread instead.
func (c *Context) Join() {
	if !c.viable {
		return
	}
	c.loop.Join()
	c.reactor.Join()
	c.logger.Debug("ibv transport context joined")
}
