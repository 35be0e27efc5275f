// File: api/interfaces.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Contracts consumed by connection and listener implementations built on top
// of the ibv transport context.

package api

// Registrar registers socket descriptors for readiness notifications on a
// multiplexing loop. Safe to call from any thread; the loop serializes
// registration changes against its own poll cycle.
type Registrar interface {
	// RegisterDescriptor watches fd for the given readiness events.
	RegisterDescriptor(fd int, events Events, h DescriptorHandler) error

	// UnregisterDescriptor stops watching fd. Idempotent: unregistering a
	// descriptor that was already removed is a no-op.
	UnregisterDescriptor(fd int) error
}

// Deferrer schedules work onto a loop's owning thread. Deferral is the sole
// synchronization primitive for state confined to that thread.
type Deferrer interface {
	// DeferToLoop submits fn for execution on the owning thread. Non-blocking;
	// fn runs at most once, in FIFO order, and never inline with this call.
	DeferToLoop(fn func())

	// InLoop reports whether the caller is running on the owning thread.
	InLoop() bool
}

// Context is the hardware-backed transport context. Consumers must branch on
// IsViable before using it for I/O; every operation on an unviable context is
// a safe no-op.
type Context interface {
	Registrar
	Deferrer

	// IsViable reports whether the verbs stack is present and functional.
	IsViable() bool

	// DomainDescriptor returns the compatibility token advertised to peers.
	// Empty exactly when the context is not viable.
	DomainDescriptor() string

	// LookupAddrForIface returns a bindable presentation address for the
	// named network interface.
	LookupAddrForIface(iface string) (string, error)

	// LookupAddrForHostname returns a bindable presentation address derived
	// from the local hostname.
	LookupAddrForHostname() (string, error)

	// Close triggers orderly shutdown of the owned loops. Non-blocking,
	// idempotent, safe under concurrent invocation.
	Close()

	// Join blocks until both loop threads have exited. Must not be called
	// from a task running on the reactor thread.
	Join()
}
