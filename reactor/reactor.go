//go:build linux

// File: reactor/reactor.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Busy-poll completion reactor with adaptive idle backoff. The loop thread is
// locked to an OS thread so InLoop can compare kernel thread ids.

package reactor

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/eapache/queue"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

const (
	defaultPollBatch = 16
	minIdleBackoff   = time.Microsecond
	maxIdleBackoff   = time.Millisecond
)

// Completion is one finished asynchronous operation reported by the hardware.
type Completion struct {
	QueueNum uint32 // queue pair the completion belongs to
	OpID     uint64 // work request identifier
	Status   uint32 // zero on success, vendor status code otherwise
	Bytes    uint32 // bytes transferred
}

// CompletionHandler consumes completions for one queue pair. OnCompletion
// runs on the reactor thread.
type CompletionHandler interface {
	OnCompletion(c Completion)
}

// CompletionSource drains ready completions from the hardware queues. The
// concrete verbs binding provides the implementation; the reactor only polls.
type CompletionSource interface {
	// Poll fills out with ready completions and returns how many were
	// written. It must not block.
	Poll(out []Completion) (int, error)

	// Close releases the underlying hardware resources.
	Close() error
}

// Config carries reactor construction parameters.
type Config struct {
	Logger    *zap.Logger
	Source    CompletionSource // nil yields a deferral-only reactor
	PollBatch int              // completions polled per cycle
	Clock     clock.Clock      // injectable for backoff-sensitive tests
}

// Reactor owns one polling thread and an unbounded deferred-task FIFO drained
// exclusively by that thread.
type Reactor struct {
	logger *zap.Logger
	source CompletionSource
	clk    clock.Clock
	batch  int

	mu       sync.Mutex
	deferred *queue.Queue

	handlersMu sync.Mutex
	handlers   map[uint32]CompletionHandler

	tid    atomic.Int64
	closed atomic.Bool
	done   chan struct{}
}

// New starts the reactor thread. It returns once the thread is running and
// InLoop reports accurately.
func New(cfg *Config) (*Reactor, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	r := &Reactor{
		logger:   cfg.Logger,
		source:   cfg.Source,
		clk:      cfg.Clock,
		batch:    cfg.PollBatch,
		deferred: queue.New(),
		handlers: make(map[uint32]CompletionHandler),
		done:     make(chan struct{}),
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	if r.clk == nil {
		r.clk = clock.New()
	}
	if r.batch <= 0 {
		r.batch = defaultPollBatch
	}
	r.tid.Store(-1)

	ready := make(chan struct{})
	go r.run(ready)
	<-ready
	return r, nil
}

// Defer submits fn for execution on the reactor thread. Non-blocking; fn runs
// at most once, in FIFO order, never inline with this call, even when the
// caller is the reactor thread itself. Tasks submitted after Close may be
// discarded without running.
func (r *Reactor) Defer(fn func()) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	r.deferred.Add(fn)
	r.mu.Unlock()
}

// InLoop reports whether the calling thread is the reactor's owning thread.
func (r *Reactor) InLoop() bool {
	return int64(unix.Gettid()) == r.tid.Load()
}

// RegisterHandler routes completions for the given queue pair to h.
func (r *Reactor) RegisterHandler(queueNum uint32, h CompletionHandler) {
	r.handlersMu.Lock()
	defer r.handlersMu.Unlock()
	r.handlers[queueNum] = h
}

// UnregisterHandler removes the routing entry for the given queue pair.
// Idempotent.
func (r *Reactor) UnregisterHandler(queueNum uint32) {
	r.handlersMu.Lock()
	defer r.handlersMu.Unlock()
	delete(r.handlers, queueNum)
}

// Close triggers reactor shutdown. Non-blocking, idempotent, safe under
// concurrent invocation from arbitrary threads.
func (r *Reactor) Close() {
	r.closed.Store(true)
}

// Join blocks until the reactor thread has exited.
func (r *Reactor) Join() {
	<-r.done
}

func (r *Reactor) run(ready chan<- struct{}) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	r.tid.Store(int64(unix.Gettid()))
	close(ready)

	defer close(r.done)
	defer func() {
		if r.source != nil {
			if err := r.source.Close(); err != nil {
				r.logger.Warn("completion source close failed", zap.Error(err))
			}
		}
	}()

	completions := make([]Completion, r.batch)
	backoff := minIdleBackoff
	for {
		busy := r.drainDeferred() > 0
		if r.pollCompletions(completions) > 0 {
			busy = true
		}

		if r.closed.Load() {
			// Tasks enqueued before close still run; anything arriving later
			// is discarded with the reactor.
			r.drainDeferred()
			return
		}

		if busy {
			backoff = minIdleBackoff
			continue
		}
		r.clk.Sleep(backoff)
		backoff *= 2
		if backoff > maxIdleBackoff {
			backoff = maxIdleBackoff
		}
	}
}

func (r *Reactor) drainDeferred() int {
	n := 0
	for {
		r.mu.Lock()
		if r.deferred.Length() == 0 {
			r.mu.Unlock()
			return n
		}
		fn := r.deferred.Remove().(func())
		r.mu.Unlock()

		n++
		r.runTask(fn)
	}
}

func (r *Reactor) runTask(fn func()) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("deferred task panicked", zap.Any("panic", p))
		}
	}()
	fn()
}

func (r *Reactor) pollCompletions(out []Completion) int {
	if r.source == nil {
		return 0
	}
	n, err := r.source.Poll(out)
	if err != nil {
		r.logger.Warn("completion poll failed", zap.Error(err))
		return 0
	}
	for i := 0; i < n; i++ {
		r.dispatch(out[i])
	}
	return n
}

func (r *Reactor) dispatch(c Completion) {
	r.handlersMu.Lock()
	h := r.handlers[c.QueueNum]
	r.handlersMu.Unlock()
	if h == nil {
		r.logger.Warn("completion for unregistered queue pair",
			zap.Uint32("qpn", c.QueueNum))
		return
	}

	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("completion handler panicked",
				zap.Uint32("qpn", c.QueueNum),
				zap.Any("panic", p))
		}
	}()
	h.OnCompletion(c)
}
