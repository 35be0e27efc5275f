//go:build linux

// File: epoll/loop_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Linux epoll(7)-based multiplexing loop. Registration changes may originate
// from any thread; handler dispatch happens only on the loop's own thread. An
// eventfd wakes the loop for prompt shutdown.

package epoll

import (
	"encoding/binary"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/momentics/ibvlink/api"
)

const maxEpollEvents = 64

// Loop multiplexes socket descriptors on a dedicated OS thread.
type Loop struct {
	logger *zap.Logger

	epfd   int
	wakeFd int

	mu       sync.Mutex
	handlers map[int]api.DescriptorHandler

	closed atomic.Bool
	done   chan struct{}
}

// New creates the epoll instance and its wakeup eventfd and starts the owning
// thread.
func New(logger *zap.Logger) (*Loop, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll create: %w", err)
	}

	wakeFd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		_ = unix.Close(epfd)
		return nil, fmt.Errorf("eventfd: %w", err)
	}

	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(wakeFd)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wakeFd, &ev); err != nil {
		_ = unix.Close(epfd)
		_ = unix.Close(wakeFd)
		return nil, fmt.Errorf("epoll ctl add wakeup: %w", err)
	}

	l := &Loop{
		logger:   logger,
		epfd:     epfd,
		wakeFd:   wakeFd,
		handlers: make(map[int]api.DescriptorHandler),
		done:     make(chan struct{}),
	}
	go l.run()
	return l, nil
}

// Register adds fd to the watch set with the given readiness interest.
func (l *Loop) Register(fd int, events api.Events, h api.DescriptorHandler) error {
	if l.closed.Load() {
		return api.ErrClosed
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	ev := unix.EpollEvent{Events: toEpollEvents(events), Fd: int32(fd)}
	if err := unix.EpollCtl(l.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return fmt.Errorf("epoll ctl add: %w", err)
	}
	l.handlers[fd] = h
	return nil
}

// Unregister removes fd from the watch set. Calling it on an unknown or
// already-removed descriptor is a no-op. Once Unregister returns, the
// descriptor's handler will not be invoked for events not yet dispatched.
func (l *Loop) Unregister(fd int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.handlers[fd]; !ok {
		return nil
	}
	delete(l.handlers, fd)

	if err := unix.EpollCtl(l.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		// The kernel may have dropped the registration already (descriptor
		// closed elsewhere); that still counts as unregistered.
		if err == unix.ENOENT || err == unix.EBADF {
			return nil
		}
		return fmt.Errorf("epoll ctl del: %w", err)
	}
	return nil
}

// Close triggers loop shutdown. Non-blocking, idempotent, safe to call from
// multiple threads concurrently.
func (l *Loop) Close() {
	if !l.closed.CompareAndSwap(false, true) {
		return
	}
	l.wake()
}

// Join blocks until the loop thread has exited.
func (l *Loop) Join() {
	<-l.done
}

func (l *Loop) wake() {
	var one [8]byte
	binary.NativeEndian.PutUint64(one[:], 1)
	if _, err := unix.Write(l.wakeFd, one[:]); err != nil && err != unix.EAGAIN {
		l.logger.Warn("epoll loop wakeup failed", zap.Error(err))
	}
}

func (l *Loop) run() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(l.done)

	events := make([]unix.EpollEvent, maxEpollEvents)
	for {
		n, err := unix.EpollWait(l.epfd, events, -1)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			l.logger.Error("epoll wait failed", zap.Error(err))
			break
		}

		for i := 0; i < n; i++ {
			fd := int(events[i].Fd)
			if fd == l.wakeFd {
				l.drainWakeups()
				continue
			}
			l.dispatch(fd, fromEpollEvents(events[i].Events))
		}

		if l.closed.Load() {
			break
		}
	}

	l.closed.Store(true)
	if err := multierr.Append(unix.Close(l.epfd), unix.Close(l.wakeFd)); err != nil {
		l.logger.Warn("epoll loop cleanup failed", zap.Error(err))
	}
}

func (l *Loop) drainWakeups() {
	var buf [8]byte
	for {
		if _, err := unix.Read(l.wakeFd, buf[:]); err != nil {
			return
		}
	}
}

func (l *Loop) dispatch(fd int, events api.Events) {
	l.mu.Lock()
	h := l.handlers[fd]
	l.mu.Unlock()
	if h == nil || events == 0 {
		return
	}

	// Keep the loop alive when a handler panics.
	defer func() {
		if p := recover(); p != nil {
			l.logger.Error("descriptor handler panicked",
				zap.Int("fd", fd),
				zap.Any("panic", p))
		}
	}()
	h.OnReady(events)
}

func toEpollEvents(events api.Events) uint32 {
	var out uint32
	if events&api.EventReadable != 0 {
		out |= unix.EPOLLIN
	}
	if events&api.EventWritable != 0 {
		out |= unix.EPOLLOUT
	}
	// Error and hangup conditions are always reported by the kernel.
	return out
}

func fromEpollEvents(raw uint32) api.Events {
	var out api.Events
	if raw&unix.EPOLLIN != 0 {
		out |= api.EventReadable
	}
	if raw&unix.EPOLLOUT != 0 {
		out |= api.EventWritable
	}
	if raw&(unix.EPOLLERR|unix.EPOLLHUP) != 0 {
		out |= api.EventError
	}
	return out
}
