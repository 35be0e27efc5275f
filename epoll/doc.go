// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package epoll provides the descriptor-multiplexing loop owned by the ibv
// transport context. One dedicated thread polls registered socket descriptors
// and dispatches readiness events to their handlers.
package epoll
