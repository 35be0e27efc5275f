// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor provides the hardware-completion reactor owned by the ibv
// transport context: one dedicated thread that polls completion queues,
// routes completions to per-queue-pair handlers, and drains a deferred-task
// queue. Deferral into the reactor thread is the only synchronization
// primitive exposed for reactor-confined state.
package reactor
