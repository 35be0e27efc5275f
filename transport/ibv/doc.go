// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package ibv implements the transport context for the InfiniBand verbs
// backend. The factory probes the host for a usable verbs stack; a viable
// context owns one epoll multiplexing loop and one hardware-completion
// reactor and advertises a domain descriptor for peer compatibility checks.
// A host without the hardware yields an inert context that consumers skip in
// favor of other transports.
package ibv
