//go:build linux

// File: transport/ibv/bindprobe_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Bind verification for resolved hostname candidates. One bind attempt per
// candidate, no retry, no timeout; the probing socket is closed on every
// path and never reused for communication.

package ibv

import (
	"net"

	"golang.org/x/sys/unix"

	"github.com/momentics/ibvlink/api"
)

func defaultBindProbe(cand net.IPAddr) (string, error) {
	family, sa := toSockaddr(cand)
	if sa == nil {
		return "", api.ErrNoAddrFound
	}

	fd, err := unix.Socket(family, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, unix.IPPROTO_TCP)
	if err != nil {
		return "", &api.SystemError{Call: "socket", Err: err}
	}
	defer unix.Close(fd)

	if err := unix.Bind(fd, sa); err != nil {
		return "", &api.SystemError{Call: "bind", Err: err}
	}
	return formatAddr(cand.IP, cand.Zone, 0), nil
}

func toSockaddr(cand net.IPAddr) (int, unix.Sockaddr) {
	if ip4 := cand.IP.To4(); ip4 != nil {
		sa := &unix.SockaddrInet4{}
		copy(sa.Addr[:], ip4)
		return unix.AF_INET, sa
	}
	if ip16 := cand.IP.To16(); ip16 != nil {
		sa := &unix.SockaddrInet6{}
		copy(sa.Addr[:], ip16)
		if cand.Zone != "" {
			if ifi, err := net.InterfaceByName(cand.Zone); err == nil {
				sa.ZoneId = uint32(ifi.Index)
			}
		}
		return unix.AF_INET6, sa
	}
	return 0, nil
}
