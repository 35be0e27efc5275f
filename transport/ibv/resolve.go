// File: transport/ibv/resolve.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Bindable-address resolution. Two independent strategies: scan the OS
// interface list for a named interface, or resolve the local hostname and
// bind-probe each resolved candidate. Neither strategy throws; both return an
// address-or-error pair.

package ibv

import (
	"context"
	"net"
	"os"

	"github.com/momentics/ibvlink/api"
)

// ifaceEntry is one (interface, address) pair in OS enumeration order.
type ifaceEntry struct {
	name string
	ip   net.IP
	zone string
}

// Override points for tests.
var (
	interfaceEntries = defaultInterfaceEntries
	getHostname      = os.Hostname
	resolveHostname  = defaultResolveHostname
	bindProbe        = defaultBindProbe
)

func defaultInterfaceEntries() ([]ifaceEntry, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, &api.SystemError{Call: "getifaddrs", Err: err}
	}
	var entries []ifaceEntry
	for _, ifi := range ifaces {
		addrs, err := ifi.Addrs()
		if err != nil {
			// Entry without a usable address list; skip it.
			continue
		}
		for _, a := range addrs {
			ipn, ok := a.(*net.IPNet)
			if !ok || ipn.IP == nil {
				continue
			}
			zone := ""
			if ipn.IP.To4() == nil && ipn.IP.IsLinkLocalUnicast() {
				zone = ifi.Name
			}
			entries = append(entries, ifaceEntry{name: ifi.Name, ip: ipn.IP, zone: zone})
		}
	}
	return entries, nil
}

func defaultResolveHostname(host string) ([]net.IPAddr, error) {
	// Stream/TCP semantics: the resolver's ordered candidate list for the
	// local hostname.
	addrs, err := net.DefaultResolver.LookupIPAddr(context.Background(), host)
	if err != nil {
		return nil, &api.NameResolutionError{Err: err}
	}
	return addrs, nil
}

// LookupAddrForIface returns a bindable presentation address for the named
// interface. First-match semantics: the scan stops at the first entry whose
// name equals iface and whose address family is IPv4 or IPv6.
func (c *Context) LookupAddrForIface(iface string) (string, error) {
	return lookupAddrForIface(iface)
}

func lookupAddrForIface(iface string) (string, error) {
	entries, err := interfaceEntries()
	if err != nil {
		return "", err
	}
	for _, e := range entries {
		if e.name != iface {
			continue
		}
		if ip4 := e.ip.To4(); ip4 != nil {
			return formatAddr(ip4, "", 0), nil
		}
		if e.ip.To16() != nil {
			return formatAddr(e.ip, e.zone, 0), nil
		}
	}
	return "", api.ErrNoAddrFound
}

// LookupAddrForHostname resolves the local hostname and returns the first
// resolved candidate that actually binds on this host. A resolved name may
// list addresses the host cannot bind, so every candidate is verified with a
// throwaway probing socket.
func (c *Context) LookupAddrForHostname() (string, error) {
	return lookupAddrForHostname()
}

func lookupAddrForHostname() (string, error) {
	host, err := getHostname()
	if err != nil {
		return "", &api.SystemError{Call: "gethostname", Err: err}
	}

	candidates, err := resolveHostname(host)
	if err != nil {
		return "", err
	}

	var firstErr error
	for _, cand := range candidates {
		addr, err := bindProbe(cand)
		if err != nil {
			// Record the first binding error and return it if no working
			// address is found; the first failure is the most diagnostic.
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		return addr, nil
	}

	if firstErr != nil {
		return "", firstErr
	}
	return "", api.ErrNoAddrFound
}
