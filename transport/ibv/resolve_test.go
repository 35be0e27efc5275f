// File: transport/ibv/resolve_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package ibv

import (
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/momentics/ibvlink/api"
)

func swapInterfaceEntries(t *testing.T, fn func() ([]ifaceEntry, error)) {
	t.Helper()
	prev := interfaceEntries
	interfaceEntries = fn
	t.Cleanup(func() { interfaceEntries = prev })
}

func swapHostnameLookups(t *testing.T,
	hostname func() (string, error),
	resolve func(string) ([]net.IPAddr, error),
	probe func(net.IPAddr) (string, error),
) {
	t.Helper()
	prevHost, prevResolve, prevProbe := getHostname, resolveHostname, bindProbe
	if hostname != nil {
		getHostname = hostname
	}
	if resolve != nil {
		resolveHostname = resolve
	}
	if probe != nil {
		bindProbe = probe
	}
	t.Cleanup(func() {
		getHostname, resolveHostname, bindProbe = prevHost, prevResolve, prevProbe
	})
}

func TestLookupAddrForIface_UnknownInterface(t *testing.T) {
	_, err := lookupAddrForIface("nonexistent0")
	require.ErrorIs(t, err, api.ErrNoAddrFound)
}

func TestLookupAddrForIface_Loopback(t *testing.T) {
	ifaces, err := net.Interfaces()
	require.NoError(t, err)

	var loopback string
	for _, ifi := range ifaces {
		if ifi.Flags&net.FlagLoopback != 0 {
			loopback = ifi.Name
			break
		}
	}
	if loopback == "" {
		t.Skip("no loopback interface on this host")
	}

	addr, err := lookupAddrForIface(loopback)
	require.NoError(t, err)

	host, port, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	require.Equal(t, "0", port)
	require.NotNil(t, net.ParseIP(host))
}

func TestLookupAddrForIface_FirstMatchWins(t *testing.T) {
	swapInterfaceEntries(t, func() ([]ifaceEntry, error) {
		return []ifaceEntry{
			{name: "eth1", ip: net.ParseIP("192.168.1.1")},
			{name: "eth0", ip: net.ParseIP("10.0.0.1")},
			{name: "eth0", ip: net.ParseIP("10.0.0.2")},
		}, nil
	})

	addr, err := lookupAddrForIface("eth0")
	require.NoError(t, err)
	require.Equal(t, "10.0.0.1:0", addr)
}

func TestLookupAddrForIface_IPv6Presentation(t *testing.T) {
	swapInterfaceEntries(t, func() ([]ifaceEntry, error) {
		return []ifaceEntry{
			{name: "ib0", ip: net.ParseIP("fe80::1"), zone: "ib0"},
		}, nil
	})

	addr, err := lookupAddrForIface("ib0")
	require.NoError(t, err)
	require.Equal(t, "[fe80::1%ib0]:0", addr)
}

func TestLookupAddrForIface_EnumerationFailure(t *testing.T) {
	swapInterfaceEntries(t, func() ([]ifaceEntry, error) {
		return nil, &api.SystemError{Call: "getifaddrs", Err: errors.New("boom")}
	})

	_, err := lookupAddrForIface("eth0")
	var sysErr *api.SystemError
	require.ErrorAs(t, err, &sysErr)
	require.Equal(t, "getifaddrs", sysErr.Call)
}

func TestLookupAddrForHostname_SecondCandidateBinds(t *testing.T) {
	cands := []net.IPAddr{
		{IP: net.ParseIP("203.0.113.1")},
		{IP: net.ParseIP("10.0.0.7")},
		{IP: net.ParseIP("10.0.0.8")},
	}
	var probed []string
	swapHostnameLookups(t,
		func() (string, error) { return "node42", nil },
		func(host string) ([]net.IPAddr, error) {
			require.Equal(t, "node42", host)
			return cands, nil
		},
		func(cand net.IPAddr) (string, error) {
			probed = append(probed, cand.IP.String())
			if cand.IP.String() == "10.0.0.7" {
				return formatAddr(cand.IP, "", 0), nil
			}
			return "", &api.SystemError{Call: "bind", Err: errors.New("cannot assign requested address")}
		},
	)

	addr, err := lookupAddrForHostname()
	require.NoError(t, err)
	require.Equal(t, "10.0.0.7:0", addr)
	// Must not short-circuit on the first failure, and must stop at the
	// first success.
	require.Equal(t, []string{"203.0.113.1", "10.0.0.7"}, probed)
}

func TestLookupAddrForHostname_FirstErrorRetained(t *testing.T) {
	errs := map[string]error{
		"203.0.113.1": errors.New("EADDRNOTAVAIL"),
		"203.0.113.2": errors.New("EACCES"),
		"203.0.113.3": errors.New("EINVAL"),
	}
	swapHostnameLookups(t,
		func() (string, error) { return "node42", nil },
		func(string) ([]net.IPAddr, error) {
			return []net.IPAddr{
				{IP: net.ParseIP("203.0.113.1")},
				{IP: net.ParseIP("203.0.113.2")},
				{IP: net.ParseIP("203.0.113.3")},
			}, nil
		},
		func(cand net.IPAddr) (string, error) {
			return "", &api.SystemError{Call: "bind", Err: errs[cand.IP.String()]}
		},
	)

	_, err := lookupAddrForHostname()
	var sysErr *api.SystemError
	require.ErrorAs(t, err, &sysErr)
	require.Equal(t, "bind", sysErr.Call)
	require.ErrorIs(t, err, errs["203.0.113.1"])
}

func TestLookupAddrForHostname_EmptyCandidateList(t *testing.T) {
	swapHostnameLookups(t,
		func() (string, error) { return "node42", nil },
		func(string) ([]net.IPAddr, error) { return nil, nil },
		func(net.IPAddr) (string, error) {
			t.Fatal("bind probe must not run with no candidates")
			return "", nil
		},
	)

	_, err := lookupAddrForHostname()
	require.ErrorIs(t, err, api.ErrNoAddrFound)
}

func TestLookupAddrForHostname_HostnameFailure(t *testing.T) {
	swapHostnameLookups(t,
		func() (string, error) { return "", errors.New("boom") },
		nil, nil,
	)

	_, err := lookupAddrForHostname()
	var sysErr *api.SystemError
	require.ErrorAs(t, err, &sysErr)
	require.Equal(t, "gethostname", sysErr.Call)
}

func TestLookupAddrForHostname_ResolutionFailure(t *testing.T) {
	swapHostnameLookups(t,
		func() (string, error) { return "node42", nil },
		func(string) ([]net.IPAddr, error) {
			return nil, &api.NameResolutionError{Err: errors.New("no such host")}
		},
		nil,
	)

	_, err := lookupAddrForHostname()
	var resErr *api.NameResolutionError
	require.ErrorAs(t, err, &resErr)
}
