// File: transport/ibv/sockaddr.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package ibv

import (
	"net"
	"strconv"
)

// formatAddr renders an IP in presentation form with an explicit port, the
// format listeners accept: "1.2.3.4:0", "[fe80::1%eth0]:0".
func formatAddr(ip net.IP, zone string, port int) string {
	host := ip.String()
	if zone != "" {
		host += "%" + zone
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}
