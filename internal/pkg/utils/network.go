package utils

import "net"

// ExposedBind reports whether a listen address accepts connections from
// outside loopback and private networks. A bare ":port" or an unspecified
// address listens everywhere.
func ExposedBind(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}
	if host == "" {
		return true
	}
	if host == "localhost" {
		return false
	}

	ips := []net.IP{net.ParseIP(host)}
	if ips[0] == nil {
		if ips, err = net.LookupIP(host); err != nil {
			// an unresolvable name cannot be bound anyway
			return false
		}
	}

	for _, ip := range ips {
		if ip.IsUnspecified() {
			return true
		}
		if !ip.IsLoopback() && !ip.IsPrivate() && !ip.IsLinkLocalUnicast() {
			return true
		}
	}
	return false
}
