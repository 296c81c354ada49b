// Package netutil provides the hostname, address and port discovery helpers
// used by the transport layer's wildcard bind expansion.
package netutil

import (
	"net"
	"os"

	"github.com/chalkan3-sloth/gridcore/xerr"
)

// OwnHostname returns the local machine's hostname.
func OwnHostname() (string, error) {
	name, err := os.Hostname()
	if err != nil {
		return "", xerr.New(xerr.CodeInternal, "cannot read own hostname").WithCause(err)
	}
	return name, nil
}

// ResolveHostname resolves a name to a single IP string, preferring IPv4.
func ResolveHostname(name string) (string, error) {
	if name == "" {
		return "", xerr.New(xerr.CodeInvalidArgument, "empty hostname")
	}
	ips, err := net.LookupIP(name)
	if err != nil || len(ips) == 0 {
		return "", xerr.Newf(xerr.CodeInvalidArgument, "cannot resolve %q", name).WithCause(err)
	}
	for _, ip := range ips {
		if v4 := ip.To4(); v4 != nil {
			return v4.String(), nil
		}
	}
	return ips[0].String(), nil
}

// OwnIPs lists the IPs assigned to local interfaces. With withLoopback set,
// loopback addresses are included, and 127.0.0.1 is returned as a last
// resort so a wildcard bind always expands to at least one endpoint.
func OwnIPs(withLoopback bool) []string {
	var out []string
	seen := make(map[string]struct{})

	add := func(ip net.IP) {
		if ip == nil {
			return
		}
		if ip.IsLoopback() && !withLoopback {
			return
		}
		s := ip.String()
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	if name, err := os.Hostname(); err == nil {
		if ips, err := net.LookupIP(name); err == nil {
			for _, ip := range ips {
				add(ip)
			}
		}
	}
	if addrs, err := net.InterfaceAddrs(); err == nil {
		for _, a := range addrs {
			if ipn, ok := a.(*net.IPNet); ok {
				add(ipn.IP)
			}
		}
	}
	if len(out) == 0 && withLoopback {
		out = append(out, "127.0.0.1")
	}
	return out
}

// FindUnusedTCPPort finds one free TCP port on the given interface. The
// hostname may be a local name, an IP, or the "*" wildcard meaning all
// interfaces.
func FindUnusedTCPPort(hostname string) (uint16, error) {
	ports, err := FindUnusedTCPPorts(1, hostname)
	if err != nil {
		return 0, err
	}
	return ports[0], nil
}

// FindUnusedTCPPorts finds count free TCP ports. The listeners stay open
// until all ports are allocated so the kernel cannot hand the same port out
// twice.
func FindUnusedTCPPorts(count int, hostname string) ([]uint16, error) {
	if hostname == "" {
		return nil, xerr.New(xerr.CodeInvalidArgument, "empty hostname parameter")
	}
	if count < 1 {
		return nil, xerr.New(xerr.CodeInvalidArgument, "port count must be positive")
	}
	host := hostname
	if host == "*" {
		host = ""
	}

	var (
		listeners []net.Listener
		ports     []uint16
	)
	defer func() {
		for _, l := range listeners {
			_ = l.Close()
		}
	}()

	for i := 0; i < count; i++ {
		l, err := net.Listen("tcp", net.JoinHostPort(host, "0"))
		if err != nil {
			return nil, xerr.Newf(xerr.CodeTransport, "cannot probe port on %q", hostname).WithCause(err)
		}
		listeners = append(listeners, l)
		addr := l.Addr().(*net.TCPAddr)
		ports = append(ports, uint16(addr.Port))
	}
	return ports, nil
}
