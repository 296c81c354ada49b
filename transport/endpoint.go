package transport

import (
	"strconv"
	"strings"

	"github.com/chalkan3-sloth/gridcore/xerr"
)

// ParseTCPEndpoint splits an endpoint such as tcp://host:port or
// tcp://[ipv6]:port into host and port. The host keeps its brackets when it
// had them. Malformed input yields an INVALID_ARGUMENT error.
func ParseTCPEndpoint(ep string) (string, uint16, error) {
	if ep == "" {
		return "", 0, xerr.New(xerr.CodeInvalidArgument, "empty endpoint")
	}

	colon := strings.LastIndexByte(ep, ':')
	if colon < 0 || colon >= len(ep)-1 {
		return "", 0, xerr.Newf(xerr.CodeInvalidArgument, "no port in endpoint %q", ep)
	}
	port, err := strconv.Atoi(ep[colon+1:])
	if err != nil || port <= 0 || port > 65535 {
		return "", 0, xerr.Newf(xerr.CodeInvalidArgument, "cannot parse port in %q", ep)
	}

	scheme := strings.Index(ep, "://")
	if scheme < 0 || scheme+3 >= colon {
		return "", 0, xerr.Newf(xerr.CodeInvalidArgument, "cannot parse host in %q", ep)
	}
	host := ep[scheme+3 : colon]
	if host == "" {
		return "", 0, xerr.Newf(xerr.CodeInvalidArgument, "cannot parse host in %q", ep)
	}
	return host, uint16(port), nil
}

// FormatTCPEndpoint builds tcp://host:port, bracketing bare IPv6 hosts.
func FormatTCPEndpoint(host string, port uint16) string {
	p := strconv.Itoa(int(port))
	if strings.Contains(host, ":") && !strings.HasPrefix(host, "[") {
		return "tcp://[" + host + "]:" + p
	}
	return "tcp://" + host + ":" + p
}

// hostOf extracts the host of an endpoint for deduplication, tolerating
// malformed input by returning it unchanged.
func hostOf(ep string) string {
	host, _, err := ParseTCPEndpoint(ep)
	if err != nil {
		return ep
	}
	return host
}
