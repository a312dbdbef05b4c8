package admin

import (
	"net"
	"strconv"
	"strings"
)

// Endpoint networks.
const (
	NetworkUnix = "unix"
	NetworkTCP  = "tcp"
)

// Endpoint is a parsed admin socket address.
type Endpoint struct {
	// Network is "unix" or "tcp".
	Network string

	// Address is a filesystem path for unix endpoints, host:port for tcp.
	Address string
}

// ParseEndpoint parses the forms the daemon's AdminListen setting accepts:
//
//	unix:///var/run/yggdrasil.sock
//	/var/run/yggdrasil.sock
//	tcp://127.0.0.1:9001
//	127.0.0.1:9001
func ParseEndpoint(s string) (Endpoint, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Endpoint{}, ErrInvalidEndpoint
	}

	if path, ok := strings.CutPrefix(s, "unix://"); ok {
		if path == "" {
			return Endpoint{}, ErrInvalidEndpoint
		}
		return Endpoint{Network: NetworkUnix, Address: path}, nil
	}

	if hostPort, ok := strings.CutPrefix(s, "tcp://"); ok {
		if !isValidHostPort(hostPort) {
			return Endpoint{}, ErrInvalidEndpoint
		}
		return Endpoint{Network: NetworkTCP, Address: hostPort}, nil
	}

	if looksLikePath(s) {
		return Endpoint{Network: NetworkUnix, Address: s}, nil
	}

	if !isValidHostPort(s) {
		return Endpoint{}, ErrInvalidEndpoint
	}
	return Endpoint{Network: NetworkTCP, Address: s}, nil
}

// String returns the endpoint in URL-like form.
func (e Endpoint) String() string {
	return e.Network + "://" + e.Address
}

// looksLikePath reports whether s names a socket file rather than host:port.
func looksLikePath(s string) bool {
	return strings.ContainsAny(s, `/\`) || strings.HasSuffix(s, ".sock")
}

// isValidHostPort checks for a non-empty host and a port in 1..65535.
func isValidHostPort(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil {
		return false
	}
	if host == "" {
		return false
	}

	portNum, err := strconv.Atoi(port)
	if err != nil {
		return false
	}
	return portNum >= 1 && portNum <= 65535
}
