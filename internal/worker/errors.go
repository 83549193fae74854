package worker

import (
	"errors"
	"net"
	"syscall"
)

// IsConnectivityError reports whether err looks like the class of failure
// that only an external supervisor restart can fix: connection refused,
// timed out, or host not found.
func IsConnectivityError(err error) bool {
	if err == nil {
		return false
	}

	var dnsErr *net.DNSError

	if errors.As(err, &dnsErr) {
		return true
	}

	var opErr *net.OpError

	if errors.As(err, &opErr) {
		return true
	}

	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ETIMEDOUT) ||
		errors.Is(err, syscall.EHOSTUNREACH)
}
