package worker

import (
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"
)

func TestIsConnectivityError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"refused", syscall.ECONNREFUSED, true},
		{"wrapped refused", fmt.Errorf("dequeue: %w", syscall.ECONNREFUSED), true},
		{"timed out", syscall.ETIMEDOUT, true},
		{"dns", &net.DNSError{Err: "no such host", Name: "redis.internal"}, true},
		{"op error", &net.OpError{Op: "dial", Err: errors.New("refused")}, true},
		{"plain error", errors.New("registration 7 not found"), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsConnectivityError(tc.err); got != tc.want {
				t.Fatalf("IsConnectivityError(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
