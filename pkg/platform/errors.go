package platform

import (
	"context"
	"errors"
	"net"
	"strings"
)

// ErrSessionRejected reports that the platform refused a restored session
// artifact. Callers delete the artifact and fall back to credential login.
var ErrSessionRejected = errors.New("platform rejected stored session")

// IsTransient classifies an error as transient-network: worth retrying with
// backoff during login, and silently deferred to the next cycle everywhere
// else. Anything not matched here (bad credentials, rejected session, parse
// errors) is treated as non-retryable.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"timeout",
		"timed out",
		"connection reset",
		"connection refused",
		"no such host",
		"unexpected eof",
		"temporary failure",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
