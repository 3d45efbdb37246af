package metadata

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

var (
	ErrNotFound               = errors.New("metadata not found")
	ErrTemporarilyUnavailable = errors.New("source temporarily unavailable")
	ErrNoScanner              = errors.New("no scanner registered")
	ErrRegistrySealed         = errors.New("scanner registry is sealed")
	ErrCapabilityMismatch     = errors.New("scanner does not implement capability")
)

// temporary is implemented by transport errors that know they are transient.
type temporary interface {
	Temporary() bool
}

// IsTemporary reports whether err signals a transient failure that may be
// retried within the retry budget.
func IsTemporary(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTemporarilyUnavailable) {
		return true
	}

	var tmp temporary
	if errors.As(err, &tmp) && tmp.Temporary() {
		return true
	}
	return IsNetworkError(err)
}

// IsNetworkError checks if an error is likely due to network unavailability.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	var dnsErr *net.DNSError
	if errors.As(err, &netErr) || errors.As(err, &dnsErr) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	networkIndicators := []string{
		"connection refused",
		"no such host",
		"timeout",
		"network is unreachable",
		"no route to host",
		"host is down",
		"dial tcp",
		"dial udp",
		"i/o timeout",
		"connection reset",
		"temporary failure in name resolution",
	}
	for _, indicator := range networkIndicators {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}

	return false
}

// TransportError wraps a failed HTTP round trip, marking network failures as
// temporarily unavailable.
func TransportError(source string, err error) error {
	if IsNetworkError(err) {
		return fmt.Errorf("%s: %w: %v", source, ErrTemporarilyUnavailable, err)
	}
	return fmt.Errorf("%s request failed: %w", source, err)
}

// HTTPStatusError maps an unexpected HTTP status to the error taxonomy:
// 404 is not found, 429 and 5xx are temporary, everything else is permanent.
func HTTPStatusError(source string, status int) error {
	switch {
	case status == http.StatusNotFound:
		return fmt.Errorf("%s: %w", source, ErrNotFound)
	case status == http.StatusTooManyRequests || status >= 500:
		return fmt.Errorf("%s: %w: status %d", source, ErrTemporarilyUnavailable, status)
	default:
		return fmt.Errorf("%s: unexpected status %d", source, status)
	}
}
