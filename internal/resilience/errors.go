package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"

	"github.com/sells-group/cvrgpt/internal/apperr"
)

// IsTransient reports whether err is safe to retry: a retryable provider
// error (UPSTREAM_ERROR, RATE_LIMIT) or a transient network failure.
// NOT_FOUND and validation failures are never retried.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if ae := apperr.As(err); ae != nil {
		return ae.Retryable()
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	// String-based heuristics for wrapped errors from HTTP clients.
	msg := strings.ToLower(err.Error())
	transientPatterns := []string{
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
		"server closed idle connection",
		"transport connection broken",
	}
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

// IsTransientHTTPStatus reports whether the status code indicates a
// server-side condition that is safe to retry.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
