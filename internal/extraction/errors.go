package extraction

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// RateLimitError indicates the extraction service rejected a call with a
// rate-limit or quota signal.
type RateLimitError struct {
	Err        error
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("extraction service rate limited (retry after %s): %v", e.RetryAfter, e.Err)
}

func (e *RateLimitError) Unwrap() error {
	return e.Err
}

// NewRateLimitError creates a RateLimitError. If retryAfterSecs is 0, defaults to 60s.
func NewRateLimitError(err error, retryAfterSecs int) *RateLimitError {
	if retryAfterSecs <= 0 {
		retryAfterSecs = 60
	}
	return &RateLimitError{
		Err:        err,
		RetryAfter: time.Duration(retryAfterSecs) * time.Second,
	}
}

// ParseRetryAfterHeader parses a Retry-After header value into seconds.
// Returns 0 if the value is empty or not a valid integer.
func ParseRetryAfterHeader(val string) int {
	if val == "" {
		return 0
	}
	secs, err := strconv.Atoi(val)
	if err != nil {
		return 0
	}
	return secs
}

// RecordError is the error the service reported for one input file in the
// batch output, as opposed to a malformed result line.
type RecordError struct {
	Message string
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("extraction service error: %s", e.Message)
}

// IsTransient reports whether an error is worth retrying: an explicit
// RateLimitError, or an error message carrying one of the configured
// rate-limit markers (the service does not always answer 429 for quota
// exhaustion).
func IsTransient(err error, markers []string) bool {
	if err == nil {
		return false
	}
	var rlErr *RateLimitError
	if errors.As(err, &rlErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, m := range markers {
		if m != "" && strings.Contains(msg, strings.ToLower(m)) {
			return true
		}
	}
	return false
}
