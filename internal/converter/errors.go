package converter

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"unicode/utf8"
)

// Operations reported in ConversionError.Op.
const (
	OpSubmit   = "submit"
	OpDownload = "download"
)

var ErrMissingID = errors.New("response has no conversion_id")

// ConversionError is a failed call to the conversion service. StatusCode is zero
// when no response was received.
type ConversionError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *ConversionError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err == nil:
		return fmt.Sprintf("conversion %s: status %d: %s", e.Op, e.StatusCode, truncate(e.Body, 200))
	case e.StatusCode != 0:
		return fmt.Sprintf("conversion %s: status %d: %v", e.Op, e.StatusCode, e.Err)
	default:
		return fmt.Sprintf("conversion %s: %v", e.Op, e.Err)
	}
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

// Retryable reports whether repeating the call could succeed: transport failures,
// timeouts, 429 and 5xx responses.
func (e *ConversionError) Retryable() bool {
	if errors.Is(e.Err, ErrMissingID) || errors.Is(e.Err, context.Canceled) {
		return false
	}
	if e.Timeout() {
		return true
	}
	return e.StatusCode == 0 || e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Timeout reports whether the call ran out of time.
func (e *ConversionError) Timeout() bool {
	var netErr net.Error
	return errors.Is(e.Err, context.DeadlineExceeded) || (errors.As(e.Err, &netErr) && netErr.Timeout())
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
