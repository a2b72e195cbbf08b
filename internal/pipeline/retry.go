package pipeline

import (
	"errors"
	"math/rand/v2"
	"time"

	"github.com/domafordarwin/readingpro-docgen/internal/converter"
)

const maxBackoff = 30 * time.Second

// IsRetryable checks if a conversion error is worth retrying.
func IsRetryable(err error) bool {
	var convErr *converter.ConversionError
	return errors.As(err, &convErr) && convErr.Retryable()
}

// Backoff returns a duration for attempt n (0-indexed) with up to 50% jitter.
func Backoff(attempt int) time.Duration {
	base := maxBackoff
	if attempt < 5 {
		base = min(time.Duration(1<<uint(attempt))*time.Second, maxBackoff)
	}
	jitter := time.Duration(rand.Int64N(int64(base) / 2))
	return base + jitter
}
