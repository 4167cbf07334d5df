package resilience

import (
	"context"
	"fmt"
	"time"
)

// TimeoutError tags a timed-out operation with its name and a context map,
// per spec §4.13: "raises a TimeoutError tagged with the operation name and
// a context map".
type TimeoutError struct {
	Operation string
	Duration  time.Duration
	Context   map[string]any
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("operation %q timed out after %s", e.Operation, e.Duration)
}

// WithTimeout runs fn with a named, bounded deadline. If fn does not return
// before the deadline, WithTimeout returns a *TimeoutError without waiting
// for fn to finish; fn is expected to honor ctx cancellation.
func WithTimeout(ctx context.Context, operation string, d time.Duration, fields map[string]any, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- fn(ctx) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return &TimeoutError{Operation: operation, Duration: d, Context: fields}
	}
}
