// pkg/queue/errors.go
package queue

import (
	"errors"
	"fmt"
)

var (
	// ErrNotPersistentQueue is returned when opening a non-empty directory
	// that was never initialized by this package.
	ErrNotPersistentQueue = errors.New("queue: directory is not a persistent queue")

	// ErrClosed is returned by any method with an error result, other
	// than Close itself, attempted after Close.
	ErrClosed = errors.New("queue: already closed")

	// ErrCanceled is returned by a blocking wait that was interrupted via
	// context cancellation before it could make progress.
	ErrCanceled = errors.New("queue: wait canceled")
)

// checkNotNull fails an operation synchronously, before any state change,
// when a required argument is nil.
func checkNotNull(v interface{}, name string) error {
	if v == nil {
		return fmt.Errorf("queue: %s must not be nil", name)
	}
	return nil
}

// checkArgument validates a boolean precondition, returning a formatted
// error when it does not hold.
func checkArgument(ok bool, format string, args ...interface{}) error {
	if !ok {
		return fmt.Errorf("queue: "+format, args...)
	}
	return nil
}
