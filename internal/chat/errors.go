package chat

import (
	"errors"
	"fmt"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrEmptyMessage         = errors.New("empty message")

	// ErrStoreUnavailable wraps infrastructure failures (database down, bad
	// connection). Callers may retry with backoff; the other errors are caller
	// errors and must not be retried.
	ErrStoreUnavailable = errors.New("store unavailable")
)

func storeErr(err error) error {
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}
