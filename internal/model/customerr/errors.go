package customerr

import "errors"

var (
	// ErrNotFound reports an absent rate record.
	ErrNotFound = errors.New("rates not found")

	// ErrInvalidNumber reports operator input that does not parse into the
	// expected rate numbers.
	ErrInvalidNumber = errors.New("invalid rate number")

	// ErrUnauthorizedSender reports a message from outside the allow-list.
	// Such messages are dropped without a reply.
	ErrUnauthorizedSender = errors.New("unauthorized sender")

	// ErrDuplicateDate reports a repeated submission for an already recorded
	// date under the reject policy.
	ErrDuplicateDate = errors.New("rates already recorded for date")
)

// StorageError wraps persistence failures so message handling can tell them
// apart from protocol errors and keep the session state for a retry.
type StorageError struct {
	Err error
}

func (e *StorageError) Error() string {
	return "storage: " + e.Err.Error()
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// TransportError wraps failures to deliver a chat message. It never corrupts
// session state; the repeat trigger covers the operator missing a prompt.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "transport: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
