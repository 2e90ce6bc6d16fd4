package lifecycle

import (
	"errors"
	"fmt"
)

// Sentinel errors raised at the guard boundary.
var (
	// ErrCredentialInvalid means no usable credential is stored; a fresh
	// login is required before the operation can run.
	ErrCredentialInvalid = errors.New("lifecycle: no valid credential (login required)")

	// ErrCredentialExpired means the stored credential expired and the
	// re-authentication protocol could not replace it.
	ErrCredentialExpired = errors.New("lifecycle: credential expired")
)

// RetryableAuthError signals that the guarded body failed with an
// authentication-shaped error, re-authentication succeeded, and the caller
// may retry the operation. It carries the original error as context.
type RetryableAuthError struct {
	Op  string
	Err error
}

func (e *RetryableAuthError) Error() string {
	return fmt.Sprintf("lifecycle: re-authenticated during %s, retry the operation: %v", e.Op, e.Err)
}

func (e *RetryableAuthError) Unwrap() error { return e.Err }

// IsRetryable reports whether err signals that re-authentication succeeded
// and the guarded operation should be retried.
func IsRetryable(err error) bool {
	var r *RetryableAuthError
	return errors.As(err, &r)
}

// ReauthFailedError signals that the guarded body failed with an
// authentication-shaped error and the re-authentication retry budget was
// exhausted. Terminal: the caller should surface a troubleshooting guide.
type ReauthFailedError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *ReauthFailedError) Error() string {
	return fmt.Sprintf("lifecycle: re-authentication failed after %d attempts during %s: %v", e.Attempts, e.Op, e.Err)
}

func (e *ReauthFailedError) Unwrap() error { return e.Err }
