// Package lifecycle implements the credential lifecycle core: classifying
// token expiry, guarding credentialed operations, and re-authenticating with
// bounded backoff when a credential is rejected mid-operation.
package lifecycle

import (
	"time"

	"github.com/hubcli/hubcli/internal/credstore"
)

// TokenState is the derived lifecycle state of the stored credential.
// It is computed on demand and never stored.
type TokenState int

const (
	TokenStateUnknown TokenState = iota
	TokenStateValid
	TokenStateExpiringSoon
	TokenStateExpired
	TokenStateInvalid
)

func (s TokenState) String() string {
	switch s {
	case TokenStateValid:
		return "valid"
	case TokenStateExpiringSoon:
		return "expiring_soon"
	case TokenStateExpired:
		return "expired"
	case TokenStateInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// DefaultWarningThreshold is how close to expiry a credential may get before
// it is classified as expiring soon.
const DefaultWarningThreshold = 5 * time.Minute

// Monitor classifies credential metadata into a TokenState. It is pure:
// no I/O, no side effects, no blocking.
type Monitor struct {
	threshold time.Duration

	// now is the clock used for classification; tests override it.
	now func() time.Time
}

// NewMonitor creates a Monitor with the given warning threshold.
// A non-positive threshold falls back to DefaultWarningThreshold.
func NewMonitor(threshold time.Duration) *Monitor {
	if threshold <= 0 {
		threshold = DefaultWarningThreshold
	}

	return &Monitor{threshold: threshold, now: time.Now}
}

// Classify derives the lifecycle state from credential metadata.
// nil metadata means no credential is stored. A zero lifetime means the
// credential never expires. The expiry instant itself counts as expired.
func (m *Monitor) Classify(meta *credstore.Metadata) TokenState {
	if meta == nil {
		return TokenStateInvalid
	}

	if meta.Lifetime == 0 {
		return TokenStateValid
	}

	remaining := meta.IssuedAt.Add(meta.Lifetime).Sub(m.now())
	switch {
	case remaining <= 0:
		return TokenStateExpired
	case remaining <= m.threshold:
		return TokenStateExpiringSoon
	default:
		return TokenStateValid
	}
}

// TimeUntilExpiry returns the remaining credential lifetime, clamped at
// zero. ok is false when the credential has no expiry metadata.
func (m *Monitor) TimeUntilExpiry(meta *credstore.Metadata) (remaining time.Duration, ok bool) {
	if meta == nil || meta.Lifetime == 0 {
		return 0, false
	}

	remaining = meta.IssuedAt.Add(meta.Lifetime).Sub(m.now())
	if remaining < 0 {
		remaining = 0
	}

	return remaining, true
}
