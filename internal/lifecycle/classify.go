package lifecycle

import (
	"errors"
	"net/http"
	"strings"

	"github.com/hubcli/hubcli/internal/api"
)

// DefaultAuthErrorIndicators are substrings that mark an error as
// authentication-shaped when it carries no structured status. The match is
// case-insensitive. This is a heuristic for opaque errors only; typed API
// errors are classified by status code.
var DefaultAuthErrorIndicators = []string{
	"401",
	"unauthorized",
	"authentication failed",
	"invalid token",
	"expired token",
	"token has expired",
	"bad credentials",
}

// Classifier decides whether an error from a guarded body indicates a
// rejected credential. The indicator table is injectable so untyped/legacy
// error paths can be tuned without code changes.
type Classifier struct {
	indicators []string
}

// NewClassifier creates a Classifier. nil indicators selects
// DefaultAuthErrorIndicators.
func NewClassifier(indicators []string) Classifier {
	if indicators == nil {
		indicators = DefaultAuthErrorIndicators
	}

	lowered := make([]string, len(indicators))
	for i, s := range indicators {
		lowered[i] = strings.ToLower(s)
	}

	return Classifier{indicators: lowered}
}

// IsAuthError reports whether err looks like an authentication failure.
// A typed *api.Error is classified by status code alone — 401 is
// authentication-shaped, everything else is not — and the substring
// heuristic applies only to errors without structured status.
func (c Classifier) IsAuthError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusUnauthorized
	}

	msg := strings.ToLower(err.Error())
	for _, indicator := range c.indicators {
		if strings.Contains(msg, indicator) {
			return true
		}
	}

	return false
}
