package lifecycle

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hubcli/hubcli/internal/api"
)

func TestIsAuthError_TypedUnauthorized(t *testing.T) {
	c := NewClassifier(nil)

	err := &api.Error{StatusCode: http.StatusUnauthorized, Message: "Bad credentials", Err: api.ErrUnauthorized}
	assert.True(t, c.IsAuthError(err))

	wrapped := fmt.Errorf("fetching profile: %w", err)
	assert.True(t, c.IsAuthError(wrapped))
}

func TestIsAuthError_TypedNonAuthStatusesIgnoreSubstrings(t *testing.T) {
	c := NewClassifier(nil)

	// Structured status wins even when the body text mentions "401".
	err := &api.Error{StatusCode: http.StatusNotFound, Message: "see section 401 of the docs", Err: api.ErrNotFound}
	assert.False(t, c.IsAuthError(err))

	assert.False(t, c.IsAuthError(&api.Error{StatusCode: http.StatusForbidden, Err: api.ErrForbidden}))
	assert.False(t, c.IsAuthError(&api.Error{StatusCode: http.StatusInternalServerError, Err: api.ErrServerError}))
}

func TestIsAuthError_SubstringHeuristic(t *testing.T) {
	c := NewClassifier(nil)

	for _, msg := range []string{
		"server returned 401",
		"request Unauthorized",
		"Authentication Failed for user",
		"invalid token supplied",
		"expired token",
		"the token has expired",
		"Bad Credentials",
	} {
		assert.True(t, c.IsAuthError(errors.New(msg)), "expected auth-shaped: %q", msg)
	}
}

func TestIsAuthError_UnrelatedErrors(t *testing.T) {
	c := NewClassifier(nil)

	assert.False(t, c.IsAuthError(nil))
	assert.False(t, c.IsAuthError(errors.New("dial tcp: connection refused")))
	assert.False(t, c.IsAuthError(errors.New("unexpected EOF")))
}

func TestIsAuthError_InjectedIndicators(t *testing.T) {
	c := NewClassifier([]string{"session invalidated"})

	assert.True(t, c.IsAuthError(errors.New("legacy API: Session Invalidated")))
	assert.False(t, c.IsAuthError(errors.New("401 unauthorized")), "default table replaced, not merged")
}
