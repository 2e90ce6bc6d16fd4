package lifecycle

import (
	"context"

	"github.com/google/uuid"
)

// AuthContext is the per-operation record kept while a guarded operation is
// in flight. Preserved state lets a caller stash data before a
// suspend-for-reauth and recover it after resume within the same operation.
type AuthContext struct {
	// ID uniquely identifies the guarded operation. Contexts are looked up
	// by ID, not by stack position, so interleaved operations cannot read
	// each other's preserved state.
	ID          string
	Operation   string
	Endpoint    string
	UserMessage string
	RetryCount  int

	preserved map[string]any
}

// opIDKey carries the guarded operation's context ID on a context.Context.
type opIDKey struct{}

// withOperationID tags ctx with the guarded operation's ID.
func withOperationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, opIDKey{}, id)
}

// operationID extracts the guarded operation's ID from ctx.
func operationID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(opIDKey{}).(string)
	return id, ok
}

// newAuthContext builds a fresh AuthContext for one guarded operation.
func newAuthContext(operation, endpoint, userMessage string) *AuthContext {
	if userMessage == "" {
		userMessage = "Performing " + operation
	}

	return &AuthContext{
		ID:          uuid.NewString(),
		Operation:   operation,
		Endpoint:    endpoint,
		UserMessage: userMessage,
		preserved:   make(map[string]any),
	}
}
