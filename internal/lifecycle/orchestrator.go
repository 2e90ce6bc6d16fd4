package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/hubcli/hubcli/internal/credstore"
	"github.com/hubcli/hubcli/internal/notify"
)

// CredentialStore is the durable credential collaborator. Defined at the
// consumer; credstore.Store is the production implementation.
type CredentialStore interface {
	CurrentCredential() (string, error)
	ReadMetadata() (*credstore.Metadata, error)
	Clear() error
}

// Reauthenticator drives the external interactive authorization flow.
// Run blocks until the flow completes and the new credential is stored, or
// returns an error on failure or timeout.
type Reauthenticator interface {
	Run(ctx context.Context) error
}

// Config tunes the orchestrator. The zero value is not usable; start from
// DefaultConfig.
type Config struct {
	// WarningThreshold is how close to expiry a credential may get before
	// proactive refresh kicks in.
	WarningThreshold time.Duration
	// MaxRetryAttempts bounds the rounds of one re-authentication protocol run.
	MaxRetryAttempts int
	// RetryBaseDelay is the backoff before the second round; it doubles
	// every round after that.
	RetryBaseDelay time.Duration
	// AutoRefresh enables best-effort refresh when a credential is
	// expiring soon.
	AutoRefresh bool
	// AuthErrorIndicators overrides the substring heuristic for opaque
	// errors. nil selects DefaultAuthErrorIndicators.
	AuthErrorIndicators []string
}

// DefaultConfig returns the standard orchestrator tuning.
func DefaultConfig() Config {
	return Config{
		WarningThreshold: DefaultWarningThreshold,
		MaxRetryAttempts: 3,
		RetryBaseDelay:   time.Second,
		AutoRefresh:      true,
	}
}

// Orchestrator coordinates credential lifecycle for all credentialed
// operations: it classifies state before an operation runs, re-authenticates
// with bounded backoff when the credential is expired or rejected, and
// announces every transition through the notification hub.
//
// The orchestrator exclusively owns the set of in-flight operation contexts.
type Orchestrator struct {
	store      CredentialStore
	reauth     Reauthenticator
	monitor    *Monitor
	hub        *notify.Hub
	cfg        Config
	classifier Classifier
	logger     *slog.Logger

	mu       sync.Mutex
	contexts map[string]*AuthContext
	order    []string // operation IDs, oldest first; last is "current"

	// refreshGroup collapses concurrent re-authentication runs so parallel
	// guarded operations share one interactive flow.
	refreshGroup singleflight.Group

	// sleepFunc waits between re-authentication rounds. Defaults to
	// timeSleep; tests override it to measure delays without waiting.
	sleepFunc func(ctx context.Context, d time.Duration) error
}

// New creates an Orchestrator.
func New(store CredentialStore, reauth Reauthenticator, hub *notify.Hub, cfg Config, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.MaxRetryAttempts <= 0 {
		cfg.MaxRetryAttempts = DefaultConfig().MaxRetryAttempts
	}

	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = DefaultConfig().RetryBaseDelay
	}

	return &Orchestrator{
		store:      store,
		reauth:     reauth,
		monitor:    NewMonitor(cfg.WarningThreshold),
		hub:        hub,
		cfg:        cfg,
		classifier: NewClassifier(cfg.AuthErrorIndicators),
		logger:     logger,
		contexts:   make(map[string]*AuthContext),
		sleepFunc:  timeSleep,
	}
}

// CheckState classifies the stored credential: Invalid when no credential is
// stored, Unknown when the store cannot be read.
func (o *Orchestrator) CheckState() TokenState {
	cred, err := o.store.CurrentCredential()
	if err != nil {
		o.logger.Error("reading credential", slog.String("error", err.Error()))
		return TokenStateUnknown
	}

	if cred == "" {
		return TokenStateInvalid
	}

	meta, err := o.store.ReadMetadata()
	if err != nil {
		o.logger.Error("reading credential metadata", slog.String("error", err.Error()))
		return TokenStateUnknown
	}

	return o.monitor.Classify(meta)
}

// TimeUntilExpiry returns the remaining credential lifetime, clamped at
// zero. ok is false when the credential has no expiry metadata or cannot
// be read.
func (o *Orchestrator) TimeUntilExpiry() (time.Duration, bool) {
	meta, err := o.store.ReadMetadata()
	if err != nil {
		return 0, false
	}

	return o.monitor.TimeUntilExpiry(meta)
}

// GuardOption customizes one guarded operation.
type GuardOption func(*AuthContext)

// WithEndpoint records the target endpoint on the operation's context.
func WithEndpoint(endpoint string) GuardOption {
	return func(a *AuthContext) { a.Endpoint = endpoint }
}

// WithUserMessage overrides the user-facing description of the operation.
func WithUserMessage(msg string) GuardOption {
	return func(a *AuthContext) { a.UserMessage = msg }
}

// Guard runs body inside the credential boundary every credentialed caller
// uses:
//
//   - Expired credential: the re-authentication protocol runs first; if it
//     fails the body never runs and ErrCredentialExpired is returned.
//   - Credential expiring soon: when auto-refresh is enabled, a best-effort
//     refresh starts in the background without gating the body.
//   - No credential: ErrCredentialInvalid, body never runs.
//   - Body error that looks like a rejected credential: the protocol runs
//     once; on success a RetryableAuthError tells the caller to re-invoke
//     Guard, on failure a ReauthFailedError is terminal. Other body errors
//     propagate unchanged.
//
// The operation's context is registered on entry and released on every exit
// path, including panic and cancellation.
func (o *Orchestrator) Guard(ctx context.Context, operation string, body func(context.Context) error, opts ...GuardOption) error {
	actx := newAuthContext(operation, "", "")
	for _, opt := range opts {
		opt(actx)
	}

	o.pushContext(actx)
	defer o.popContext(actx.ID)

	ctx = withOperationID(ctx, actx.ID)

	switch state := o.CheckState(); state {
	case TokenStateExpired:
		o.hub.Notify(
			fmt.Sprintf("Token expired before %s, re-authenticating", operation),
			state.String(),
			notify.WithSeverity(notify.SeverityWarning),
			notify.WithContext(map[string]string{"operation": operation}),
		)

		if !o.reauthenticate(ctx, actx) {
			return fmt.Errorf("cannot perform %s: %w", operation, ErrCredentialExpired)
		}

	case TokenStateExpiringSoon:
		o.hub.Notify(
			"Token expiring soon",
			state.String(),
			notify.WithSeverity(notify.SeverityWarning),
			notify.WithContext(map[string]string{"operation": operation}),
		)

		if o.cfg.AutoRefresh {
			// Best-effort: the refresh races the body on purpose. The body
			// holds a still-valid credential; the next operation picks up
			// the refreshed one.
			go o.ProactiveRefreshIfNeeded(context.WithoutCancel(ctx))
		}

	case TokenStateInvalid:
		return fmt.Errorf("cannot perform %s: %w", operation, ErrCredentialInvalid)
	}

	err := body(ctx)
	if err == nil {
		return nil
	}

	if !o.classifier.IsAuthError(err) {
		return err
	}

	o.logger.Info("credential rejected mid-operation, attempting recovery",
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)

	o.mu.Lock()
	actx.RetryCount++
	o.mu.Unlock()

	o.hub.Notify(
		fmt.Sprintf("Token rejected during %s, re-authenticating", operation),
		TokenStateExpired.String(),
		notify.WithSeverity(notify.SeverityWarning),
		notify.WithContext(map[string]string{"operation": operation}),
	)

	if o.reauthenticate(ctx, actx) {
		return &RetryableAuthError{Op: operation, Err: err}
	}

	return &ReauthFailedError{Op: operation, Attempts: o.cfg.MaxRetryAttempts, Err: err}
}

// reauthFlightKey is the single key all re-authentication paths share in the
// singleflight group. One key means at most one interactive flow at a time.
const reauthFlightKey = "reauthenticate"

// reauthenticate routes the protocol through the singleflight group: the
// first caller drives the interactive flow, concurrent callers block until
// it finishes and receive the same result. Without this, a proactive refresh
// and a mid-operation recovery could clear each other's freshly saved
// credential and prompt the user twice.
func (o *Orchestrator) reauthenticate(ctx context.Context, actx *AuthContext) bool {
	v, _, _ := o.refreshGroup.Do(reauthFlightKey, func() (any, error) {
		return o.runReauthProtocol(ctx, actx), nil
	})

	ok, _ := v.(bool)

	return ok
}

// runReauthProtocol runs the re-authentication protocol: up to
// MaxRetryAttempts rounds of clear-credential, interactive flow, verify, with
// exponential backoff between rounds and none after the final one. Every
// round start, the first success, and exhaustion are announced through the
// hub. Callers must hold the singleflight flight via reauthenticate.
func (o *Orchestrator) runReauthProtocol(ctx context.Context, actx *AuthContext) bool {
	attrs := map[string]string{"operation": actx.Operation}

	for attempt := range o.cfg.MaxRetryAttempts {
		o.hub.Notify(
			fmt.Sprintf("Re-authentication attempt %d/%d", attempt+1, o.cfg.MaxRetryAttempts),
			TokenStateExpired.String(),
			notify.WithContext(attrs),
		)

		if err := o.runReauthRound(ctx); err != nil {
			o.logger.Warn("re-authentication round failed",
				slog.Int("attempt", attempt+1),
				slog.String("error", err.Error()),
			)
		} else if o.credentialUsable() {
			o.hub.Notify(
				fmt.Sprintf("Re-authentication succeeded for %s", actx.Operation),
				TokenStateValid.String(),
				notify.WithSeverity(notify.SeveritySuccess),
				notify.WithContext(attrs),
			)

			return true
		}

		if attempt < o.cfg.MaxRetryAttempts-1 {
			delay := time.Duration(float64(o.cfg.RetryBaseDelay) * math.Pow(2, float64(attempt)))
			o.logger.Debug("backing off before next re-authentication round",
				slog.Duration("delay", delay),
			)

			if err := o.sleepFunc(ctx, delay); err != nil {
				// Canceled mid-backoff: stop retrying.
				break
			}
		}
	}

	o.hub.Notify(
		fmt.Sprintf("Re-authentication failed after %d attempts", o.cfg.MaxRetryAttempts),
		TokenStateInvalid.String(),
		notify.WithSeverity(notify.SeverityError),
		notify.WithContext(attrs),
	)

	return false
}

// runReauthRound clears the stale credential and drives one interactive
// flow. The flow suspends this operation only; others proceed.
func (o *Orchestrator) runReauthRound(ctx context.Context) error {
	if err := o.store.Clear(); err != nil {
		return fmt.Errorf("clearing stale credential: %w", err)
	}

	return o.reauth.Run(ctx)
}

// credentialUsable verifies a credential is present and classifies as valid.
func (o *Orchestrator) credentialUsable() bool {
	cred, err := o.store.CurrentCredential()
	if err != nil || cred == "" {
		return false
	}

	return o.CheckState() == TokenStateValid
}

// ProactiveRefreshIfNeeded runs the re-authentication protocol when the
// credential is expiring soon and auto-refresh is enabled. Concurrent calls
// share a single protocol run. Reports whether the credential is valid
// afterwards.
func (o *Orchestrator) ProactiveRefreshIfNeeded(ctx context.Context) bool {
	if o.CheckState() == TokenStateExpiringSoon && o.cfg.AutoRefresh {
		actx := newAuthContext("proactive_refresh", "", "Refreshing credential before expiry")
		o.pushContext(actx)
		defer o.popContext(actx.ID)

		o.reauthenticate(withOperationID(ctx, actx.ID), actx)
	}

	return o.CheckState() == TokenStateValid
}

// Preserve stashes a value on the calling guarded operation's context so it
// survives a suspend-for-reauth. A no-op outside a guarded operation.
func (o *Orchestrator) Preserve(ctx context.Context, key string, value any) {
	id, ok := operationID(ctx)
	if !ok {
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if actx, ok := o.contexts[id]; ok {
		actx.preserved[key] = value
	}
}

// Retrieve returns a value previously stashed with Preserve on the calling
// guarded operation's context, or nil.
func (o *Orchestrator) Retrieve(ctx context.Context, key string) any {
	id, ok := operationID(ctx)
	if !ok {
		return nil
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if actx, ok := o.contexts[id]; ok {
		return actx.preserved[key]
	}

	return nil
}

// CurrentContext returns a snapshot of the most recently entered guarded
// operation, for diagnostics. ok is false when no operation is in flight.
func (o *Orchestrator) CurrentContext() (AuthContext, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if len(o.order) == 0 {
		return AuthContext{}, false
	}

	actx := o.contexts[o.order[len(o.order)-1]]
	snapshot := *actx
	snapshot.preserved = nil

	return snapshot, true
}

// pushContext registers an operation context.
func (o *Orchestrator) pushContext(actx *AuthContext) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.contexts[actx.ID] = actx
	o.order = append(o.order, actx.ID)
}

// popContext releases an operation context. Guaranteed to run on every
// guard exit path.
func (o *Orchestrator) popContext(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	delete(o.contexts, id)

	for i := len(o.order) - 1; i >= 0; i-- {
		if o.order[i] == id {
			o.order = append(o.order[:i], o.order[i+1:]...)
			break
		}
	}
}

// timeSleep waits for the given duration or until the context is canceled.
// It is the default sleepFunc for Orchestrator.
func timeSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
