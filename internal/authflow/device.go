// Package authflow implements the interactive device-code authorization
// flow against GitHub. It is the re-authentication collaborator the
// lifecycle orchestrator drives when a credential must be replaced.
package authflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"github.com/hubcli/hubcli/internal/credstore"
)

// DefaultClientID is the OAuth app registered for hubcli (public client,
// device flow enabled).
const DefaultClientID = "Iv1.9f8c2b41d6a0e537"

var defaultScopes = []string{"repo", "read:org", "gist"}

// DeviceAuth holds the device code response fields the CLI displays to the
// user.
type DeviceAuth struct {
	UserCode        string
	VerificationURI string
}

// Flow performs the device code flow:
//  1. Requests a device code from GitHub
//  2. Calls display so the CLI can show the user code and verification URL
//  3. Polls until the user authorizes (blocking, respects ctx cancellation)
//  4. Saves the token and its issuance metadata through the credential store
//
// Flow satisfies the orchestrator's Reauthenticator interface.
type Flow struct {
	cfg     *oauth2.Config
	store   *credstore.Store
	display func(DeviceAuth)
	logger  *slog.Logger

	// now stamps issuance metadata; tests override it.
	now func() time.Time
}

// New creates a device-code Flow. An empty clientID selects DefaultClientID.
func New(clientID string, store *credstore.Store, display func(DeviceAuth), logger *slog.Logger) *Flow {
	if clientID == "" {
		clientID = DefaultClientID
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Flow{
		cfg: &oauth2.Config{
			ClientID: clientID,
			Scopes:   defaultScopes,
			Endpoint: endpoints.GitHub,
		},
		store:   store,
		display: display,
		logger:  logger,
		now:     time.Now,
	}
}

// Run executes the device code flow and persists the resulting credential.
// It suspends until the user completes authorization in a browser, the flow
// times out, or ctx is canceled.
func (f *Flow) Run(ctx context.Context) error {
	f.logger.Info("starting device code auth flow")

	da, err := f.cfg.DeviceAuth(ctx)
	if err != nil {
		return fmt.Errorf("authflow: device code request failed: %w", err)
	}

	f.logger.Info("device code received, waiting for user authorization")

	f.display(DeviceAuth{
		UserCode:        da.UserCode,
		VerificationURI: da.VerificationURI,
	})

	tok, err := f.cfg.DeviceAccessToken(ctx, da)
	if err != nil {
		return fmt.Errorf("authflow: device code authorization failed: %w", err)
	}

	issued := f.now()

	// Fine-grained tokens carry an expiry; classic tokens do not, which the
	// store records as a zero lifetime (non-expiring).
	var lifetime time.Duration
	if !tok.Expiry.IsZero() {
		lifetime = tok.Expiry.Sub(issued).Round(time.Second)
	}

	if err := f.store.Save(tok, issued, lifetime); err != nil {
		return fmt.Errorf("authflow: saving credential: %w", err)
	}

	f.logger.Info("user authorized, credential saved",
		slog.Duration("lifetime", lifetime),
	)

	return nil
}
