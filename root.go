package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/hubcli/hubcli/internal/api"
	"github.com/hubcli/hubcli/internal/authflow"
	"github.com/hubcli/hubcli/internal/cache"
	"github.com/hubcli/hubcli/internal/config"
	"github.com/hubcli/hubcli/internal/credstore"
	"github.com/hubcli/hubcli/internal/lifecycle"
	"github.com/hubcli/hubcli/internal/notify"
	"github.com/hubcli/hubcli/internal/recovery"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagJSON       bool
	flagVerbose    bool
	flagQuiet      bool
	flagNoCache    bool
)

// httpClientTimeout is the default timeout for HTTP requests.
// Prevents hung connections from blocking CLI commands indefinitely.
const httpClientTimeout = 30 * time.Second

// defaultHTTPClient returns an HTTP client with a sensible timeout.
func defaultHTTPClient() *http.Client {
	return &http.Client{Timeout: httpClientTimeout}
}

// newRootCmd builds and returns the fully-assembled root command with all
// subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "hubcli",
		Short:   "GitHub CLI client",
		Long:    "A terminal client for the GitHub REST API with resilient authentication.",
		Version: version,
		// Silence Cobra's default error/usage printing — we handle it ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")
	cmd.PersistentFlags().BoolVar(&flagNoCache, "no-cache", false, "bypass the local response cache")

	// Register subcommands.
	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newLogoutCmd())
	cmd.AddCommand(newWhoamiCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newRepoCmd())
	cmd.AddCommand(newIssueCmd())

	return cmd
}

// app bundles the long-lived collaborators commands share: config, the
// credential store, the notification hub, the lifecycle orchestrator, the
// recovery engine, and the API client.
type app struct {
	cfg    config.Config
	logger *slog.Logger
	store  *credstore.Store
	flow   *authflow.Flow
	hub    *notify.Hub
	orch   *lifecycle.Orchestrator
	engine *recovery.Engine
	client *api.Client
	cache  *cache.Store // nil when caching is disabled
}

// buildApp wires the process-level instances. Nothing here is a package
// global — every collaborator is constructed once and injected.
func buildApp(ctx context.Context) (*app, error) {
	cfgPath := flagConfigPath
	if cfgPath == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return nil, err
		}

		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	logger := buildLogger(cfg)

	credPath, err := credstore.DefaultPath()
	if err != nil {
		return nil, err
	}

	store := credstore.NewStore(credPath, logger)
	hub := notify.NewHub(logger)
	flow := authflow.New(cfg.Auth.ClientID, store, displayDeviceAuth, logger)

	orch := lifecycle.New(store, flow, hub, lifecycle.Config{
		WarningThreshold: time.Duration(cfg.Auth.WarningThresholdSeconds) * time.Second,
		MaxRetryAttempts: cfg.Auth.MaxRetryAttempts,
		RetryBaseDelay:   time.Duration(cfg.Auth.RetryBaseDelayMS) * time.Millisecond,
		AutoRefresh:      cfg.Auth.AutoRefresh,
	}, logger)

	engine := recovery.NewEngine(newGuideDisplay(os.Stderr), logger)
	client := api.NewClient(api.DefaultBaseURL, defaultHTTPClient(), storeTokenSource{store: store}, logger)

	a := &app{
		cfg:    cfg,
		logger: logger,
		store:  store,
		flow:   flow,
		hub:    hub,
		orch:   orch,
		engine: engine,
		client: client,
	}

	if cfg.Cache.Enabled && !flagNoCache {
		cachePath := cfg.Cache.Path
		if cachePath == "" {
			cachePath, err = config.DefaultCachePath()
			if err != nil {
				return nil, err
			}
		}

		c, err := cache.Open(ctx, cachePath, time.Duration(cfg.Cache.TTLSeconds)*time.Second, logger)
		if err != nil {
			// A broken cache never blocks a command.
			logger.Warn("opening response cache failed, continuing without it",
				slog.String("error", err.Error()),
			)
		} else {
			a.cache = c
		}
	}

	return a, nil
}

// close releases the app's resources.
func (a *app) close() {
	if a.cache != nil {
		_ = a.cache.Close()
	}
}

// storeTokenSource adapts the credential store to api.TokenSource.
type storeTokenSource struct {
	store *credstore.Store
}

func (s storeTokenSource) Token() (string, error) {
	cred, err := s.store.CurrentCredential()
	if err != nil {
		return "", err
	}

	if cred == "" {
		return "", credstore.ErrNotLoggedIn
	}

	return cred, nil
}

// displayDeviceAuth shows the device code prompt. Always written to stderr —
// never suppressed by --quiet, the user cannot authorize without it.
func displayDeviceAuth(da authflow.DeviceAuth) {
	fmt.Fprintf(os.Stderr, "To sign in, visit: %s\n", da.VerificationURI)
	fmt.Fprintf(os.Stderr, "Enter code: %s\n", da.UserCode)
}

// runGuarded executes body under the orchestrator's credential boundary.
// When re-authentication succeeds mid-operation the body is retried once;
// terminal authentication failures surface a troubleshooting guide instead
// of a raw error dump.
func (a *app) runGuarded(ctx context.Context, operation, endpoint string, body func(context.Context) error) error {
	err := a.orch.Guard(ctx, operation, body, lifecycle.WithEndpoint(endpoint))
	if lifecycle.IsRetryable(err) {
		a.logger.Info("retrying after successful re-authentication",
			slog.String("operation", operation),
		)

		err = a.orch.Guard(ctx, operation, body, lifecycle.WithEndpoint(endpoint))
	}

	if err == nil {
		return nil
	}

	if errors.Is(err, lifecycle.ErrCredentialInvalid) {
		return fmt.Errorf("not logged in — run 'hubcli login' first")
	}

	var terminal *lifecycle.ReauthFailedError
	if errors.As(err, &terminal) || errors.Is(err, lifecycle.ErrCredentialExpired) {
		a.surfaceRecovery(ctx, err)
		return fmt.Errorf("authentication failed for %s", operation)
	}

	return err
}

// surfaceRecovery runs the recovery workflow for a hard authentication
// failure: a contextual message plus the troubleshooting guide.
func (a *app) surfaceRecovery(ctx context.Context, cause error) {
	rctx := recovery.Context{
		Err:          cause,
		Category:     "token_expired",
		FailurePoint: "token_validation",
		Environment: map[string]string{
			"os":      osName(),
			"version": version,
		},
		AvailableMethods: []recovery.Method{
			recovery.MethodManualURL,
			recovery.MethodPersonalAccessToken,
		},
	}

	fmt.Fprintln(os.Stderr, a.engine.ContextualMessage(rctx))
	a.logger.Error("authentication failure diagnostics", slog.Any("detail", a.engine.DetailedLog(rctx)))

	a.engine.StartRecovery(ctx, rctx)
}

// buildLogger creates an slog.Logger configured by the resolved config and
// CLI flags. Config-file log level provides the baseline; --verbose and
// --quiet override it because CLI flags always win.
func buildLogger(cfg config.Config) *slog.Logger {
	level := slog.LevelInfo

	switch cfg.Logging.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	if flagVerbose {
		level = slog.LevelDebug
	}

	if flagQuiet {
		level = slog.LevelError
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// statusf prints informational output unless --quiet is set.
func statusf(format string, args ...any) {
	if flagQuiet {
		return
	}

	fmt.Printf(format, args...)
}

// exitOnError prints a user-friendly error message to stderr and exits.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
