package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/hubcli/hubcli/internal/lifecycle"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show authentication status",
		Long:  "Report the stored credential's state, remaining lifetime, and recent authentication activity.",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			app, err := buildApp(cmd.Context())
			if err != nil {
				exitOnError(err)
			}
			defer app.close()

			state := app.orch.CheckState()
			remaining, hasExpiry := app.orch.TimeUntilExpiry()

			if flagJSON {
				out := struct {
					State             string  `json:"state"`
					ExpiresIn         float64 `json:"expires_in_seconds,omitempty"`
					RecoveryAttempts  int     `json:"recovery_attempts"`
					RecoverySucceeded float64 `json:"recovery_success_rate,omitempty"`
				}{
					State:            state.String(),
					RecoveryAttempts: len(app.engine.History()),
				}

				if hasExpiry {
					out.ExpiresIn = remaining.Seconds()
				}

				if rate, ok := app.engine.SuccessRate(); ok {
					out.RecoverySucceeded = rate
				}

				if err := json.NewEncoder(os.Stdout).Encode(out); err != nil {
					exitOnError(err)
				}

				return
			}

			switch state {
			case lifecycle.TokenStateValid:
				fmt.Println("Logged in: credential valid")
			case lifecycle.TokenStateExpiringSoon:
				fmt.Printf("Logged in: credential expires in %s\n", remaining.Round(time.Second))
			case lifecycle.TokenStateExpired:
				fmt.Println("Credential expired — run 'hubcli login'")
			case lifecycle.TokenStateInvalid:
				fmt.Println("Not logged in — run 'hubcli login'")
			default:
				fmt.Println("Credential state unknown — the credential store could not be read")
			}

			if hasExpiry && state == lifecycle.TokenStateValid {
				fmt.Printf("Expires in: %s\n", remaining.Round(time.Second))
			}

			// Session activity: notifications and recovery attempts recorded
			// since this process started.
			if recent := app.hub.Recent(5); len(recent) > 0 {
				fmt.Println("\nRecent notifications:")
				for _, n := range recent {
					fmt.Printf("  %s [%s] %s\n",
						n.Timestamp.Format(time.TimeOnly), n.Severity, n.Message)
				}
			}

			if attempts := app.engine.History(); len(attempts) > 0 {
				rate, _ := app.engine.SuccessRate()
				fmt.Printf("\nRecovery attempts: %d (%.0f%% succeeded)\n",
					len(attempts), rate*100)
			}
		},
	}
}
