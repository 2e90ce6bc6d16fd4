package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hubcli/hubcli/internal/lifecycle"
)

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Authenticate with GitHub",
		Long:  "Sign in to GitHub using the device code flow and store the credential locally.",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			app, err := buildApp(cmd.Context())
			if err != nil {
				exitOnError(err)
			}
			defer app.close()

			if app.orch.CheckState() == lifecycle.TokenStateValid {
				statusf("Already logged in. Run 'hubcli logout' first to switch accounts.\n")
				return
			}

			// Login is the bootstrap path: the flow runs directly, there is
			// no credential for the orchestrator to guard yet.
			if err := app.flow.Run(cmd.Context()); err != nil {
				app.surfaceRecovery(cmd.Context(), err)
				exitOnError(fmt.Errorf("login failed"))
			}

			statusf("Logged in.\n")
		},
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored credential",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			app, err := buildApp(cmd.Context())
			if err != nil {
				exitOnError(err)
			}
			defer app.close()

			if err := app.store.Clear(); err != nil {
				exitOnError(err)
			}

			statusf("Logged out.\n")
		},
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the authenticated user",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			app, err := buildApp(cmd.Context())
			if err != nil {
				exitOnError(err)
			}
			defer app.close()

			err = app.runGuarded(cmd.Context(), "fetch user profile", "/user", func(ctx context.Context) error {
				user, err := app.client.Me(ctx)
				if err != nil {
					return err
				}

				if flagJSON {
					return json.NewEncoder(os.Stdout).Encode(user)
				}

				fmt.Printf("%s", user.Login)
				if user.Name != "" {
					fmt.Printf(" (%s)", user.Name)
				}
				fmt.Println()

				return nil
			})
			if err != nil {
				exitOnError(err)
			}
		},
	}
}
