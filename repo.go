package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/hubcli/hubcli/internal/api"
)

var flagRepoLimit int

func newRepoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repo",
		Short: "Work with repositories",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List your repositories",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			app, err := buildApp(cmd.Context())
			if err != nil {
				exitOnError(err)
			}
			defer app.close()

			err = app.runGuarded(cmd.Context(), "list repositories", "/user/repos", func(ctx context.Context) error {
				repos, err := fetchRepos(ctx, app, flagRepoLimit)
				if err != nil {
					return err
				}

				return printRepos(repos)
			})
			if err != nil {
				exitOnError(err)
			}
		},
	}

	list.Flags().IntVar(&flagRepoLimit, "limit", 30, "maximum repositories to list")

	cmd.AddCommand(list)

	return cmd
}

// fetchRepos returns the repository listing, served from the response cache
// when a fresh entry exists.
func fetchRepos(ctx context.Context, app *app, limit int) ([]api.Repo, error) {
	key := fmt.Sprintf("repos:limit=%d", limit)

	if app.cache != nil {
		body, ok, err := app.cache.Get(ctx, key)
		if err != nil {
			app.logger.Warn("cache read failed", slog.String("error", err.Error()))
		} else if ok {
			var repos []api.Repo
			if err := json.Unmarshal(body, &repos); err == nil {
				app.logger.Debug("serving repositories from cache", slog.String("key", key))
				return repos, nil
			}
		}
	}

	repos, err := app.client.Repos(ctx, limit)
	if err != nil {
		return nil, err
	}

	if app.cache != nil {
		if body, err := json.Marshal(repos); err == nil {
			if err := app.cache.Put(ctx, key, body); err != nil {
				app.logger.Warn("cache write failed", slog.String("error", err.Error()))
			}
		}
	}

	return repos, nil
}

func printRepos(repos []api.Repo) error {
	if flagJSON {
		return json.NewEncoder(os.Stdout).Encode(repos)
	}

	for _, r := range repos {
		visibility := "public"
		if r.Private {
			visibility = "private"
		}

		fmt.Printf("%-50s %-8s %6d★\n", r.FullName, visibility, r.Stars)
	}

	return nil
}
