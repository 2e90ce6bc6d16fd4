package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hubcli/hubcli/internal/api"
)

var flagIssueLimit int

func newIssueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Work with issues",
	}

	list := &cobra.Command{
		Use:   "list OWNER/REPO",
		Short: "List open issues in a repository",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			repo := args[0]
			if !strings.Contains(repo, "/") {
				exitOnError(fmt.Errorf("repository must be in OWNER/REPO form, got %q", repo))
			}

			app, err := buildApp(cmd.Context())
			if err != nil {
				exitOnError(err)
			}
			defer app.close()

			endpoint := "/repos/" + repo + "/issues"

			err = app.runGuarded(cmd.Context(), "list issues", endpoint, func(ctx context.Context) error {
				issues, err := fetchIssues(ctx, app, repo, flagIssueLimit)
				if err != nil {
					return err
				}

				return printIssues(issues)
			})
			if err != nil {
				exitOnError(err)
			}
		},
	}

	list.Flags().IntVar(&flagIssueLimit, "limit", 30, "maximum issues to list")

	cmd.AddCommand(list)

	return cmd
}

// fetchIssues returns the issue listing, served from the response cache when
// a fresh entry exists.
func fetchIssues(ctx context.Context, app *app, repo string, limit int) ([]api.Issue, error) {
	key := fmt.Sprintf("issues:%s:limit=%d", repo, limit)

	if app.cache != nil {
		body, ok, err := app.cache.Get(ctx, key)
		if err != nil {
			app.logger.Warn("cache read failed", slog.String("error", err.Error()))
		} else if ok {
			var issues []api.Issue
			if err := json.Unmarshal(body, &issues); err == nil {
				app.logger.Debug("serving issues from cache", slog.String("key", key))
				return issues, nil
			}
		}
	}

	issues, err := app.client.Issues(ctx, repo, limit)
	if err != nil {
		return nil, err
	}

	if app.cache != nil {
		if body, err := json.Marshal(issues); err == nil {
			if err := app.cache.Put(ctx, key, body); err != nil {
				app.logger.Warn("cache write failed", slog.String("error", err.Error()))
			}
		}
	}

	return issues, nil
}

func printIssues(issues []api.Issue) error {
	if flagJSON {
		return json.NewEncoder(os.Stdout).Encode(issues)
	}

	for _, i := range issues {
		fmt.Printf("#%-6d %-60.60s @%s\n", i.Number, i.Title, i.User.Login)
	}

	return nil
}
