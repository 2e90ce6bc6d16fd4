package api

import (
	"context"
	"fmt"
	"net/url"
	"time"
)

// User is the authenticated user's profile.
type User struct {
	Login string `json:"login"`
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Repo is a repository summary as returned by the repos listing endpoints.
type Repo struct {
	FullName    string    `json:"full_name"`
	Description string    `json:"description"`
	Private     bool      `json:"private"`
	Stars       int       `json:"stargazers_count"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Issue is an issue summary as returned by the issues listing endpoint.
type Issue struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	State  string `json:"state"`
	User   struct {
		Login string `json:"login"`
	} `json:"user"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Me returns the authenticated user's profile.
func (c *Client) Me(ctx context.Context) (*User, error) {
	c.logger.Debug("fetching authenticated user profile")

	var u User
	if err := c.getJSON(ctx, "/user", &u); err != nil {
		return nil, err
	}

	return &u, nil
}

// Repos lists the authenticated user's repositories, most recently pushed
// first. limit caps the page size (GitHub max 100).
func (c *Client) Repos(ctx context.Context, limit int) ([]Repo, error) {
	q := url.Values{}
	q.Set("sort", "pushed")
	q.Set("per_page", fmt.Sprintf("%d", limit))

	var repos []Repo
	if err := c.getJSON(ctx, "/user/repos?"+q.Encode(), &repos); err != nil {
		return nil, err
	}

	return repos, nil
}

// Issues lists open issues for a repository in "owner/name" form.
func (c *Client) Issues(ctx context.Context, repo string, limit int) ([]Issue, error) {
	q := url.Values{}
	q.Set("state", "open")
	q.Set("per_page", fmt.Sprintf("%d", limit))

	var issues []Issue
	if err := c.getJSON(ctx, "/repos/"+repo+"/issues?"+q.Encode(), &issues); err != nil {
		return nil, err
	}

	return issues, nil
}
