// Package credstore provides durable storage for the bearer credential and
// its expiry metadata. It owns the credential file layout; callers never
// touch the file directly.
package credstore

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"

	"github.com/hubcli/hubcli/internal/tokenfile"
)

// ErrNotLoggedIn indicates no credential is stored.
// Use errors.Is(err, credstore.ErrNotLoggedIn) to check.
var ErrNotLoggedIn = errors.New("credstore: not logged in")

// Metadata describes when the stored credential was issued and how long it
// lives. A zero Lifetime means the credential does not expire.
type Metadata struct {
	IssuedAt time.Time
	Lifetime time.Duration
}

// Store is a file-backed credential store.
type Store struct {
	path   string
	logger *slog.Logger
}

// NewStore creates a Store over the credential file at path.
func NewStore(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{path: path, logger: logger}
}

// DefaultPath returns the per-user credential file location.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("credstore: resolving config directory: %w", err)
	}

	return filepath.Join(dir, "hubcli", "credential.json"), nil
}

// CurrentCredential returns the stored bearer token, or "" if none is stored.
func (s *Store) CurrentCredential() (string, error) {
	tf, err := tokenfile.Load(s.path)
	if err != nil {
		return "", err
	}

	if tf == nil {
		return "", nil
	}

	return tf.Token.AccessToken, nil
}

// ReadMetadata returns the issuance metadata for the stored credential.
// Returns (nil, nil) when no credential is stored.
func (s *Store) ReadMetadata() (*Metadata, error) {
	tf, err := tokenfile.Load(s.path)
	if err != nil {
		return nil, err
	}

	if tf == nil {
		return nil, nil //nolint:nilnil // sentinel for "no credential"
	}

	return &Metadata{
		IssuedAt: time.Unix(tf.IssuedAt, 0),
		Lifetime: time.Duration(tf.ExpiresIn) * time.Second,
	}, nil
}

// Save persists a freshly minted token with its issuance metadata.
// A zero lifetime marks the credential as non-expiring.
func (s *Store) Save(tok *oauth2.Token, issuedAt time.Time, lifetime time.Duration) error {
	tf := &tokenfile.File{
		Token:     tok,
		IssuedAt:  issuedAt.Unix(),
		ExpiresIn: int64(lifetime / time.Second),
	}

	if err := tokenfile.Save(s.path, tf); err != nil {
		return err
	}

	s.logger.Info("credential saved",
		slog.String("path", s.path),
		slog.Int64("expires_in", tf.ExpiresIn),
	)

	return nil
}

// Clear removes the stored credential. Clearing an empty store is a no-op.
func (s *Store) Clear() error {
	if err := tokenfile.Remove(s.path); err != nil {
		return fmt.Errorf("credstore: clearing credential: %w", err)
	}

	s.logger.Info("credential cleared", slog.String("path", s.path))

	return nil
}

// Meta returns cached metadata values saved alongside the token (login name
// and the like). Returns nil when no credential is stored.
func (s *Store) Meta() (map[string]string, error) {
	tf, err := tokenfile.Load(s.path)
	if err != nil || tf == nil {
		return nil, err
	}

	return tf.Meta, nil
}

// SetMeta merges cached metadata into the stored credential file.
// Returns ErrNotLoggedIn when no credential is stored.
func (s *Store) SetMeta(meta map[string]string) error {
	tf, err := tokenfile.Load(s.path)
	if err != nil {
		return err
	}

	if tf == nil {
		return ErrNotLoggedIn
	}

	if tf.Meta == nil {
		tf.Meta = make(map[string]string, len(meta))
	}

	for k, v := range meta {
		tf.Meta[k] = v
	}

	return tokenfile.Save(s.path, tf)
}
