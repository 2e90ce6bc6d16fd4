package tokenfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestLoad_MissingFileReturnsNil(t *testing.T) {
	tf, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Nil(t, tf)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens", "credential.json")

	in := &File{
		Token:     &oauth2.Token{AccessToken: "gho_testtoken", TokenType: "bearer"},
		IssuedAt:  1700000000,
		ExpiresIn: 28800,
		Meta:      map[string]string{"login": "octocat"},
	}
	require.NoError(t, Save(path, in))

	out, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, "gho_testtoken", out.Token.AccessToken)
	assert.Equal(t, int64(1700000000), out.IssuedAt)
	assert.Equal(t, int64(28800), out.ExpiresIn)
	assert.Equal(t, "octocat", out.Meta["login"])
}

func TestSave_FilePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credential.json")
	require.NoError(t, Save(path, &File{Token: &oauth2.Token{AccessToken: "x"}}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(FilePerms), info.Mode().Perm())
}

func TestLoad_MissingTokenField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credential.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"meta":{}}`), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing token field")
}

func TestRemove_MissingFileIsNil(t *testing.T) {
	assert.NoError(t, Remove(filepath.Join(t.TempDir(), "nope.json")))
}
