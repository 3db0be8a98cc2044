// ABOUTME: Tests for token lookup and storage
// ABOUTME: Environment precedence, file round trip, and clearing

package auth

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenFile_RoundTrip(t *testing.T) {
	f, err := NewTokenFile(filepath.Join(t.TempDir(), "nested", "token"))
	require.NoError(t, err)

	tok, err := f.Load()
	require.NoError(t, err)
	assert.Empty(t, tok)

	require.NoError(t, f.Save("abc.def.ghi"))
	tok, err = f.Load()
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", tok)

	info, err := os.Stat(f.Path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	require.NoError(t, f.Clear())
	require.NoError(t, f.Clear())
	tok, err = f.Load()
	require.NoError(t, err)
	assert.Empty(t, tok)
}

func TestResolve(t *testing.T) {
	f, err := NewTokenFile(filepath.Join(t.TempDir(), "token"))
	require.NoError(t, err)
	require.NoError(t, f.Save("from-file"))

	env := map[string]string{EnvToken: " from-env "}
	getenv := func(k string) string { return env[k] }

	tok, src, err := Resolve(getenv, f)
	require.NoError(t, err)
	assert.Equal(t, "from-env", tok)
	assert.Equal(t, "env", src)

	delete(env, EnvToken)
	tok, src, err = Resolve(getenv, f)
	require.NoError(t, err)
	assert.Equal(t, "from-file", tok)
	assert.Equal(t, "file", src)

	require.NoError(t, f.Clear())
	tok, src, err = Resolve(getenv, f)
	require.NoError(t, err)
	assert.Empty(t, tok)
	assert.Empty(t, src)

	tok, _, err = Resolve(nil, nil)
	require.NoError(t, err)
	assert.Empty(t, tok)
}

func TestNewTokenFile_Default(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	f, err := NewTokenFile("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("petshop", "token"), filepath.Join(filepath.Base(filepath.Dir(f.Path)), filepath.Base(f.Path)))
}
