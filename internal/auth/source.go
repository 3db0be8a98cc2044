// ABOUTME: Where the console finds and keeps its operator token
// ABOUTME: PETSHOP_TOKEN wins over the token file; login saves to the file

package auth

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// EnvToken names the environment variable holding an operator token.
const EnvToken = "PETSHOP_TOKEN"

// DefaultTokenPath returns <user config dir>/petshop/token.
func DefaultTokenPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locating config dir: %w", err)
	}
	return filepath.Join(dir, "petshop", "token"), nil
}

// TokenFile stores one token on disk.
type TokenFile struct {
	Path string
}

// NewTokenFile uses path, or DefaultTokenPath when path is empty.
func NewTokenFile(path string) (*TokenFile, error) {
	if path == "" {
		p, err := DefaultTokenPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	return &TokenFile{Path: path}, nil
}

// Load returns the stored token, or "" when none is stored.
func (f *TokenFile) Load() (string, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading token file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Save writes token with owner-only permissions.
func (f *TokenFile) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return fmt.Errorf("creating token dir: %w", err)
	}
	if err := os.WriteFile(f.Path, []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("writing token file: %w", err)
	}
	return nil
}

// Clear removes the stored token.
func (f *TokenFile) Clear() error {
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing token file: %w", err)
	}
	return nil
}

// Resolve returns the token from the environment, else from file. source is
// "env", "file" or "" when no token was found.
func Resolve(getenv func(string) string, file *TokenFile) (token, source string, err error) {
	if getenv != nil {
		if t := strings.TrimSpace(getenv(EnvToken)); t != "" {
			return t, "env", nil
		}
	}
	if file == nil {
		return "", "", nil
	}
	t, err := file.Load()
	if err != nil || t == "" {
		return "", "", err
	}
	return t, "file", nil
}
