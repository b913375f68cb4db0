package testutils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// WriteDocument writes body to dir/name and returns the absolute path.
// It fails the test immediately on error.
func WriteDocument(t *testing.T, dir, name, body string) string {
	t.Helper()

	absDir, err := filepath.Abs(dir)
	require.NoError(t, err, "Failed to get absolute path for %s", dir)

	path := filepath.Join(absDir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644), "Failed to write %s", name)
	return path
}

// TempDocument writes body to name inside a fresh temporary directory.
func TempDocument(t *testing.T, name, body string) string {
	t.Helper()
	return WriteDocument(t, t.TempDir(), name, body)
}
