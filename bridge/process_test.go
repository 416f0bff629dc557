package bridge

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(prev) })
}

func TestProcessEnsureRunning(t *testing.T) {
	t.Run("skips spawning when the server is already live", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

		// A runner that cannot exist proves no spawn was attempted.
		process := NewProcess(client, 3333, WithRunner("definitely-not-a-binary"))
		require.NoError(t, process.EnsureRunning())
		require.False(t, process.Owned(), "a live server must not be re-spawned")
	})

	t.Run("fails fast when the entry point cannot be found", func(t *testing.T) {
		dir := t.TempDir()
		chdir(t, dir)

		client := NewClient("localhost", 1)
		process := NewProcess(client, 1)
		err := process.EnsureRunning()
		require.ErrorIs(t, err, ErrServerNotFound)
	})
}

func TestFindServerPath(t *testing.T) {
	root := t.TempDir()
	entry := filepath.Join(root, "packages", "gym-server", "src", "index.ts")
	require.NoError(t, os.MkdirAll(filepath.Dir(entry), 0o755))
	require.NoError(t, os.WriteFile(entry, []byte("// entry"), 0o644))

	// Entry point should be found from a nested working directory.
	nested := filepath.Join(root, "packages", "python-gym", "examples")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	chdir(t, nested)

	found, err := FindServerPath()
	require.NoError(t, err)
	require.Equal(t, entry, found)
}

func TestProcessClose(t *testing.T) {
	t.Run("no-op when the process was not spawned here", func(t *testing.T) {
		client := NewClient("localhost", 1)
		process := NewProcess(client, 1)
		process.Close()
		process.Close()
	})
}
