package fileutil_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/JaneliaSciComp/aitch/internal/cmn/fileutil"
	"github.com/stretchr/testify/require"
)

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "job_stack")

	require.NoError(t, fileutil.WriteFileAtomic(path, []byte("first\n")))
	require.NoError(t, fileutil.WriteFileAtomic(path, []byte("second\n")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "second\n", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestOpenOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "1.out")
	require.NoError(t, os.WriteFile(path, []byte("old\n"), 0600))

	f, err := fileutil.OpenOutput(path, true)
	require.NoError(t, err)
	_, _ = f.WriteString("new\n")
	require.NoError(t, f.Close())

	data, _ := os.ReadFile(path)
	require.Equal(t, "old\nnew\n", string(data))

	f, err = fileutil.OpenOutput(path, false)
	require.NoError(t, err)
	_, _ = f.WriteString("only\n")
	require.NoError(t, f.Close())

	data, _ = os.ReadFile(path)
	require.Equal(t, "only\n", string(data))
}

func TestResolvePath(t *testing.T) {
	t.Setenv("AITCH_TEST_DIR", "/var/tmp")

	resolved, err := fileutil.ResolvePath("$AITCH_TEST_DIR/aitch")
	require.NoError(t, err)
	require.Equal(t, filepath.Clean("/var/tmp/aitch"), resolved)

	empty, err := fileutil.ResolvePath("  ")
	require.NoError(t, err)
	require.Empty(t, empty)

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	resolved, err = fileutil.ResolvePath("~/aitch")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, "aitch"), resolved)
}

func TestIsDirIsFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f")
	require.NoError(t, os.WriteFile(file, nil, 0600))

	require.True(t, fileutil.IsDir(dir))
	require.False(t, fileutil.IsDir(file))
	require.True(t, fileutil.IsFile(file))
	require.False(t, fileutil.IsFile(filepath.Join(dir, "missing")))
}
