//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"crypto/sha512"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChecksum(t *testing.T) {
	t.Parallel()

	want := sha512.Sum512([]byte("zk://localhost:2181/mesos\n"))

	got, err := Checksum([]byte("zk://localhost:2181/mesos\n"))
	require.NoError(t, err)
	require.Equal(t, want[:], got)
	require.Equal(t, base64.StdEncoding.EncodeToString(want[:]), EncodeChecksum(got))
}

func TestFileChecksum(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "data")
	require.NoError(t, os.WriteFile(path, []byte("payload"), 0o600))

	want := sha512.Sum512([]byte("payload"))

	got, err := FileChecksum(path)
	require.NoError(t, err)
	require.Equal(t, want[:], got)

	_, err = FileChecksum(filepath.Join(t.TempDir(), "missing"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestInstallFileCreatesAndReplaces(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "etc", "mesos", "zk")

	require.NoError(t, InstallFile(path, []byte("first\n"), RegularFileMode))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "first\n", string(data))

	require.NoError(t, InstallFile(path, []byte("second\n"), ExecutableFileMode))

	data, err = os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "second\n", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, ExecutableFileMode, info.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}
