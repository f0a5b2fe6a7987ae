package packager

import (
	"crypto/sha512"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestManifestFileName(t *testing.T) {
	t.Parallel()

	require.Equal(t, "mesos_0.21.0-1.manifest.yaml", ManifestFileName("mesos", "0.21.0", "1"))
}

func TestManifestRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	pkg := filepath.Join(dir, "mesos_0.21.0-1_amd64.deb")
	require.NoError(t, os.WriteFile(pkg, []byte("deb contents"), 0o600))

	m := NewManifest()
	m.Name = "mesos"
	m.Version = "0.21.0"
	m.Revision = "1"
	m.Format = "deb"
	m.CreatedAt = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, m.Add(pkg))

	sum := sha512.Sum512([]byte("deb contents"))
	require.Equal(t, base64.StdEncoding.EncodeToString(sum[:]), m.Files["mesos_0.21.0-1_amd64.deb"])

	path := filepath.Join(dir, ManifestFileName("mesos", "0.21.0", "1"))
	require.NoError(t, m.Save(path))

	loaded, err := LoadManifest(path)
	require.NoError(t, err)
	require.Equal(t, m.Files, loaded.Files)
	require.Equal(t, "0.21.0", loaded.Version)
	require.True(t, m.CreatedAt.Equal(loaded.CreatedAt))
}

func TestManifestAddMissingFile(t *testing.T) {
	t.Parallel()

	err := NewManifest().Add(filepath.Join(t.TempDir(), "missing.rpm"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestManifestFileNames(t *testing.T) {
	t.Parallel()

	m := NewManifest()
	m.Files["python-mesos_0.21.0-1_amd64.deb"] = "b"
	m.Files["mesos_0.21.0-1_amd64.deb"] = "a"

	require.Equal(t, []string{"mesos_0.21.0-1_amd64.deb", "python-mesos_0.21.0-1_amd64.deb"}, m.FileNames())
}
