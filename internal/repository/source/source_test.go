package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/mesos-packager/internal/domain/vercmp"
)

// commitFile writes a file into the repository worktree and commits it.
func commitFile(t *testing.T, repo *git.Repository, dir, name, contents string) plumbing.Hash {
	t.Helper()

	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(contents), 0o600))

	wt, err := repo.Worktree()
	require.NoError(t, err)

	_, err = wt.Add(name)
	require.NoError(t, err)

	hash, err := wt.Commit("update "+name, &git.CommitOptions{
		Author: &object.Signature{Name: "tester", Email: "t@example.com", When: time.Now()},
	})
	require.NoError(t, err)

	return hash
}

// newOrigin creates a local repository with two commits and a tag on the first one.
func newOrigin(t *testing.T) (string, plumbing.Hash, plumbing.Hash) {
	t.Helper()

	dir := t.TempDir()

	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	first := commitFile(t, repo, dir, VersionFile, "AC_INIT([mesos], [0.20.1])\n")

	_, err = repo.CreateTag("0.20.1", first, nil)
	require.NoError(t, err)

	second := commitFile(t, repo, dir, VersionFile, "AC_INIT([mesos], [0.21.0])\n")

	return dir, first, second
}

// TestGitProvider_CloneHeadAndTag clones the default branch and a tag.
func TestGitProvider_CloneHeadAndTag(t *testing.T) {
	t.Parallel()

	origin, first, second := newOrigin(t)
	provider := NewGitProvider()

	head := filepath.Join(t.TempDir(), "mesos")

	co, err := provider.Checkout(context.Background(), origin, "", head)
	require.NoError(t, err)
	require.False(t, co.Reused)
	require.Equal(t, second.String(), co.Ref)

	version, err := ReadDeclaredVersion(head)
	require.NoError(t, err)
	require.Equal(t, "0.21.0", version.String())

	tagged := filepath.Join(t.TempDir(), "mesos")

	co, err = provider.Checkout(context.Background(), origin, "0.20.1", tagged)
	require.NoError(t, err)
	require.Equal(t, first.String(), co.Ref)

	version, err = ReadDeclaredVersion(tagged)
	require.NoError(t, err)
	require.Equal(t, "0.20.1", version.String())
}

// TestGitProvider_ExistingDirIsReused verifies the second checkout does no network work.
func TestGitProvider_ExistingDirIsReused(t *testing.T) {
	t.Parallel()

	origin, _, second := newOrigin(t)
	provider := NewGitProvider()
	dir := filepath.Join(t.TempDir(), "mesos")

	_, err := provider.Checkout(context.Background(), origin, "", dir)
	require.NoError(t, err)

	before, err := os.ReadFile(filepath.Join(dir, VersionFile))
	require.NoError(t, err)

	// An unreachable locator proves nothing is fetched.
	co, err := provider.Checkout(context.Background(), "https://invalid.invalid/mesos.git", "master", dir)
	require.NoError(t, err)
	require.True(t, co.Reused)
	require.Equal(t, second.String(), co.Ref)

	after, err := os.ReadFile(filepath.Join(dir, VersionFile))
	require.NoError(t, err)
	require.Equal(t, before, after)

	// A plain directory is reused too, without a ref.
	plain := t.TempDir()
	co, err = provider.Checkout(context.Background(), "", "", plain)
	require.NoError(t, err)
	require.True(t, co.Reused)
	require.Empty(t, co.Ref)
}

// TestGitProvider_Errors covers a missing locator and an unknown ref.
func TestGitProvider_Errors(t *testing.T) {
	t.Parallel()

	provider := NewGitProvider()

	_, err := provider.Checkout(context.Background(), "", "", filepath.Join(t.TempDir(), "missing"))
	require.ErrorIs(t, err, errLocatorRequired)

	origin, _, _ := newOrigin(t)

	_, err = provider.Checkout(context.Background(), origin, "no-such-branch", filepath.Join(t.TempDir(), "mesos"))
	require.ErrorIs(t, err, errUnknownRef)
}

// TestGitProvider_FailedCheckoutIsNotReused verifies a bad ref leaves no directory behind.
func TestGitProvider_FailedCheckoutIsNotReused(t *testing.T) {
	t.Parallel()

	origin, first, _ := newOrigin(t)
	provider := NewGitProvider()
	dir := filepath.Join(t.TempDir(), "mesos")

	_, err := provider.Checkout(context.Background(), origin, "0.20.2-typo", dir)
	require.ErrorIs(t, err, errUnknownRef)
	require.NoDirExists(t, dir)

	co, err := provider.Checkout(context.Background(), origin, "0.20.1", dir)
	require.NoError(t, err)
	require.False(t, co.Reused)
	require.Equal(t, first.String(), co.Ref)

	version, err := ReadDeclaredVersion(dir)
	require.NoError(t, err)
	require.Equal(t, "0.20.1", version.String())
}

// TestReadDeclaredVersion covers the accepted AC_INIT spellings and failures.
func TestReadDeclaredVersion(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"AC_INIT([mesos], [0.21.0])\n":                      "0.21.0",
		"dnl header\nAC_INIT([mesos],[0.19.0-rc2])\n":       "0.19.0-rc2",
		"AC_PREREQ([2.61])\nAC_INIT(mesos, 0.18.1)\n":       "0.18.1",
		"AC_INIT( [mesos] , [ 0.20.0 ], [dev@mesos.org])\n": "0.20.0",
	}

	for contents, want := range cases {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, VersionFile), []byte(contents), 0o600))

		got, err := ReadDeclaredVersion(dir)
		require.NoError(t, err, contents)
		require.Equal(t, want, got.String())
	}

	_, err := ReadDeclaredVersion(t.TempDir())
	require.ErrorIs(t, err, ErrVersionUnavailable)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, VersionFile), []byte("AC_INIT([mesos], [trunk])\n"), 0o600))

	_, err = ReadDeclaredVersion(dir)
	require.ErrorIs(t, err, ErrVersionUnavailable)
	require.ErrorIs(t, err, vercmp.ErrInvalidVersion)

	empty := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(empty, VersionFile), []byte("AC_PREREQ([2.61])\n"), 0o600))

	_, err = ReadDeclaredVersion(empty)
	require.ErrorIs(t, err, ErrVersionUnavailable)
}
