package builder

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type call struct {
	dir  string
	name string
	args []string
}

type recordingRunner struct {
	calls []call
	fail  string
}

func (r *recordingRunner) Run(_ context.Context, dir, name string, args ...string) error {
	r.calls = append(r.calls, call{dir: dir, name: name, args: args})

	if r.fail != "" && strings.HasSuffix(name, r.fail) {
		return errors.New("exit status 2")
	}

	return nil
}

func (r *recordingRunner) Output(context.Context, string, string, ...string) ([]byte, error) {
	return nil, errors.New("unexpected Output call")
}

func TestBuildBootstrapsWhenConfigureIsMissing(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	build := filepath.Join(src, "build")
	runner := &recordingRunner{}

	err := NewAutotools(runner, WithJobs(4)).Build(context.Background(), src, build, []string{"--prefix=/usr"})
	require.NoError(t, err)
	require.DirExists(t, build)

	require.Len(t, runner.calls, 3)
	require.Equal(t, call{dir: src, name: "./bootstrap"}, runner.calls[0])
	require.Equal(t, call{dir: build, name: filepath.Join(src, "configure"), args: []string{"--prefix=/usr"}}, runner.calls[1])
	require.Equal(t, call{dir: build, name: "make", args: []string{"-j4"}}, runner.calls[2])
}

func TestBuildSkipsBootstrapWhenConfigureExists(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "configure"), []byte("#!/bin/sh\n"), 0o755))

	runner := &recordingRunner{}

	err := NewAutotools(runner).Build(context.Background(), src, filepath.Join(src, "build"), nil)
	require.NoError(t, err)
	require.Len(t, runner.calls, 2)
	require.Equal(t, filepath.Join(src, "configure"), runner.calls[0].name)
}

func TestBuildFailsOnMakeError(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	runner := &recordingRunner{fail: "make"}

	err := NewAutotools(runner).Build(context.Background(), src, filepath.Join(src, "build"), nil)
	require.ErrorContains(t, err, "make: exit status 2")
}

func TestBuildValidatesDirectories(t *testing.T) {
	t.Parallel()

	b := NewAutotools(&recordingRunner{})

	require.ErrorIs(t, b.Build(context.Background(), "", "build", nil), errSourceDirRequired)
	require.ErrorIs(t, b.Build(context.Background(), "src", "", nil), errBuildDirRequired)
}

func TestInstall(t *testing.T) {
	t.Parallel()

	dest := t.TempDir()
	runner := &recordingRunner{}

	require.NoError(t, NewAutotools(runner).Install(context.Background(), "build", dest))
	require.Equal(t, []call{{dir: "build", name: "make", args: []string{"install", "DESTDIR=" + dest}}}, runner.calls)

	require.ErrorIs(t, NewAutotools(runner).Install(context.Background(), "build", ""), errDestDirRequired)
}

func TestDefaultJobs(t *testing.T) {
	t.Parallel()

	require.Positive(t, NewAutotools(&recordingRunner{}).Jobs())
	require.Equal(t, 3, NewAutotools(&recordingRunner{}, WithJobs(3)).Jobs())
}
