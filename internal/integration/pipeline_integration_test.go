package integration

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/mesos-packager/internal/domain/platform"
	"github.com/oshokin/mesos-packager/internal/domain/policy"
	"github.com/oshokin/mesos-packager/internal/metrics"
	"github.com/oshokin/mesos-packager/internal/repository/source"
	"github.com/oshokin/mesos-packager/internal/repository/state"
	"github.com/oshokin/mesos-packager/internal/service/builder"
	"github.com/oshokin/mesos-packager/internal/service/packager"
	"github.com/oshokin/mesos-packager/internal/service/pipeline"
	"github.com/oshokin/mesos-packager/internal/service/probe"
	"github.com/oshokin/mesos-packager/internal/service/staging"
)

var errNotInstalled = errors.New("exit status 1")

// scriptedRunner imitates make, fpm and rpm well enough for the pipeline.
type scriptedRunner struct {
	mu       sync.Mutex
	commands []string
}

func (r *scriptedRunner) Run(_ context.Context, dir, name string, args ...string) error {
	r.mu.Lock()
	r.commands = append(r.commands, filepath.Base(name)+" "+strings.Join(args, " "))
	r.mu.Unlock()

	switch {
	case name == "make" && len(args) == 1 && strings.HasPrefix(args[0], "-j"):
		dist := filepath.Join(dir, "src", "python", "native", "dist")
		if err := os.MkdirAll(dist, 0o755); err != nil {
			return err
		}

		return os.WriteFile(filepath.Join(dist, "mesos-0.21.0-py2.7-linux-x86_64.egg"), []byte("egg"), 0o600)
	case name == "make" && len(args) == 2 && args[0] == "install":
		dest := strings.TrimPrefix(args[1], "DESTDIR=")
		if err := os.WriteFile(filepath.Join(dest, "usr", "sbin", "mesos-master"), []byte("bin"), 0o755); err != nil {
			return err
		}

		return os.WriteFile(filepath.Join(dest, "usr", "lib", "libmesos-0.21.0.so"), []byte("lib"), 0o644)
	case name == "fpm":
		for i := 0; i+1 < len(args); i++ {
			if args[i] == "-p" {
				return os.WriteFile(args[i+1], []byte("rpm"), 0o600)
			}
		}

		return errors.New("fpm called without -p")
	default:
		return nil
	}
}

func (r *scriptedRunner) Output(_ context.Context, _, name string, args ...string) ([]byte, error) {
	if name == "rpm" && len(args) == 2 && args[1] == "libcurl-devel" {
		return []byte("libcurl-devel-7.29.0-19.el7.x86_64\n"), nil
	}

	return nil, errNotInstalled
}

func (r *scriptedRunner) ran(prefix string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0

	for _, c := range r.commands {
		if strings.HasPrefix(c, prefix) {
			count++
		}
	}

	return count
}

// newOrigin creates a git repository that looks like a Mesos source release.
func newOrigin(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()

	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	files := map[string]string{
		source.VersionFile: "AC_INIT([mesos], [0.21.0])\n",
		"LICENSE":          "Apache License 2.0\n",
		"NOTICE":           "Apache Mesos\n",
	}

	wt, err := repo.Worktree()
	require.NoError(t, err)

	for name, contents := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(contents), 0o600))

		_, err = wt.Add(name)
		require.NoError(t, err)
	}

	_, err = wt.Commit("release 0.21.0", &git.CommitOptions{
		Author: &object.Signature{Name: "release", Email: "release@example.com", When: time.Now()},
	})
	require.NoError(t, err)

	return dir
}

// detectPlatform resolves a CentOS 7 host from a fake root filesystem.
func detectPlatform(t *testing.T, runner *scriptedRunner) platform.ID {
	t.Helper()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "etc"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "etc", "os-release"),
		[]byte("NAME=\"CentOS Linux\"\nID=\"centos\"\nVERSION_ID=\"7\"\n"), 0o600))

	raw, err := probe.NewDetector(runner, probe.WithRoot(root)).Detect(context.Background())
	require.NoError(t, err)

	id, err := platform.Resolve(raw.OSID, raw.VersionID)
	require.NoError(t, err)

	return id
}

// TestPipeline_CentOS7 packages a fresh clone, then runs again over the existing checkout.
func TestPipeline_CentOS7(t *testing.T) {
	origin := newOrigin(t)
	work := t.TempDir()
	runner := &scriptedRunner{}
	id := detectPlatform(t, runner)
	require.Equal(t, platform.ID{Family: platform.CentOS, Major: "7"}, id)

	out := filepath.Join(work, "out")
	runs := state.NewFileRepository(filepath.Join(out, state.Filename))
	registry := prom.NewRegistry()
	autotools := builder.NewAutotools(runner, builder.WithJobs(2))

	orchestrator, err := pipeline.NewOrchestrator(pipeline.Product{Name: "mesos", License: "Apache-2.0"}, pipeline.Dependencies{
		Source:    source.NewGitProvider(),
		Builder:   autotools,
		Assembler: staging.NewAssembler(autotools),
		Packager:  packager.NewFPM(runner, "fpm"),
		Policy:    policy.NewTable(probe.NewHostTLSProbe(runner)),
		Recorder:  metrics.NewPrometheusRecorder(registry),
		Runs:      runs,
	})
	require.NoError(t, err)

	newContext := func(runID string) *pipeline.BuildContext {
		src := filepath.Join(work, "mesos")

		return &pipeline.BuildContext{
			RunID:        runID,
			SourceDir:    src,
			BuildDir:     filepath.Join(src, "build"),
			StagingRoot:  filepath.Join(src, "build", "toor"),
			OutputDir:    out,
			RepoLocator:  origin,
			Revision:     "1",
			Platform:     id,
			Architecture: "amd64",
			Mode:         pipeline.Mode{IncludeBinding: true},
		}
	}

	// Setup a deadline so a hung stage fails the test instead of the suite.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	first := newContext("first")
	res, err := orchestrator.Execute(ctx, first)
	require.NoError(t, err)

	outcome, ok := res.Outcome(pipeline.StateCheckout)
	require.True(t, ok)
	require.Equal(t, pipeline.OutcomeCompleted, outcome)
	require.NotEmpty(t, first.ResolvedRef)

	require.Equal(t, 1, runner.ran("bootstrap"))
	require.Equal(t, 1, runner.ran("configure --prefix=/usr --sysconfdir=/etc --localstatedir=/var --enable-optimize"))
	require.Equal(t, 1, runner.ran("make -j2"))
	require.Equal(t, 2, runner.ran("fpm"))

	require.Equal(t, []string{"java", "cyrus-sasl-md5", "libcurl", "subversion"}, res.Decision.Dependencies)
	require.Equal(t, policy.TLSNSS, res.Decision.TLS)

	root := first.StagingRoot
	require.FileExists(t, filepath.Join(root, "usr/lib/systemd/system/mesos-master.service"))
	require.FileExists(t, filepath.Join(root, "usr/share/doc/mesos/NOTICE"))
	require.FileExists(t, filepath.Join(root, "usr/local/lib/libmesos.so"))

	require.FileExists(t, filepath.Join(out, "mesos-0.21.0-1.x86_64.rpm"))
	require.FileExists(t, filepath.Join(out, "python-mesos-0.21.0-1.x86_64.rpm"))

	manifest, err := packager.LoadManifest(res.Manifest)
	require.NoError(t, err)
	require.Equal(t, []string{"mesos-0.21.0-1.x86_64.rpm", "python-mesos-0.21.0-1.x86_64.rpm"}, manifest.FileNames())
	require.Equal(t, "first", manifest.RunID)

	// A second run reuses the checkout and rebuilds from scratch.
	second := newContext("second")
	res, err = orchestrator.Execute(ctx, second)
	require.NoError(t, err)

	outcome, ok = res.Outcome(pipeline.StateCheckout)
	require.True(t, ok)
	require.Equal(t, pipeline.OutcomeSkipped, outcome)
	require.Equal(t, 2, runner.ran("make -j2"))

	record, err := runs.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "second", record.RunID)
	require.Equal(t, string(pipeline.StateDone), record.State)
	require.Len(t, record.Packages, 2)

	metricsFile := filepath.Join(work, "mesos-packager.prom")
	require.NoError(t, prom.WriteToTextfile(metricsFile, registry))

	data, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	require.Contains(t, string(data), `mesos_packager_run_outcomes_total{outcome="success"} 2`)
	require.Contains(t, string(data), `mesos_packager_stage_results_total{result="skipped",stage="Checkout"} 1`)
}
