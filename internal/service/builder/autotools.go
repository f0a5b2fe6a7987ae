package builder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/oshokin/mesos-packager/internal/logger"
	"github.com/oshokin/mesos-packager/internal/service/common"
)

const (
	bootstrapScript = "bootstrap"
	configureScript = "configure"
	makeProgram     = "make"
)

// Builder produces build output and installs it into a destination root.
type Builder interface {
	// Build compiles sourceDir in buildDir with the given configure flags.
	Build(ctx context.Context, sourceDir, buildDir string, flags []string) error
	// Install copies the build output of buildDir into destDir.
	Install(ctx context.Context, buildDir, destDir string) error
}

var (
	// errSourceDirRequired is returned when Build gets no source directory.
	errSourceDirRequired = errors.New("source directory is required")
	// errBuildDirRequired is returned when Build or Install gets no build directory.
	errBuildDirRequired = errors.New("build directory is required")
	// errDestDirRequired is returned when Install gets no destination.
	errDestDirRequired = errors.New("destination directory is required")
)

// Autotools runs bootstrap, configure and make.
type Autotools struct {
	runner common.CommandRunner
	jobs   int
}

// AutotoolsOption customizes an Autotools builder.
type AutotoolsOption func(*Autotools)

// WithJobs overrides the make job count.
func WithJobs(jobs int) AutotoolsOption {
	return func(a *Autotools) {
		if jobs > 0 {
			a.jobs = jobs
		}
	}
}

// NewAutotools creates a builder that runs make with one job per CPU.
func NewAutotools(runner common.CommandRunner, opts ...AutotoolsOption) *Autotools {
	a := &Autotools{
		runner: runner,
		jobs:   runtime.NumCPU(),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Jobs returns the make job count.
func (a *Autotools) Jobs() int {
	return a.jobs
}

// Build bootstraps the source tree when configure is missing,
// configures it in buildDir and runs make.
func (a *Autotools) Build(ctx context.Context, sourceDir, buildDir string, flags []string) error {
	if sourceDir == "" {
		return errSourceDirRequired
	}

	if buildDir == "" {
		return errBuildDirRequired
	}

	sourceDir, err := filepath.Abs(sourceDir)
	if err != nil {
		return fmt.Errorf("resolve source directory: %w", err)
	}

	ctx = logger.WithName(ctx, "builder")

	configure := filepath.Join(sourceDir, configureScript)

	_, err = os.Stat(configure)

	switch {
	case errors.Is(err, os.ErrNotExist):
		logger.InfoKV(ctx, "Bootstrapping source tree", "dir", sourceDir)

		if err = a.runner.Run(ctx, sourceDir, "./"+bootstrapScript); err != nil {
			return fmt.Errorf("bootstrap: %w", err)
		}
	case err != nil:
		return fmt.Errorf("stat %s: %w", configure, err)
	}

	if err = os.MkdirAll(buildDir, 0o755); err != nil { //nolint:mnd // Regular directory permissions.
		return fmt.Errorf("create build directory: %w", err)
	}

	logger.InfoKV(ctx, "Configuring", "dir", buildDir, "flags", flags)

	if err = a.runner.Run(ctx, buildDir, configure, flags...); err != nil {
		return fmt.Errorf("configure: %w", err)
	}

	logger.InfoKV(ctx, "Compiling", "dir", buildDir, "jobs", a.jobs)

	if err = a.runner.Run(ctx, buildDir, makeProgram, "-j"+strconv.Itoa(a.jobs)); err != nil {
		return fmt.Errorf("make: %w", err)
	}

	return nil
}

// Install runs make install with DESTDIR pointing to destDir.
func (a *Autotools) Install(ctx context.Context, buildDir, destDir string) error {
	if buildDir == "" {
		return errBuildDirRequired
	}

	if destDir == "" {
		return errDestDirRequired
	}

	destDir, err := filepath.Abs(destDir)
	if err != nil {
		return fmt.Errorf("resolve destination directory: %w", err)
	}

	logger.InfoKV(logger.WithName(ctx, "builder"), "Installing", "from", buildDir, "to", destDir)

	if err = a.runner.Run(ctx, buildDir, makeProgram, "install", "DESTDIR="+destDir); err != nil {
		return fmt.Errorf("make install: %w", err)
	}

	return nil
}
