package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"time"

	"github.com/google/uuid"

	"github.com/oshokin/mesos-packager/internal/config"
	"github.com/oshokin/mesos-packager/internal/domain/platform"
	"github.com/oshokin/mesos-packager/internal/domain/policy"
	"github.com/oshokin/mesos-packager/internal/logger"
	"github.com/oshokin/mesos-packager/internal/metrics"
	"github.com/oshokin/mesos-packager/internal/repository/artifact"
	"github.com/oshokin/mesos-packager/internal/repository/source"
	"github.com/oshokin/mesos-packager/internal/repository/state"
	"github.com/oshokin/mesos-packager/internal/service/builder"
	"github.com/oshokin/mesos-packager/internal/service/common"
	"github.com/oshokin/mesos-packager/internal/service/packager"
	"github.com/oshokin/mesos-packager/internal/service/probe"
	"github.com/oshokin/mesos-packager/internal/service/staging"
)

// revisionLayout formats the timestamp of a default revision.
const revisionLayout = "20060102150405"

// defaultRevisionPrefix starts every generated revision.
const defaultRevisionPrefix = "0.1."

// Options contains inputs for the pipeline entry point.
type Options struct {
	// ConfigPath is an optional settings file. Empty searches the XDG config directories.
	ConfigPath string
	// Repository overrides the source repository locator.
	Repository string
	// Ref overrides the branch, tag or commit to check out.
	Ref string
	// Revision is the package revision. Empty generates one from the current time.
	Revision string
	// SourceDir overrides the source checkout directory.
	SourceDir string
	// BuildDir overrides the build directory.
	BuildDir string
	// OutputDir overrides the package output directory.
	OutputDir string
	// Prebuilt reuses existing sources and build output.
	Prebuilt bool
	// WithoutBinding skips the language binding package.
	WithoutBinding bool
	// NominalVersion replaces the version declared by the sources.
	NominalVersion string
	// OS overrides the detected operating system id.
	OS string
	// OSVersion overrides the detected operating system version.
	OSVersion string
}

// Run resolves settings and platform, then executes the pipeline once.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "mesos-packager")

	cfg, err := config.Resolve(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	if err = applyOverrides(cfg, opts); err != nil {
		return err
	}

	runner := common.NewExecRunner()

	id, err := resolvePlatform(ctx, probe.NewDetector(runner), opts)
	if err != nil {
		return err
	}

	lock, err := common.AcquireRunLock(ctx, cfg.OutputDir)
	if err != nil {
		return err
	}

	defer func() {
		if releaseErr := lock.Release(); releaseErr != nil {
			logger.WarnKV(ctx, "Unable to release run lock", "error", releaseErr)
		}
	}()

	bc := newBuildContext(cfg, opts, id, time.Now())

	if actor, actorErr := common.DetectActor(); actorErr != nil {
		logger.WarnKV(ctx, "Unable to detect the user running the pipeline", "error", actorErr)
	} else {
		bc.Actor = actor.String()
	}

	var (
		recorder     metrics.Recorder = metrics.NoopRecorder{}
		promRecorder *metrics.PrometheusRecorder
	)

	if cfg.MetricsFile != "" {
		promRecorder = metrics.NewPrometheusRecorder(nil)
		recorder = promRecorder
	}

	autotools := builder.NewAutotools(runner)
	deps := Dependencies{
		Source:    source.NewGitProvider(),
		Builder:   autotools,
		Assembler: staging.NewAssembler(autotools),
		Packager:  packager.NewFPM(runner, cfg.FPM),
		Policy:    policy.NewTable(probe.NewHostTLSProbe(runner)),
		Recorder:  recorder,
		Runs:      state.NewFileRepository(filepath.Join(cfg.OutputDir, state.Filename)),
	}

	if cfg.Upload != nil {
		if deps.Publisher, err = artifact.NewObjectStorePublisher(cfg.Upload); err != nil {
			return err
		}
	}

	orchestrator, err := NewOrchestrator(productFromConfig(cfg), deps)
	if err != nil {
		return err
	}

	_, err = orchestrator.Execute(ctx, bc)

	if promRecorder != nil {
		if writeErr := promRecorder.WriteTextfile(cfg.MetricsFile); writeErr != nil {
			logger.WarnKV(ctx, "Unable to write metrics", "error", writeErr)
		}
	}

	return err
}

// applyOverrides copies command-line values over the settings and validates the result.
// Directories derived from an overridden parent are derived again.
func applyOverrides(cfg *config.Config, opts *Options) error {
	if opts.Repository != "" {
		cfg.Repository = opts.Repository
	}

	if opts.Ref != "" {
		cfg.Ref = opts.Ref
	}

	oldBuildDir := cfg.BuildDir
	derivedStaging := cfg.StagingDir == filepath.Join(oldBuildDir, "toor")

	if opts.SourceDir != "" && opts.SourceDir != cfg.SourceDir {
		if cfg.BuildDir == filepath.Join(cfg.SourceDir, "build") {
			cfg.BuildDir = ""
		}

		cfg.SourceDir = opts.SourceDir
	}

	if opts.BuildDir != "" {
		cfg.BuildDir = opts.BuildDir
	}

	if derivedStaging && cfg.BuildDir != oldBuildDir {
		cfg.StagingDir = ""
	}

	if opts.OutputDir != "" {
		cfg.OutputDir = opts.OutputDir
	}

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("validate settings: %w", err)
	}

	return nil
}

// platformDetector yields the raw OS identity of the build host.
type platformDetector interface {
	Detect(ctx context.Context) (probe.Raw, error)
}

// resolvePlatform uses the overrides when given and probes the host otherwise.
func resolvePlatform(ctx context.Context, detector platformDetector, opts *Options) (platform.ID, error) {
	rawOS, rawVersion := opts.OS, opts.OSVersion

	if rawOS == "" {
		raw, err := detector.Detect(ctx)
		if err != nil {
			return platform.ID{}, err
		}

		logger.InfoKV(ctx, "Detected build host", "os", raw.OSID, "version", raw.VersionID, "source", raw.Source)

		rawOS, rawVersion = raw.OSID, raw.VersionID
	}

	id, err := platform.Resolve(rawOS, rawVersion)
	if err != nil {
		return platform.ID{}, err
	}

	logger.InfoKV(ctx, "Resolved platform", "platform", id)

	return id, nil
}

func newBuildContext(cfg *config.Config, opts *Options, id platform.ID, now time.Time) *BuildContext {
	revision := opts.Revision
	if revision == "" {
		revision = DefaultRevision(now)
	}

	var mode Mode
	if opts.Prebuilt {
		mode = Prebuilt()
	}

	mode.IncludeBinding = !opts.WithoutBinding

	return &BuildContext{
		RunID:           uuid.NewString(),
		SourceDir:       cfg.SourceDir,
		BuildDir:        cfg.BuildDir,
		StagingRoot:     cfg.StagingDir,
		OutputDir:       cfg.OutputDir,
		RepoLocator:     cfg.Repository,
		Ref:             cfg.Ref,
		VersionOverride: opts.NominalVersion,
		Revision:        revision,
		Platform:        id,
		Architecture:    runtime.GOARCH,
		Mode:            mode,
	}
}

// DefaultRevision derives a package revision from a UTC timestamp.
func DefaultRevision(now time.Time) string {
	return defaultRevisionPrefix + now.UTC().Format(revisionLayout)
}

func productFromConfig(cfg *config.Config) Product {
	return Product{
		Name:        cfg.Name,
		Maintainer:  cfg.Maintainer,
		Vendor:      cfg.Vendor,
		URL:         cfg.URL,
		License:     cfg.License,
		Description: cfg.Description,
	}
}
