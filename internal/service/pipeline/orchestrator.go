package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oshokin/mesos-packager/internal/domain/platform"
	"github.com/oshokin/mesos-packager/internal/domain/policy"
	"github.com/oshokin/mesos-packager/internal/domain/vercmp"
	"github.com/oshokin/mesos-packager/internal/logger"
	"github.com/oshokin/mesos-packager/internal/metrics"
	"github.com/oshokin/mesos-packager/internal/repository/artifact"
	"github.com/oshokin/mesos-packager/internal/repository/source"
	"github.com/oshokin/mesos-packager/internal/repository/state"
	"github.com/oshokin/mesos-packager/internal/service/builder"
	"github.com/oshokin/mesos-packager/internal/service/common"
	"github.com/oshokin/mesos-packager/internal/service/packager"
	"github.com/oshokin/mesos-packager/internal/service/staging"
)

const (
	bindingPrefix      = "python-"
	bindingSitePackage = "usr/lib/python2.7/site-packages"
	bindingRootName    = "binding-toor"
	eggPattern         = "*.egg"

	outcomeSuccess = "success"
	outcomeFailed  = "failed"
)

var (
	// errNoBindingArtifacts is returned when the binding build left no eggs.
	errNoBindingArtifacts = errors.New("no language binding artifacts found")
	// errUnsafeCleanup is returned when removing the build directory would remove the sources.
	errUnsafeCleanup = errors.New("build directory contains the source directory")
	// errMissingDependency is returned when NewOrchestrator gets an incomplete Dependencies.
	errMissingDependency = errors.New("pipeline dependency is not set")
)

// Assembler populates a staging root.
type Assembler interface {
	Assemble(ctx context.Context, req staging.Request) (*staging.Tree, error)
}

// Product is the package metadata that does not change between runs.
type Product struct {
	Name        string
	Maintainer  string
	Vendor      string
	URL         string
	License     string
	Description string
}

// Dependencies are the collaborators driven by the Orchestrator.
type Dependencies struct {
	// Source checks out the sources.
	Source source.Provider
	// ReadVersion extracts the declared version from a checkout. Defaults to source.ReadDeclaredVersion.
	ReadVersion func(dir string) (vercmp.Nominal, error)
	// Builder compiles the sources.
	Builder builder.Builder
	// Assembler populates the staging root.
	Assembler Assembler
	// Packager produces package files.
	Packager packager.Packager
	// Policy derives the policy decision.
	Policy Decider
	// Publisher uploads the packages. Nil skips publishing.
	Publisher artifact.Publisher
	// Recorder receives stage metrics. Defaults to metrics.NoopRecorder.
	Recorder metrics.Recorder
	// Runs persists the run record. Nil disables it.
	Runs state.Repository
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// Result describes a finished or aborted run.
type Result struct {
	// Stages lists the stages that finished, in order.
	Stages []StageResult
	// Decision is the policy decision the run used.
	Decision *policy.Decision
	// Packages lists the produced package files.
	Packages []string
	// Manifest is the release manifest path, empty until a package exists.
	Manifest string
	// Published lists the uploaded object keys.
	Published []string
}

// Outcome returns the outcome of state, false when the stage did not finish.
func (r *Result) Outcome(s State) (Outcome, bool) {
	for _, sr := range r.Stages {
		if sr.State == s {
			return sr.Outcome, true
		}
	}

	return "", false
}

// Orchestrator sequences the pipeline stages.
type Orchestrator struct {
	product Product
	deps    Dependencies
}

type stage struct {
	state State
	run   func(ctx context.Context, bc *BuildContext, res *Result) (Outcome, error)
}

// NewOrchestrator validates deps and fills their defaults.
func NewOrchestrator(product Product, deps Dependencies) (*Orchestrator, error) {
	switch {
	case deps.Source == nil:
		return nil, fmt.Errorf("%w: source", errMissingDependency)
	case deps.Builder == nil:
		return nil, fmt.Errorf("%w: builder", errMissingDependency)
	case deps.Assembler == nil:
		return nil, fmt.Errorf("%w: assembler", errMissingDependency)
	case deps.Packager == nil:
		return nil, fmt.Errorf("%w: packager", errMissingDependency)
	case deps.Policy == nil:
		return nil, fmt.Errorf("%w: policy", errMissingDependency)
	}

	if deps.ReadVersion == nil {
		deps.ReadVersion = source.ReadDeclaredVersion
	}

	if deps.Recorder == nil {
		deps.Recorder = metrics.NoopRecorder{}
	}

	if deps.Now == nil {
		deps.Now = time.Now
	}

	return &Orchestrator{
		product: product,
		deps:    deps,
	}, nil
}

func (o *Orchestrator) stages() []stage {
	return []stage{
		{StateCheckout, o.checkout},
		{StateVersionResolved, o.resolveVersion},
		{StateCleaned, o.clean},
		{StateBuilt, o.build},
		{StateStaged, o.assemble},
		{StateSymlinked, o.symlink},
		{StatePackaged, o.pack},
		{StateBindingPackaged, o.packBinding},
		{StatePublished, o.publish},
	}
}

// Execute runs every stage in order. The first failing stage stops the run
// and is returned as a *StageError; the partial Result is returned with it.
func (o *Orchestrator) Execute(ctx context.Context, bc *BuildContext) (*Result, error) {
	ctx = logger.WithKV(logger.WithName(ctx, "pipeline"), "run_id", bc.RunID)

	started := o.deps.Now()
	res := &Result{}
	record := &state.Record{
		RunID:     bc.RunID,
		Actor:     bc.Actor,
		Platform:  bc.Platform.String(),
		Revision:  bc.Revision,
		State:     string(StateInit),
		StartedAt: started,
	}

	o.save(ctx, record)

	logger.InfoKV(ctx, "Starting pipeline",
		"platform", bc.Platform, "revision", bc.Revision,
		"skip_checkout", bc.Mode.SkipCheckout, "skip_build", bc.Mode.SkipBuild, "binding", bc.Mode.IncludeBinding)

	for _, s := range o.stages() {
		stageStarted := o.deps.Now()
		outcome, err := s.run(ctx, bc, res)
		elapsed := o.deps.Now().Sub(stageStarted)

		o.deps.Recorder.ObserveStageDuration(string(s.state), elapsed)

		if err != nil {
			o.deps.Recorder.IncStageResult(string(s.state), metrics.ResultFailed)
			o.deps.Recorder.IncRunOutcome(outcomeFailed)
			o.deps.Recorder.ObserveRunDuration(o.deps.Now().Sub(started))

			stageErr := &StageError{Stage: s.state, Err: err}

			record.FailedStage = string(s.state)
			record.Error = err.Error()
			o.sync(ctx, bc, res, record)

			logger.ErrorKV(ctx, "Stage failed", "stage", s.state, "error", err)

			return res, stageErr
		}

		res.Stages = append(res.Stages, StageResult{State: s.state, Outcome: outcome, Duration: elapsed})

		if outcome == OutcomeSkipped {
			o.deps.Recorder.IncStageResult(string(s.state), metrics.ResultSkipped)
			record.Skipped = append(record.Skipped, string(s.state))
		} else {
			o.deps.Recorder.IncStageResult(string(s.state), metrics.ResultSuccess)
			record.Completed = append(record.Completed, string(s.state))
		}

		record.State = string(s.state)
		o.sync(ctx, bc, res, record)

		logger.InfoKV(ctx, "Stage finished", "stage", s.state, "outcome", outcome, "duration", elapsed.Round(time.Millisecond))
	}

	o.deps.Recorder.IncRunOutcome(outcomeSuccess)
	o.deps.Recorder.ObserveRunDuration(o.deps.Now().Sub(started))

	record.State = string(StateDone)
	o.sync(ctx, bc, res, record)

	logger.InfoKV(ctx, "Pipeline finished", "packages", res.Packages)

	return res, nil
}

// sync copies run progress into the record and persists it.
func (o *Orchestrator) sync(ctx context.Context, bc *BuildContext, res *Result, record *state.Record) {
	record.Ref = bc.ResolvedRef
	record.Packages = append([]string(nil), res.Packages...)

	if v := bc.NominalVersion(); !v.IsZero() {
		record.Version = v.String()
	}

	o.save(ctx, record)
}

func (o *Orchestrator) save(ctx context.Context, record *state.Record) {
	if o.deps.Runs == nil {
		return
	}

	record.UpdatedAt = o.deps.Now()

	if err := o.deps.Runs.Save(ctx, record); err != nil {
		logger.WarnKV(ctx, "Unable to persist run record", "error", err)
	}
}

func (o *Orchestrator) checkout(ctx context.Context, bc *BuildContext, _ *Result) (Outcome, error) {
	if bc.Mode.SkipCheckout {
		logger.InfoKV(ctx, "Checkout disabled, using existing sources", "dir", bc.SourceDir)

		return OutcomeSkipped, nil
	}

	co, err := o.deps.Source.Checkout(ctx, bc.RepoLocator, bc.Ref, bc.SourceDir)
	if err != nil {
		return "", err
	}

	bc.ResolvedRef = co.Ref

	if co.Reused {
		return OutcomeSkipped, nil
	}

	return OutcomeCompleted, nil
}

func (o *Orchestrator) resolveVersion(ctx context.Context, bc *BuildContext, _ *Result) (Outcome, error) {
	var (
		version vercmp.Nominal
		err     error
		origin  = "override"
	)

	if bc.VersionOverride != "" {
		version, err = vercmp.ParseNominal(bc.VersionOverride)
	} else {
		origin = "source"
		version, err = o.deps.ReadVersion(bc.SourceDir)
	}

	if err != nil {
		return "", err
	}

	if err = bc.SetNominalVersion(version); err != nil {
		return "", err
	}

	logger.InfoKV(ctx, "Nominal version resolved", "version", version, "from", origin)

	return OutcomeCompleted, nil
}

func (o *Orchestrator) clean(ctx context.Context, bc *BuildContext, res *Result) (Outcome, error) {
	decision, err := bc.Decision(ctx, o.deps.Policy)
	if err != nil {
		return "", err
	}

	res.Decision = decision

	stale, err := o.outputFiles(bc, decision)
	if err != nil {
		return "", err
	}

	for _, path := range stale {
		if err = os.Remove(path); err == nil {
			logger.InfoKV(ctx, "Removed stale artifact", "path", path)
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("remove stale artifact: %w", err)
		}
	}

	if bc.Mode.SkipBuild {
		logger.InfoKV(ctx, "Prebuilt mode, keeping build output", "build_dir", bc.BuildDir, "staging_root", bc.StagingRoot)

		return OutcomeCompleted, nil
	}

	if err = checkCleanupSafe(bc.BuildDir, bc.SourceDir); err != nil {
		return "", err
	}

	for _, dir := range []string{bc.StagingRoot, bc.BuildDir} {
		if err = os.RemoveAll(dir); err != nil {
			return "", fmt.Errorf("remove %s: %w", dir, err)
		}
	}

	logger.InfoKV(ctx, "Removed previous build output", "build_dir", bc.BuildDir, "staging_root", bc.StagingRoot)

	return OutcomeCompleted, nil
}

func (o *Orchestrator) build(ctx context.Context, bc *BuildContext, _ *Result) (Outcome, error) {
	if bc.Mode.SkipBuild {
		return OutcomeSkipped, nil
	}

	decision, err := bc.Decision(ctx, o.deps.Policy)
	if err != nil {
		return "", err
	}

	if err = o.deps.Builder.Build(ctx, bc.SourceDir, bc.BuildDir, decision.BuildFlags); err != nil {
		return "", err
	}

	return OutcomeCompleted, nil
}

func (o *Orchestrator) assemble(ctx context.Context, bc *BuildContext, _ *Result) (Outcome, error) {
	decision, err := bc.Decision(ctx, o.deps.Policy)
	if err != nil {
		return "", err
	}

	_, err = o.deps.Assembler.Assemble(ctx, staging.Request{
		Name:      o.product.Name,
		SourceDir: bc.SourceDir,
		BuildDir:  bc.BuildDir,
		Root:      bc.StagingRoot,
		Decision:  decision,
	})
	if err != nil {
		return "", err
	}

	return OutcomeCompleted, nil
}

func (o *Orchestrator) symlink(ctx context.Context, bc *BuildContext, _ *Result) (Outcome, error) {
	libraryCreated, err := staging.LinkSharedLibrary(bc.StagingRoot, o.product.Name, bc.NominalVersion().Raw)
	if err != nil {
		return "", err
	}

	compatCreated, err := staging.LinkCompatLibDir(bc.StagingRoot)
	if err != nil {
		return "", err
	}

	if !libraryCreated && !compatCreated {
		logger.Info(ctx, "Library links already present")

		return OutcomeSkipped, nil
	}

	return OutcomeCompleted, nil
}

func (o *Orchestrator) pack(ctx context.Context, bc *BuildContext, res *Result) (Outcome, error) {
	decision, err := bc.Decision(ctx, o.deps.Policy)
	if err != nil {
		return "", err
	}

	meta, err := o.metadata(bc, decision, o.product.Name)
	if err != nil {
		return "", err
	}

	meta.Dependencies = decision.Dependencies

	if meta.Scripts.AfterInstall, err = staging.AfterInstallScript(o.product.Name, decision.Init); err != nil {
		return "", err
	}

	path, err := o.deps.Packager.Package(ctx, bc.StagingRoot, bc.OutputDir, meta)
	if err != nil {
		return "", err
	}

	res.Packages = append(res.Packages, path)

	if err = o.writeManifest(bc, decision, res); err != nil {
		return "", err
	}

	return OutcomeCompleted, nil
}

func (o *Orchestrator) packBinding(ctx context.Context, bc *BuildContext, res *Result) (Outcome, error) {
	if !bc.Mode.IncludeBinding {
		return OutcomeSkipped, nil
	}

	decision, err := bc.Decision(ctx, o.deps.Policy)
	if err != nil {
		return "", err
	}

	distDir := filepath.Join(bc.BuildDir, filepath.FromSlash(decision.BindingDistDir))

	eggs, err := filepath.Glob(filepath.Join(distDir, eggPattern))
	if err != nil {
		return "", fmt.Errorf("find binding artifacts: %w", err)
	}

	if len(eggs) == 0 {
		return "", fmt.Errorf("%w in %s", errNoBindingArtifacts, distDir)
	}

	root := filepath.Join(bc.BuildDir, bindingRootName)
	if err = os.RemoveAll(root); err != nil {
		return "", fmt.Errorf("remove %s: %w", root, err)
	}

	sitePackages := filepath.Join(root, filepath.FromSlash(bindingSitePackage))

	for _, egg := range eggs {
		var data []byte

		if data, err = os.ReadFile(filepath.Clean(egg)); err != nil {
			return "", fmt.Errorf("read %s: %w", egg, err)
		}

		if err = common.InstallFile(filepath.Join(sitePackages, filepath.Base(egg)), data, common.RegularFileMode); err != nil {
			return "", err
		}
	}

	logger.InfoKV(ctx, "Staged language binding", "eggs", len(eggs), "root", root)

	meta, err := o.metadata(bc, decision, bindingPrefix+o.product.Name)
	if err != nil {
		return "", err
	}

	meta.Dependencies = []string{o.product.Name}

	path, err := o.deps.Packager.Package(ctx, root, bc.OutputDir, meta)
	if err != nil {
		return "", err
	}

	res.Packages = append(res.Packages, path)

	if err = o.writeManifest(bc, decision, res); err != nil {
		return "", err
	}

	return OutcomeCompleted, nil
}

func (o *Orchestrator) publish(ctx context.Context, _ *BuildContext, res *Result) (Outcome, error) {
	if o.deps.Publisher == nil {
		logger.InfoKV(ctx, "Upload is not configured, copy the files manually",
			"files", strings.Join(append(append([]string(nil), res.Packages...), res.Manifest), ", "))

		return OutcomeSkipped, nil
	}

	files := append(append([]string(nil), res.Packages...), res.Manifest)

	keys, err := o.deps.Publisher.Publish(ctx, files)
	res.Published = keys

	if err != nil {
		return "", err
	}

	return OutcomeCompleted, nil
}

// metadata fills the fields shared by every package of the run.
func (o *Orchestrator) metadata(bc *BuildContext, decision *policy.Decision, name string) (packager.Metadata, error) {
	arch, err := platform.Architecture(decision.Format, bc.Architecture)
	if err != nil {
		return packager.Metadata{}, err
	}

	return packager.Metadata{
		Name:        name,
		Version:     bc.NominalVersion().Raw,
		Revision:    bc.Revision,
		Arch:        arch,
		Format:      decision.Format,
		Maintainer:  o.product.Maintainer,
		Vendor:      o.product.Vendor,
		URL:         o.product.URL,
		License:     o.product.License,
		Description: o.product.Description,
	}, nil
}

// outputFiles lists every file this run may write to the output directory.
func (o *Orchestrator) outputFiles(bc *BuildContext, decision *policy.Decision) ([]string, error) {
	names := []string{o.product.Name, bindingPrefix + o.product.Name}
	files := make([]string, 0, len(names)+1)

	for _, name := range names {
		meta, err := o.metadata(bc, decision, name)
		if err != nil {
			return nil, err
		}

		fileName, err := packager.FileName(meta)
		if err != nil {
			return nil, err
		}

		files = append(files, filepath.Join(bc.OutputDir, fileName))
	}

	manifest := packager.ManifestFileName(o.product.Name, bc.NominalVersion().Raw, bc.Revision)

	return append(files, filepath.Join(bc.OutputDir, manifest)), nil
}

func (o *Orchestrator) writeManifest(bc *BuildContext, decision *policy.Decision, res *Result) error {
	manifest := packager.NewManifest()
	manifest.RunID = bc.RunID
	manifest.Name = o.product.Name
	manifest.Version = bc.NominalVersion().Raw
	manifest.Revision = bc.Revision
	manifest.Platform = bc.Platform.String()
	manifest.Format = string(decision.Format)
	manifest.Dependencies = decision.Dependencies
	manifest.CreatedAt = o.deps.Now().UTC()

	arch, err := platform.Architecture(decision.Format, bc.Architecture)
	if err != nil {
		return err
	}

	manifest.Arch = arch

	for _, path := range res.Packages {
		if err = manifest.Add(path); err != nil {
			return err
		}
	}

	path := filepath.Join(bc.OutputDir, packager.ManifestFileName(o.product.Name, bc.NominalVersion().Raw, bc.Revision))
	if err = manifest.Save(path); err != nil {
		return err
	}

	res.Manifest = path

	return nil
}

// checkCleanupSafe refuses to remove a build directory that holds the sources.
func checkCleanupSafe(buildDir, sourceDir string) error {
	build, err := filepath.Abs(buildDir)
	if err != nil {
		return fmt.Errorf("resolve build directory: %w", err)
	}

	src, err := filepath.Abs(sourceDir)
	if err != nil {
		return fmt.Errorf("resolve source directory: %w", err)
	}

	rel, err := filepath.Rel(build, src)
	if err != nil {
		return nil //nolint:nilerr // Unrelated paths, e.g. different volumes.
	}

	if rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))) {
		return fmt.Errorf("%w: %s", errUnsafeCleanup, buildDir)
	}

	return nil
}
