package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/oshokin/mesos-packager/internal/domain/platform"
	"github.com/oshokin/mesos-packager/internal/domain/policy"
	"github.com/oshokin/mesos-packager/internal/domain/vercmp"
)

var (
	// errVersionAlreadySet is returned when the nominal version is set a second time.
	errVersionAlreadySet = errors.New("nominal version is already set")
	// errVersionNotSet is returned when a decision is requested before the version is known.
	errVersionNotSet = errors.New("nominal version is not set")
	// errNoPolicy is returned when a decision is requested without a policy.
	errNoPolicy = errors.New("policy is not set")
)

// Decider derives the policy decision for a version on a platform.
type Decider interface {
	Decide(ctx context.Context, version vercmp.Nominal, id platform.ID) (*policy.Decision, error)
}

// Mode holds the switches that skip or add stages.
type Mode struct {
	// SkipCheckout leaves the source directory as it is.
	SkipCheckout bool
	// SkipBuild reuses the existing build output.
	SkipBuild bool
	// IncludeBinding produces the language binding package.
	IncludeBinding bool
}

// Prebuilt returns the mode used for already built trees.
func Prebuilt() Mode {
	return Mode{SkipCheckout: true, SkipBuild: true}
}

// BuildContext is the state threaded through one run.
type BuildContext struct {
	// RunID identifies the run.
	RunID string
	// Actor is user@host that started the run.
	Actor string
	// SourceDir is the source checkout.
	SourceDir string
	// BuildDir is the out-of-tree build directory.
	BuildDir string
	// StagingRoot is the package root.
	StagingRoot string
	// OutputDir receives the packages and the release manifest.
	OutputDir string
	// RepoLocator is the source repository.
	RepoLocator string
	// Ref is the requested branch, tag or commit.
	Ref string
	// ResolvedRef is the commit the checkout ended up at.
	ResolvedRef string
	// VersionOverride replaces the version declared by the source when set.
	VersionOverride string
	// Revision is the package revision.
	Revision string
	// Platform is the resolved build platform.
	Platform platform.ID
	// Architecture is the Go name of the target architecture, e.g. amd64.
	Architecture string
	// Mode holds the stage switches.
	Mode Mode

	nominal  vercmp.Nominal
	decision *policy.Decision
}

// NominalVersion returns the version, zero until resolved.
func (bc *BuildContext) NominalVersion() vercmp.Nominal {
	return bc.nominal
}

// SetNominalVersion records the version. It can be called once.
func (bc *BuildContext) SetNominalVersion(v vercmp.Nominal) error {
	if !bc.nominal.IsZero() {
		return fmt.Errorf("%w: %s", errVersionAlreadySet, bc.nominal)
	}

	if v.IsZero() {
		return fmt.Errorf("%w: empty version", vercmp.ErrInvalidVersion)
	}

	bc.nominal = v

	return nil
}

// Decision returns the policy decision, deriving it on first use.
// Callers get a copy; the cached decision cannot be changed.
func (bc *BuildContext) Decision(ctx context.Context, decider Decider) (*policy.Decision, error) {
	if bc.decision != nil {
		return bc.decision.Clone(), nil
	}

	if bc.nominal.IsZero() {
		return nil, errVersionNotSet
	}

	if decider == nil {
		return nil, errNoPolicy
	}

	decision, err := decider.Decide(ctx, bc.nominal, bc.Platform)
	if err != nil {
		return nil, err
	}

	bc.decision = decision.Clone()

	return decision, nil
}
