package source

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/oshokin/mesos-packager/internal/logger"
)

// Checkout is the result of a checkout.
type Checkout struct {
	// Dir is the local source directory.
	Dir string
	// Ref is the resolved commit hash, empty when it cannot be read.
	Ref string
	// Reused is true when the directory already existed and nothing was fetched.
	Reused bool
}

// Provider yields a local source directory for a repository locator and ref.
type Provider interface {
	Checkout(ctx context.Context, locator, ref, dir string) (*Checkout, error)
}

var (
	// errLocatorRequired is returned when a clone is needed but no locator is set.
	errLocatorRequired = errors.New("repository locator must be provided")
	// errUnknownRef is returned when a ref is neither a branch, a tag nor a commit.
	errUnknownRef = errors.New("unknown ref")
)

// GitProvider checks out sources with go-git.
type GitProvider struct{}

// NewGitProvider creates a GitProvider.
func NewGitProvider() *GitProvider {
	return &GitProvider{}
}

// Checkout clones locator into dir and checks out ref.
// When dir already exists it is left unchanged and no network access happens.
// A failed clone removes dir again.
func (p *GitProvider) Checkout(ctx context.Context, locator, ref, dir string) (*Checkout, error) {
	if _, err := os.Stat(dir); err == nil {
		head := readHead(dir)
		logger.InfoKV(ctx, "Source directory exists, skipping checkout", "dir", dir, "head", head)

		return &Checkout{Dir: dir, Ref: head, Reused: true}, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("stat source directory: %w", err)
	}

	if locator == "" {
		return nil, errLocatorRequired
	}

	logger.InfoKV(ctx, "Cloning repository", "url", locator, "ref", ref, "dir", dir)

	hash, err := clone(ctx, locator, ref, dir)
	if err != nil {
		// A half-prepared directory would be reused as-is by the next run.
		if removeErr := os.RemoveAll(dir); removeErr != nil {
			logger.WarnKV(ctx, "Unable to remove failed checkout", "dir", dir, "error", removeErr)
		}

		return nil, err
	}

	logger.InfoKV(ctx, "Repository checked out", "commit", hash.String())

	return &Checkout{Dir: dir, Ref: hash.String()}, nil
}

// clone fetches locator into dir and moves the worktree to ref.
func clone(ctx context.Context, locator, ref, dir string) (plumbing.Hash, error) {
	repository, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL: locator,
	})
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("clone %s: %w", locator, err)
	}

	hash, err := resolveRef(repository, ref)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	worktree, err := repository.Worktree()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("open worktree: %w", err)
	}

	if err = worktree.Checkout(&git.CheckoutOptions{Hash: hash, Force: true}); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("checkout %s: %w", hash, err)
	}

	return hash, nil
}

// resolveRef finds ref as a remote branch, a tag, or any revision go-git understands.
// An empty ref resolves to HEAD.
func resolveRef(repository *git.Repository, ref string) (plumbing.Hash, error) {
	if ref == "" {
		head, err := repository.Head()
		if err != nil {
			return plumbing.ZeroHash, fmt.Errorf("read HEAD: %w", err)
		}

		return head.Hash(), nil
	}

	candidates := []plumbing.Revision{
		plumbing.Revision(plumbing.NewRemoteReferenceName("origin", ref)),
		plumbing.Revision(plumbing.NewTagReferenceName(ref)),
		plumbing.Revision(ref),
	}

	for _, candidate := range candidates {
		hash, err := repository.ResolveRevision(candidate)
		if err == nil {
			return *hash, nil
		}
	}

	return plumbing.ZeroHash, fmt.Errorf("%w: %q", errUnknownRef, ref)
}

// readHead returns the HEAD commit of an existing checkout, or "" for non-git directories.
func readHead(dir string) string {
	repository, err := git.PlainOpen(dir)
	if err != nil {
		return ""
	}

	head, err := repository.Head()
	if err != nil {
		return ""
	}

	return head.Hash().String()
}
