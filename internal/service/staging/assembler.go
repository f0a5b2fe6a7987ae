package staging

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/oshokin/mesos-packager/internal/domain/policy"
	"github.com/oshokin/mesos-packager/internal/logger"
	"github.com/oshokin/mesos-packager/internal/service/common"
)

const (
	// defaultQuorum is the master quorum size for a single-master install.
	defaultQuorum = "1"

	initWrapperSuffix = "-init-wrapper"
)

var (
	// errNoDecision is returned when Assemble gets no policy decision.
	errNoDecision = errors.New("policy decision is not set")
	// errIncompleteRequest is returned when a required path or name is empty.
	errIncompleteRequest = errors.New("staging request is incomplete")
)

//nolint:gochecknoglobals // Read-only list.
var documentationFiles = []string{"LICENSE", "NOTICE", "README.md"}

// Installer copies build output into a destination root.
type Installer interface {
	Install(ctx context.Context, buildDir, destDir string) error
}

// Request describes one staging run.
type Request struct {
	// Name is the product name used in paths.
	Name string
	// SourceDir is the source checkout, read for documentation files.
	SourceDir string
	// BuildDir holds the build output to install.
	BuildDir string
	// Root is the staging root to populate.
	Root string
	// Decision is the policy decision for this run.
	Decision *policy.Decision
}

// Tree describes a populated staging root.
type Tree struct {
	// Root is the staging root directory.
	Root string
	// Files lists every file the assembler wrote itself, relative to Root.
	Files []string
}

// Assembler builds staging trees.
type Assembler struct {
	installer Installer
}

// NewAssembler creates an assembler installing build output with installer.
func NewAssembler(installer Installer) *Assembler {
	return &Assembler{installer: installer}
}

// Assemble populates req.Root. The root is created when missing; removing a
// previous tree is up to the caller.
func (a *Assembler) Assemble(ctx context.Context, req Request) (*Tree, error) {
	if req.Decision == nil {
		return nil, errNoDecision
	}

	if req.Name == "" || req.BuildDir == "" || req.Root == "" {
		return nil, errIncompleteRequest
	}

	initFiles, err := InitFiles(req.Decision.Init, req.Name)
	if err != nil {
		return nil, err
	}

	ctx = logger.WithName(ctx, "staging")
	tree := &Tree{Root: req.Root}

	logger.InfoKV(ctx, "Creating staging skeleton", "root", req.Root)

	for _, dir := range Skeleton(req.Name) {
		if err = os.MkdirAll(filepath.Join(req.Root, filepath.FromSlash(dir)), common.DirectoryMode); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}

	if err = a.installer.Install(ctx, req.BuildDir, req.Root); err != nil {
		return nil, fmt.Errorf("install build output: %w", err)
	}

	if err = tree.copyDocumentation(ctx, req); err != nil {
		return nil, err
	}

	if err = tree.writeDefaults(req); err != nil {
		return nil, err
	}

	if req.Decision.WriteMasterDefaults {
		if err = tree.writeMasterDefaults(req.Name); err != nil {
			return nil, err
		}
	}

	for _, file := range initFiles {
		var data []byte

		if data, err = render(file.template, assetData{Name: req.Name, Role: file.Role}); err != nil {
			return nil, err
		}

		if err = tree.write(file.Path, data, file.Mode); err != nil {
			return nil, err
		}
	}

	logger.InfoKV(ctx, "Staging tree assembled", "root", req.Root, "init", req.Decision.Init, "files", len(tree.Files))

	return tree, nil
}

// Skeleton lists the directories every staging tree has, relative to the root.
func Skeleton(name string) []string {
	return []string{
		"etc/default",
		"etc/" + name,
		"etc/" + name + "-master",
		"etc/" + name + "-slave",
		"var/log/" + name,
		"var/lib/" + name,
		"usr/bin",
		"usr/sbin",
		"usr/lib",
		"usr/libexec/" + name,
		"usr/share/doc/" + name,
	}
}

func (t *Tree) copyDocumentation(ctx context.Context, req Request) error {
	if req.SourceDir == "" {
		return nil
	}

	for _, name := range documentationFiles {
		data, err := os.ReadFile(filepath.Join(req.SourceDir, name))
		if errors.Is(err, os.ErrNotExist) {
			logger.WarnKV(ctx, "Documentation file not found", "file", name)

			continue
		}

		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}

		if err = t.write("usr/share/doc/"+req.Name+"/"+name, data, common.RegularFileMode); err != nil {
			return err
		}
	}

	return nil
}

func (t *Tree) writeDefaults(req Request) error {
	files := []struct {
		path     string
		template string
		mode     os.FileMode
	}{
		{"etc/default/" + req.Name, "default.tmpl", common.RegularFileMode},
		{"etc/default/" + req.Name + "-master", "default-master.tmpl", common.RegularFileMode},
		{"etc/default/" + req.Name + "-slave", "default-slave.tmpl", common.RegularFileMode},
		{"etc/" + req.Name + "/zk", "zk.tmpl", common.RegularFileMode},
		{"usr/bin/" + req.Name + initWrapperSuffix, "init-wrapper.tmpl", common.ExecutableFileMode},
	}

	for _, file := range files {
		data, err := render(file.template, assetData{Name: req.Name})
		if err != nil {
			return err
		}

		if err = t.write(file.path, data, file.mode); err != nil {
			return err
		}
	}

	return nil
}

func (t *Tree) writeMasterDefaults(name string) error {
	dir := "etc/" + name + "-master/"

	if err := t.write(dir+"quorum", []byte(defaultQuorum+"\n"), common.RegularFileMode); err != nil {
		return err
	}

	return t.write(dir+"work_dir", []byte("/var/lib/"+name+"\n"), common.RegularFileMode)
}

func (t *Tree) write(rel string, data []byte, mode os.FileMode) error {
	if err := common.InstallFile(filepath.Join(t.Root, filepath.FromSlash(rel)), data, mode); err != nil {
		return err
	}

	t.Files = append(t.Files, rel)

	return nil
}
