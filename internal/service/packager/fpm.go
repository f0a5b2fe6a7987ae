package packager

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/oshokin/mesos-packager/internal/domain/platform"
	"github.com/oshokin/mesos-packager/internal/logger"
	"github.com/oshokin/mesos-packager/internal/service/common"
)

// Scripts are package maintainer scripts.
type Scripts struct {
	// AfterInstall runs after the package is installed. Empty means none.
	AfterInstall []byte
}

// Metadata describes one package.
type Metadata struct {
	// Name is the package name.
	Name string
	// Version is the upstream version.
	Version string
	// Revision is the package iteration.
	Revision string
	// Arch is the architecture in the format's own spelling.
	Arch string
	// Format selects deb or rpm.
	Format platform.PackageFormat
	// Dependencies are runtime package dependencies.
	Dependencies []string
	// Scripts are the maintainer scripts.
	Scripts Scripts
	// Maintainer is the package maintainer.
	Maintainer string
	// Vendor is the package vendor.
	Vendor string
	// URL is the project homepage.
	URL string
	// License is the project license.
	License string
	// Description is the package summary.
	Description string
}

// Packager builds a package file from a staging root.
type Packager interface {
	// Package packs stagingDir into outputDir and returns the package path.
	Package(ctx context.Context, stagingDir, outputDir string, meta Metadata) (string, error)
}

var (
	// errIncompleteMetadata is returned when a field used in the file name is empty.
	errIncompleteMetadata = errors.New("package metadata is incomplete")
	// errUnknownFormat is returned for a format other than deb or rpm.
	errUnknownFormat = errors.New("unknown package format")
	// errPackageNotProduced is returned when fpm exits cleanly but leaves no file.
	errPackageNotProduced = errors.New("package file was not produced")
)

// FileName returns the conventional package file name for the format.
func FileName(meta Metadata) (string, error) {
	if meta.Name == "" || meta.Version == "" || meta.Revision == "" || meta.Arch == "" {
		return "", errIncompleteMetadata
	}

	switch meta.Format {
	case platform.Deb:
		return fmt.Sprintf("%s_%s-%s_%s.deb", meta.Name, meta.Version, meta.Revision, meta.Arch), nil
	case platform.RPM:
		return fmt.Sprintf("%s-%s-%s.%s.rpm", meta.Name, meta.Version, meta.Revision, meta.Arch), nil
	default:
		return "", fmt.Errorf("%w: %q", errUnknownFormat, meta.Format)
	}
}

// FPM packages with the fpm tool.
type FPM struct {
	runner     common.CommandRunner
	executable string
}

// NewFPM creates a packager running executable through runner.
func NewFPM(runner common.CommandRunner, executable string) *FPM {
	return &FPM{
		runner:     runner,
		executable: executable,
	}
}

// Package runs fpm over stagingDir and returns the produced file.
func (f *FPM) Package(ctx context.Context, stagingDir, outputDir string, meta Metadata) (string, error) {
	name, err := FileName(meta)
	if err != nil {
		return "", err
	}

	ctx = logger.WithName(ctx, "packager")

	// fpm runs inside outputDir, so a relative staging root would resolve against it.
	stagingDir, err = filepath.Abs(stagingDir)
	if err != nil {
		return "", fmt.Errorf("resolve staging directory: %w", err)
	}

	outputDir, err = filepath.Abs(outputDir)
	if err != nil {
		return "", fmt.Errorf("resolve output directory: %w", err)
	}

	if err = os.MkdirAll(outputDir, common.DirectoryMode); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	output := filepath.Join(outputDir, name)

	var scriptDir string

	if len(meta.Scripts.AfterInstall) > 0 {
		if scriptDir, err = os.MkdirTemp("", meta.Name+"-scripts-"); err != nil {
			return "", fmt.Errorf("create script directory: %w", err)
		}

		defer func() {
			_ = os.RemoveAll(scriptDir)
		}()

		err = os.WriteFile(filepath.Join(scriptDir, "after-install"), meta.Scripts.AfterInstall, common.ExecutableFileMode)
		if err != nil {
			return "", fmt.Errorf("write after-install script: %w", err)
		}
	}

	logger.InfoKV(ctx, "Packaging", "format", meta.Format, "package", name, "dependencies", meta.Dependencies)

	if err = f.runner.Run(ctx, outputDir, f.executable, Arguments(stagingDir, output, scriptDir, meta)...); err != nil {
		return "", fmt.Errorf("fpm: %w", err)
	}

	if _, err = os.Stat(output); err != nil {
		return "", fmt.Errorf("%w: %s", errPackageNotProduced, output)
	}

	return output, nil
}

// Arguments renders the fpm command line. scriptDir holds the after-install
// script, empty when there is none.
func Arguments(stagingDir, output, scriptDir string, meta Metadata) []string {
	args := []string{
		"-s", "dir",
		"-t", string(meta.Format),
		"-C", stagingDir,
		"-n", meta.Name,
		"-v", meta.Version,
		"--iteration", meta.Revision,
		"-a", meta.Arch,
		"-p", output,
	}

	for _, dep := range meta.Dependencies {
		args = append(args, "-d", dep)
	}

	if scriptDir != "" {
		args = append(args, "--after-install", filepath.Join(scriptDir, "after-install"))
	}

	optional := []struct {
		flag  string
		value string
	}{
		{"--url", meta.URL},
		{"--license", meta.License},
		{"--vendor", meta.Vendor},
		{"-m", meta.Maintainer},
		{"--description", meta.Description},
	}

	for _, opt := range optional {
		if opt.value != "" {
			args = append(args, opt.flag, opt.value)
		}
	}

	return append(args, ".")
}
