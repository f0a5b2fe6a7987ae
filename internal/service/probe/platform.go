package probe

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/joho/godotenv"

	"github.com/oshokin/mesos-packager/internal/domain/platform"
	"github.com/oshokin/mesos-packager/internal/logger"
	"github.com/oshokin/mesos-packager/internal/service/common"
)

// Raw is an operating system identity before normalization.
type Raw struct {
	// OSID is the distribution name or id, e.g. "centos" or "CentOS".
	OSID string
	// VersionID is the distribution version, e.g. "6.5".
	VersionID string
	// Source names where the identity came from.
	Source string
}

// Detector finds the OS identity of the build host.
type Detector struct {
	// root is the filesystem root descriptor files are read from.
	root string
	// goos selects the vendor tool.
	goos string
	// runner executes vendor tools.
	runner common.CommandRunner
}

// DetectorOption configures a Detector.
type DetectorOption func(*Detector)

// WithRoot reads descriptor files below root instead of "/".
func WithRoot(root string) DetectorOption {
	return func(d *Detector) {
		d.root = root
	}
}

// WithGOOS overrides the operating system used to pick the vendor tool.
func WithGOOS(goos string) DetectorOption {
	return func(d *Detector) {
		d.goos = goos
	}
}

// NewDetector creates a Detector for the running host.
func NewDetector(runner common.CommandRunner, opts ...DetectorOption) *Detector {
	d := &Detector{
		root:   "/",
		goos:   runtime.GOOS,
		runner: runner,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// releaseLine matches "CentOS release 6.5 (Final)" and "Red Hat Enterprise Linux Server release 7.1 (Maipo)".
var releaseLine = regexp.MustCompile(`^(.+?)\s+release\s+([0-9][0-9.]*)`)

// releaseFiles are consulted in order after os-release.
//
//nolint:gochecknoglobals // Read-only lookup table.
var releaseFiles = []string{
	"etc/redhat-release",
	"etc/centos-release",
	"etc/fedora-release",
	"etc/system-release",
}

// Detect returns the first identity found in os-release, release files, or vendor tools.
func (d *Detector) Detect(ctx context.Context) (Raw, error) {
	sources := []func(context.Context) (Raw, bool){
		d.fromOSRelease,
		d.fromReleaseFiles,
		d.fromVendorTool,
	}

	for _, source := range sources {
		raw, ok := source(ctx)
		if !ok {
			continue
		}

		logger.InfoKV(ctx, "Detected operating system",
			"os", raw.OSID, "version", raw.VersionID, "source", raw.Source)

		return raw, nil
	}

	return Raw{}, fmt.Errorf("%w: no os-release, release file or vendor tool answered", platform.ErrUnresolvedPlatform)
}

// fromOSRelease reads ID and VERSION_ID from the os-release descriptor.
func (d *Detector) fromOSRelease(ctx context.Context) (Raw, bool) {
	for _, name := range []string{"etc/os-release", "usr/lib/os-release"} {
		path := filepath.Join(d.root, name)

		values, err := godotenv.Read(path)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				logger.DebugKV(ctx, "Unreadable os-release", "path", path, "error", err)
			}

			continue
		}

		if values["ID"] == "" {
			continue
		}

		return Raw{OSID: values["ID"], VersionID: values["VERSION_ID"], Source: path}, true
	}

	return Raw{}, false
}

// fromReleaseFiles parses "<name> release <version>" files and /etc/debian_version.
func (d *Detector) fromReleaseFiles(_ context.Context) (Raw, bool) {
	for _, name := range releaseFiles {
		path := filepath.Join(d.root, name)

		line, ok := firstLine(path)
		if !ok {
			continue
		}

		if m := releaseLine.FindStringSubmatch(line); m != nil {
			return Raw{OSID: m[1], VersionID: m[2], Source: path}, true
		}
	}

	path := filepath.Join(d.root, "etc/debian_version")

	// Testing and unstable carry codenames such as "jessie/sid".
	if line, ok := firstLine(path); ok && line != "" && line[0] >= '0' && line[0] <= '9' {
		return Raw{OSID: string(platform.Debian), VersionID: line, Source: path}, true
	}

	return Raw{}, false
}

// fromVendorTool asks sw_vers on macOS and lsb_release elsewhere.
func (d *Detector) fromVendorTool(ctx context.Context) (Raw, bool) {
	if d.runner == nil {
		return Raw{}, false
	}

	tool, nameArgs, versionArgs := "lsb_release", []string{"-si"}, []string{"-sr"}
	if d.goos == "darwin" {
		tool, nameArgs, versionArgs = "sw_vers", []string{"-productName"}, []string{"-productVersion"}
	}

	name, err := d.runner.Output(ctx, "", tool, nameArgs...)
	if err != nil {
		logger.DebugKV(ctx, "Vendor tool unavailable", "tool", tool, "error", err)
		return Raw{}, false
	}

	version, err := d.runner.Output(ctx, "", tool, versionArgs...)
	if err != nil {
		logger.DebugKV(ctx, "Vendor tool unavailable", "tool", tool, "error", err)
		return Raw{}, false
	}

	osID := strings.TrimSpace(string(name))
	if osID == "" {
		return Raw{}, false
	}

	return Raw{OSID: osID, VersionID: strings.TrimSpace(string(version)), Source: tool}, true
}

// firstLine returns the trimmed first line of a file.
func firstLine(path string) (string, bool) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return "", false
	}

	scanner := bufio.NewScanner(bytes.NewReader(contents))
	if !scanner.Scan() {
		return "", false
	}

	return strings.TrimSpace(scanner.Text()), true
}
