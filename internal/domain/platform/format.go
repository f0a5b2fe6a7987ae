package platform

import "fmt"

// PackageFormat is the native package format of a platform.
type PackageFormat string

// Supported package formats.
const (
	Deb PackageFormat = "deb"
	RPM PackageFormat = "rpm"
)

// FormatFor returns the package format for a family.
func FormatFor(family Family) (PackageFormat, error) {
	switch family {
	case Ubuntu, Debian:
		return Deb, nil
	case CentOS, RedHat, Fedora:
		return RPM, nil
	default:
		return "", fmt.Errorf("%w: no package format for %q", ErrUnsupportedPlatform, family)
	}
}

// archNames maps GOARCH values to the naming each package format uses.
//
//nolint:gochecknoglobals // Read-only lookup table.
var archNames = map[PackageFormat]map[string]string{
	Deb: {
		"amd64": "amd64",
		"386":   "i386",
		"arm64": "arm64",
		"arm":   "armhf",
	},
	RPM: {
		"amd64": "x86_64",
		"386":   "i686",
		"arm64": "aarch64",
		"arm":   "armv7hl",
	},
}

// Architecture converts a GOARCH value into the architecture name of the package format.
func Architecture(format PackageFormat, goarch string) (string, error) {
	names, ok := archNames[format]
	if !ok {
		return "", fmt.Errorf("%w: unknown package format %q", ErrUnsupportedPlatform, format)
	}

	arch, ok := names[goarch]
	if !ok {
		return "", fmt.Errorf("%w: architecture %q for %s", ErrUnsupportedPlatform, goarch, format)
	}

	return arch, nil
}
