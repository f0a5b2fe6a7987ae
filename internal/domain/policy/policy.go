package policy

import (
	"context"
	"errors"
	"fmt"

	"github.com/oshokin/mesos-packager/internal/domain/platform"
	"github.com/oshokin/mesos-packager/internal/domain/vercmp"
)

// Version thresholds.
//
//nolint:gochecknoglobals // Constant thresholds; Spec is a slice and cannot be const.
var (
	// NativeBindingLayout is the first version building the binding under src/python/native.
	NativeBindingLayout = vercmp.MustParse("0.18.0")
	// MasterDefaults is the first version shipping quorum and work_dir defaults.
	MasterDefaults = vercmp.MustParse("0.19.0")
	// OptimizedBuild is the first version built with --enable-optimize.
	OptimizedBuild = vercmp.MustParse("0.21.0")
	// SubversionRuntime is the first version linking against the Subversion libraries.
	SubversionRuntime = vercmp.MustParse("0.21.0")
)

const (
	legacyBindingDistDir = "src/python/dist"
	nativeBindingDistDir = "src/python/native/dist"
	optimizeFlag         = "--enable-optimize"
)

var (
	// errNoProbe is returned when a Table is built without a TLS probe.
	errNoProbe = errors.New("tls probe is not set")
	// errUnknownTLSBackend is returned for a backend outside TLSBackends.
	errUnknownTLSBackend = errors.New("unknown tls backend")
)

//nolint:gochecknoglobals // Read-only lookup tables.
var (
	baseFlags = []string{
		"--prefix=/usr",
		"--sysconfdir=/etc",
		"--localstatedir=/var",
	}

	baseDependencies = map[platform.PackageFormat][]string{
		platform.Deb: {"java-runtime-headless", "libsasl2-modules"},
		platform.RPM: {"java", "cyrus-sasl-md5"},
	}

	subversionDependency = map[platform.PackageFormat]string{
		platform.Deb: "libsvn1",
		platform.RPM: "subversion",
	}

	curlDependency = map[platform.PackageFormat]map[TLSBackend]string{
		platform.Deb: {
			TLSOpenSSL: "libcurl3",
			TLSNSS:     "libcurl3-nss",
			TLSGnuTLS:  "libcurl3-gnutls",
		},
		platform.RPM: {
			TLSOpenSSL: "libcurl-openssl",
			TLSNSS:     "libcurl",
			TLSGnuTLS:  "libcurl-gnutls",
		},
	}
)

// Table applies the rules with the TLS backend taken from the build host.
type Table struct {
	probe TLSProbe
}

// NewTable creates a Table using probe for the host-dependent input.
func NewTable(probe TLSProbe) *Table {
	return &Table{probe: probe}
}

// Decide probes the TLS backend for the platform's format and evaluates the rules.
func (t *Table) Decide(ctx context.Context, version vercmp.Nominal, id platform.ID) (*Decision, error) {
	if t == nil || t.probe == nil {
		return nil, errNoProbe
	}

	format, err := platform.FormatFor(id.Family)
	if err != nil {
		return nil, err
	}

	backend, err := t.probe.DetectTLSBackend(ctx, format)
	if err != nil {
		return nil, fmt.Errorf("detect tls backend: %w", err)
	}

	return Decide(version, id, backend)
}

// Decide evaluates the packaging rules. It has no side effects.
func Decide(version vercmp.Nominal, id platform.ID, backend TLSBackend) (*Decision, error) {
	if version.IsZero() {
		return nil, fmt.Errorf("%w: nominal version is not set", vercmp.ErrInvalidVersion)
	}

	format, err := platform.FormatFor(id.Family)
	if err != nil {
		return nil, err
	}

	variant, err := InitFor(id)
	if err != nil {
		return nil, err
	}

	deps, err := dependencies(version, format, backend)
	if err != nil {
		return nil, err
	}

	decision := &Decision{
		BuildFlags:          buildFlags(version),
		Dependencies:        deps,
		Init:                variant,
		Format:              format,
		TLS:                 backend,
		BindingDistDir:      nativeBindingDistDir,
		WriteMasterDefaults: version.AtLeast(MasterDefaults),
	}

	if version.Before(NativeBindingLayout) {
		decision.BindingDistDir = legacyBindingDistDir
	}

	return decision, nil
}

// InitFor selects the init variant for a platform.
func InitFor(id platform.ID) (InitVariant, error) {
	switch id.Family {
	case platform.Debian:
		return InitSysV, nil
	case platform.Ubuntu:
		return InitUpstart, nil
	case platform.Fedora:
		return InitSystemd, nil
	case platform.RedHat, platform.CentOS:
		switch id.Major {
		case "6":
			return InitUpstart, nil
		case "7":
			return InitSystemd, nil
		}
	}

	return "", fmt.Errorf("%w: no init integration for %s", platform.ErrUnsupportedPlatform, id)
}

func buildFlags(version vercmp.Nominal) []string {
	flags := append([]string(nil), baseFlags...)
	if version.AtLeast(OptimizedBuild) {
		flags = append(flags, optimizeFlag)
	}

	return flags
}

func dependencies(version vercmp.Nominal, format platform.PackageFormat, backend TLSBackend) ([]string, error) {
	curl, ok := curlDependency[format][backend]
	if !ok {
		return nil, fmt.Errorf("%w: %q", errUnknownTLSBackend, backend)
	}

	deps := append([]string(nil), baseDependencies[format]...)
	deps = append(deps, curl)

	if version.AtLeast(SubversionRuntime) {
		deps = append(deps, subversionDependency[format])
	}

	return deps, nil
}
