package probe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/oshokin/mesos-packager/internal/domain/platform"
	"github.com/oshokin/mesos-packager/internal/domain/policy"
	"github.com/oshokin/mesos-packager/internal/logger"
	"github.com/oshokin/mesos-packager/internal/service/common"
)

// ErrNoTLSBackend is returned when no libcurl development package is installed.
var ErrNoTLSBackend = errors.New("no libcurl tls backend installed")

// curlDevPackages are the libcurl development packages per format and backend.
//
//nolint:gochecknoglobals // Read-only lookup table.
var curlDevPackages = map[platform.PackageFormat]map[policy.TLSBackend]string{
	platform.Deb: {
		policy.TLSOpenSSL: "libcurl4-openssl-dev",
		policy.TLSNSS:     "libcurl4-nss-dev",
		policy.TLSGnuTLS:  "libcurl4-gnutls-dev",
	},
	platform.RPM: {
		policy.TLSOpenSSL: "libcurl-openssl-devel",
		policy.TLSNSS:     "libcurl-devel",
		policy.TLSGnuTLS:  "libcurl-gnutls-devel",
	},
}

// HostTLSProbe asks the host package manager which libcurl flavour is installed.
type HostTLSProbe struct {
	runner common.CommandRunner
}

// NewHostTLSProbe creates a probe running dpkg-query or rpm through runner.
func NewHostTLSProbe(runner common.CommandRunner) *HostTLSProbe {
	return &HostTLSProbe{runner: runner}
}

// DetectTLSBackend returns the first installed backend in policy.TLSBackends order.
func (p *HostTLSProbe) DetectTLSBackend(ctx context.Context, format platform.PackageFormat) (policy.TLSBackend, error) {
	packages, ok := curlDevPackages[format]
	if !ok {
		return "", fmt.Errorf("%w: no package manager for %q", platform.ErrUnsupportedPlatform, format)
	}

	for _, backend := range policy.TLSBackends() {
		pkg := packages[backend]
		if p.installed(ctx, format, pkg) {
			logger.InfoKV(ctx, "Detected libcurl TLS backend", "backend", backend, "package", pkg)
			return backend, nil
		}
	}

	return "", ErrNoTLSBackend
}

// installed reports whether pkg is installed according to the format's package manager.
func (p *HostTLSProbe) installed(ctx context.Context, format platform.PackageFormat, pkg string) bool {
	switch format {
	case platform.Deb:
		out, err := p.runner.Output(ctx, "", "dpkg-query", "-W", "-f=${Status}", pkg)
		return err == nil && strings.Contains(string(out), "install ok installed")
	case platform.RPM:
		_, err := p.runner.Output(ctx, "", "rpm", "-q", pkg)
		return err == nil
	default:
		return false
	}
}
