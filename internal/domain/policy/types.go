package policy

import (
	"context"

	"github.com/oshokin/mesos-packager/internal/domain/platform"
)

// InitVariant is the process supervision convention a package hooks into.
type InitVariant string

// Init variants.
const (
	InitSysV    InitVariant = "sysv"
	InitUpstart InitVariant = "upstart"
	InitSystemd InitVariant = "systemd"
	InitNone    InitVariant = "none"
)

// TLSBackend is the TLS library the host libcurl is built against.
type TLSBackend string

// TLS backends, in probe order.
const (
	TLSOpenSSL TLSBackend = "openssl"
	TLSNSS     TLSBackend = "nss"
	TLSGnuTLS  TLSBackend = "gnutls"
)

// TLSBackends lists the backends in the order hosts are probed.
func TLSBackends() []TLSBackend {
	return []TLSBackend{TLSOpenSSL, TLSNSS, TLSGnuTLS}
}

// TLSProbe reports which TLS backend is installed on the build host.
type TLSProbe interface {
	DetectTLSBackend(ctx context.Context, format platform.PackageFormat) (TLSBackend, error)
}

// Decision is everything the pipeline derives from version and platform.
type Decision struct {
	// BuildFlags are passed to configure, in order.
	BuildFlags []string
	// Dependencies are the runtime package dependencies, in a stable order.
	Dependencies []string
	// Init selects the init-system files placed in the staging tree.
	Init InitVariant
	// Format is the package format to produce.
	Format platform.PackageFormat
	// TLS is the libcurl flavour the dependencies were chosen for.
	TLS TLSBackend
	// BindingDistDir is where the build leaves the language binding, relative to the build dir.
	BindingDistDir string
	// WriteMasterDefaults enables the quorum and work_dir default files.
	WriteMasterDefaults bool
}

// Clone returns a deep copy so callers cannot mutate a shared decision.
func (d *Decision) Clone() *Decision {
	if d == nil {
		return nil
	}

	cloned := *d
	cloned.BuildFlags = append([]string(nil), d.BuildFlags...)
	cloned.Dependencies = append([]string(nil), d.Dependencies...)

	return &cloned
}
