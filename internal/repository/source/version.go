package source

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/oshokin/mesos-packager/internal/domain/vercmp"
)

// ErrVersionUnavailable is returned when the checkout declares no usable version.
var ErrVersionUnavailable = errors.New("version unavailable")

// VersionFile is the autoconf script declaring the project version.
const VersionFile = "configure.ac"

// acInit matches AC_INIT([mesos], [0.21.0]) with or without brackets.
var acInit = regexp.MustCompile(`AC_INIT\(\s*\[?[^\],]+\]?\s*,\s*\[?\s*([^\],)\s]+)\s*\]?`)

// ReadDeclaredVersion extracts the nominal version from the checkout's configure.ac.
func ReadDeclaredVersion(dir string) (vercmp.Nominal, error) {
	path := filepath.Join(dir, VersionFile)

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return vercmp.Nominal{}, fmt.Errorf("%w: %w", ErrVersionUnavailable, err)
	}

	m := acInit.FindSubmatch(contents)
	if m == nil {
		return vercmp.Nominal{}, fmt.Errorf("%w: no AC_INIT in %s", ErrVersionUnavailable, path)
	}

	version, err := vercmp.ParseNominal(string(m[1]))
	if err != nil {
		return vercmp.Nominal{}, fmt.Errorf("%w: %w", ErrVersionUnavailable, err)
	}

	return version, nil
}
