package platform

import (
	"errors"
	"fmt"
	"strings"
)

// Family is a canonical operating system family name.
type Family string

// Known families.
const (
	Debian Family = "debian"
	Ubuntu Family = "ubuntu"
	RedHat Family = "redhat"
	CentOS Family = "centos"
	Fedora Family = "fedora"
	MacOSX Family = "macosx"
)

var (
	// ErrUnresolvedPlatform is returned when no OS identity is available.
	ErrUnresolvedPlatform = errors.New("unresolved platform")
	// ErrUnsupportedPlatform is returned when a platform has no packaging policy.
	ErrUnsupportedPlatform = errors.New("unsupported platform")
)

// aliases folds vendor spellings (already lowercased) to canonical families.
//
//nolint:gochecknoglobals // Read-only lookup table.
var aliases = map[string]Family{
	"red hat":                         RedHat,
	"redhat":                          RedHat,
	"rhel":                            RedHat,
	"red hat enterprise linux":        RedHat,
	"red hat enterprise linux server": RedHat,
	"redhatenterpriseserver":          RedHat,
	"redhatenterprise":                RedHat,
	"centos":                          CentOS,
	"centos linux":                    CentOS,
	"fedora":                          Fedora,
	"fedora linux":                    Fedora,
	"debian":                          Debian,
	"debian gnu/linux":                Debian,
	"ubuntu":                          Ubuntu,
	"mac os x":                        MacOSX,
	"macos":                           MacOSX,
	"macosx":                          MacOSX,
	"osx":                             MacOSX,
	"darwin":                          MacOSX,
}

// prefixAliases catches vendor strings with edition suffixes, e.g. "red hat enterprise linux workstation".
//
//nolint:gochecknoglobals // Read-only lookup table.
var prefixAliases = []struct {
	prefix string
	family Family
}{
	{"red hat", RedHat},
	{"redhat", RedHat},
	{"centos", CentOS},
	{"fedora", Fedora},
	{"debian", Debian},
	{"mac os", MacOSX},
}

// canonicalFamily maps a lowercased OS id to its family; unknown ids are kept verbatim.
func canonicalFamily(osID string) Family {
	if family, ok := aliases[osID]; ok {
		return family
	}

	for _, alias := range prefixAliases {
		if strings.HasPrefix(osID, alias.prefix) {
			return alias.family
		}
	}

	return Family(osID)
}

// ID identifies a platform for policy decisions.
type ID struct {
	// Family is the canonical family.
	Family Family
	// Major is the truncated version used by the policy table.
	Major string
}

// String renders the id as family/major.
func (id ID) String() string {
	if id.Major == "" {
		return string(id.Family)
	}

	return string(id.Family) + "/" + id.Major
}

// Resolve normalizes a raw OS id and version.
// Red Hat, CentOS, Debian and Fedora keep only the major component,
// Mac OS X keeps two components, every other family keeps the version verbatim.
func Resolve(rawOSID, rawVersionID string) (ID, error) {
	osID := strings.ToLower(strings.TrimSpace(rawOSID))
	if osID == "" {
		return ID{}, fmt.Errorf("%w: no operating system identity", ErrUnresolvedPlatform)
	}

	family := canonicalFamily(osID)

	versionID := strings.ToLower(strings.TrimSpace(rawVersionID))

	switch family {
	case RedHat, CentOS, Debian, Fedora:
		versionID = leadingComponents(versionID, 1)
	case MacOSX:
		versionID = leadingComponents(versionID, 2)
	}

	return ID{
		Family: family,
		Major:  versionID,
	}, nil
}

// leadingComponents keeps the first n dot-delimited components of v.
func leadingComponents(v string, n int) string {
	parts := strings.SplitN(v, ".", n+1)
	if len(parts) > n {
		parts = parts[:n]
	}

	return strings.Join(parts, ".")
}
