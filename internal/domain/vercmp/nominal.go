package vercmp

import (
	"fmt"
	"regexp"
)

// nominalPattern matches major.minor.patch with an optional pre-release suffix,
// e.g. 0.21.0, 0.21.0-rc1, 0.21.0rc1, 0.21.0~rc1. The suffix starts with a letter,
// so a fourth numeric component such as 0.21.0.1 is rejected.
var nominalPattern = regexp.MustCompile(`^(\d+\.\d+\.\d+)(?:[-~.]?([A-Za-z][0-9A-Za-z.]*))?$`)

// Nominal is a project release version.
type Nominal struct {
	// Raw is the version as declared.
	Raw string
	// Numeric holds the three numeric components.
	Numeric Spec
	// PreRelease is the suffix after the numeric part, empty for a release.
	PreRelease string
}

// ParseNominal parses a release version with an optional pre-release suffix.
func ParseNominal(s string) (Nominal, error) {
	m := nominalPattern.FindStringSubmatch(s)
	if m == nil {
		return Nominal{}, fmt.Errorf("%w: %q is not major.minor.patch[suffix]", ErrInvalidVersion, s)
	}

	numeric, err := ParseSpec(m[1])
	if err != nil {
		return Nominal{}, err
	}

	return Nominal{
		Raw:        s,
		Numeric:    numeric,
		PreRelease: m[2],
	}, nil
}

// IsZero reports whether n was never parsed.
func (n Nominal) IsZero() bool {
	return n.Raw == ""
}

// IsPreRelease reports whether n carries a pre-release suffix.
func (n Nominal) IsPreRelease() bool {
	return n.PreRelease != ""
}

// String returns the declared version.
func (n Nominal) String() string {
	return n.Raw
}

// AtLeast reports whether n >= threshold.
// A pre-release of exactly the threshold numbers is treated as older than the threshold.
func (n Nominal) AtLeast(threshold Spec) bool {
	switch Compare(n.Numeric, threshold) {
	case Greater:
		return true
	case Equal:
		return !n.IsPreRelease()
	default:
		return false
	}
}

// Before reports whether n < threshold.
func (n Nominal) Before(threshold Spec) bool {
	return !n.AtLeast(threshold)
}
