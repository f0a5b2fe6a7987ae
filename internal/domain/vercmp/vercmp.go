package vercmp

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Result is the outcome of Compare.
type Result int

const (
	// Less means the left version is older.
	Less Result = -1
	// Equal means both versions are the same after zero padding.
	Equal Result = 0
	// Greater means the left version is newer.
	Greater Result = 1
)

// String returns the result name.
func (r Result) String() string {
	switch r {
	case Less:
		return "LESS"
	case Equal:
		return "EQUAL"
	case Greater:
		return "GREATER"
	default:
		return "Result(" + strconv.Itoa(int(r)) + ")"
	}
}

// ErrInvalidVersion is returned for empty or non-numeric version components.
var ErrInvalidVersion = errors.New("invalid version")

// Spec is a dotted numeric version such as 0.19.0.
type Spec []int

// ParseSpec parses a dotted numeric version. Every component must be a non-negative integer.
func ParseSpec(s string) (Spec, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidVersion)
	}

	parts := strings.Split(s, ".")
	spec := make(Spec, 0, len(parts))

	for _, part := range parts {
		n, err := parseComponent(part)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrInvalidVersion, s, err)
		}

		spec = append(spec, n)
	}

	return spec, nil
}

// MustParse is ParseSpec for constant thresholds. It panics on malformed input.
func MustParse(s string) Spec {
	spec, err := ParseSpec(s)
	if err != nil {
		panic(err)
	}

	return spec
}

// parseComponent accepts only ASCII digits, so "+1" and "-1" are rejected.
func parseComponent(part string) (int, error) {
	if part == "" {
		return 0, errors.New("empty component")
	}

	for _, r := range part {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("non-numeric component %q", part)
		}
	}

	return strconv.Atoi(part)
}

// String renders the spec in dotted form.
func (s Spec) String() string {
	parts := make([]string, len(s))
	for i, n := range s {
		parts[i] = strconv.Itoa(n)
	}

	return strings.Join(parts, ".")
}

// Compare orders a and b component by component after padding the shorter one with zeros.
func Compare(a, b Spec) Result {
	size := max(len(a), len(b))

	for i := range size {
		x, y := at(a, i), at(b, i)

		switch {
		case x < y:
			return Less
		case x > y:
			return Greater
		}
	}

	return Equal
}

func at(s Spec, i int) int {
	if i < len(s) {
		return s[i]
	}

	return 0
}

// AtLeast reports whether v >= threshold.
func AtLeast(v, threshold Spec) bool {
	return Compare(v, threshold) != Less
}

// Before reports whether v < threshold.
func Before(v, threshold Spec) bool {
	return Compare(v, threshold) == Less
}
