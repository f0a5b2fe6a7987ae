// Package vercmp compares dotted numeric versions.
//
// Spec is a purely numeric version; Compare zero-pads the shorter side.
// Nominal is a project release version that may carry a pre-release suffix
// such as "rc1". The numeric comparator never sees the suffix: Nominal applies
// the rule that a pre-release sorts before the release with the same numbers.
package vercmp
