// Package platform normalizes raw operating system identity into a
// (family, major version) pair and derives the package format and the
// architecture naming used by that format.
package platform
