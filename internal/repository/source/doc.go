// Package source checks out the project being packaged and reads the version
// it declares.
//
// GitProvider clones with go-git. A source directory that already exists is
// never touched, which makes re-runs cheap and offline.
package source
