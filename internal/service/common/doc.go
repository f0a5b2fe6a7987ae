// Package common holds helpers shared by several services.
//
// It runs external commands for the collaborators (git-less builders, fpm,
// probes), guards an output directory with a run lock, and detects the
// system actor (hostname/username) recorded in run records and manifests.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
