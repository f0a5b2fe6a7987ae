// Package packager turns a staging root into a deb or rpm package.
//
// Packages are assembled by fpm with deterministic file names built from the
// name, version, revision and architecture. Every produced file is recorded
// with its checksum in a YAML release manifest written next to the packages.
package packager
