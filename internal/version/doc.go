// Package version exposes build metadata of the packager binary.
//
// Version, Commit and BuildTime are injected via ldflags. The packager records
// Short() in every release manifest it writes.
package version
