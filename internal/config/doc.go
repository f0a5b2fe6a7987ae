// Package config defines the packaging settings shared by the CLI and the
// pipeline, and provides helpers to load, validate and save them in YAML.
//
// When no path is given the file is looked up in the XDG config directories;
// a missing file means built-in defaults.
package config
