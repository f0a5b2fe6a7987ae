// Package staging assembles the package root: the directory skeleton, the installed
// build output, default configuration and init-system integration files.
package staging
