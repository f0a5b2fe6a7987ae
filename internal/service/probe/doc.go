// Package probe inspects the build host: which operating system it runs and
// which libcurl TLS flavour is installed. These are the only inputs of the
// packaging policy that are not derived from the source version.
package probe
