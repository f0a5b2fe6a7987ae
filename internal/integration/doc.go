// Package integration runs the packaging pipeline end to end with real
// collaborators over a local git origin. External programs are scripted.
package integration
