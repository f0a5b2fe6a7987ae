// Package policy holds the version- and platform-conditional packaging rules.
//
// Decide is a pure function of the nominal version, the platform and the TLS
// backend. The backend is the one input that depends on the build host, so
// Table takes it from an injected TLSProbe and keeps the rules testable.
package policy
