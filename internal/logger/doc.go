// Package logger wraps zap for the packaging pipeline:
//   - a global sugared logger with a console encoder (colored levels on a terminal),
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level parsing for the --log-level flag,
//   - context-aware convenience functions (Infof, ErrorKV, etc.).
//
// Stages receive a context and pull the logger from it, so the run id and the
// stage name travel with every message.
package logger
