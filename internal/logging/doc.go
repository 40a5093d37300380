// Package logging builds the slog loggers used by the trybuild client and the
// master daemon.
//
// New wires a console (key=value) or JSON handler over stdout, stderr or log
// files. The attribute helpers and NewComponentLogger keep field names
// consistent across packages, and NewNop serves tests and optional wiring.
package logging
