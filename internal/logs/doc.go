// Package logs reads the master log for the CLI.
//
// It returns the last N lines with bounded memory, resumes from a byte
// offset, and follows the file by polling until the caller's context ends.
// A file that shrinks (truncated or replaced) is read again from the start.
package logs
