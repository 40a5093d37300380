// Package vcs reads a try job's source stamp (branch, base revision and
// diff) from a local working copy by running the VC system's own command.
package vcs
