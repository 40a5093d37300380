// Package config loads, normalizes, and validates a master installation's
// master.toml.
//
// A basedir holds master.toml alongside the files the master owns at
// runtime: its pid file, lock, job ledger and log. The helpers on Config
// name those paths so the daemon, the lifecycle controller and the CLI agree
// on them. Relative paths in the file resolve against the basedir and tilde
// shortcuts are expanded.
package config
