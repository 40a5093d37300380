// Package daemonrun is the master's runtime: the process started by
// "trybuild start" or run in the foreground with "trybuild master".
//
// The master holds an exclusive lock on its basedir, records its pid, and
// sweeps the job spool on a fixed period. Each swept entry is decoded and
// written to the job ledger, then moved out of the visible directory. SIGHUP
// reloads master.toml; SIGINT and SIGTERM end the process cleanly.
package daemonrun
