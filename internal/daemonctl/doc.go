// Package daemonctl controls a running master through its pid file and POSIX
// signals.
//
// Every operation first checks that the basedir holds a master.toml carrying
// the installation marker and refuses to act otherwise. Stop sends a signal
// and, when asked to wait, probes the process with signal 0 on a bounded
// schedule driven by an injected Clock. Running out of probes is reported as
// the TimedOut outcome, not as an error. Restart composes Stop with a Starter
// such as Launcher, which runs the master detached and waits for its pid
// file.
package daemonctl
