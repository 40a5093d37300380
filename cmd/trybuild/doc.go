// Package main hosts the trybuild CLI.
//
// The client half builds try jobs from a diff and the resolved options file
// and hands them to a transport. The server half manages a buildmaster
// installation: it starts, stops and reconfigures the master process, runs
// the master itself, and reports the jobs it has ingested.
package main
