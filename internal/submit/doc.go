// Package submit carries encoded try jobs to a master's job directory.
//
// Local drops the job straight into a spool on this machine. SSH pipes it to
// "trybuild tryserver" on the master host, which performs the same drop
// there. ForConnect picks one from the try command's connect mode.
package submit
