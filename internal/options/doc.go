// Package options discovers the per-user options file and layers its values
// under explicit command-line flags.
//
// The search walks from the working directory toward the filesystem root,
// looking for a .trybuild directory at each level, and falls back to the
// user's home directory last. The first directory owned by the invoking
// user that contains an "options" file wins. Resolved values replace
// compiled-in flag defaults but never values the user passed explicitly.
package options
