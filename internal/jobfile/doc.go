// Package jobfile encodes and decodes try job files, the wire messages a
// try client hands to the build master.
//
// A job file is a sequence of netstrings. The first field is the version
// tag; the remaining layout depends on the version. The encoder never lets
// the caller pick a version: SelectVersion derives the lowest version able
// to carry the populated fields, so masters that only understand older
// layouts keep accepting jobs that do not need the newer fields. Version 1
// is only ever decoded.
package jobfile
