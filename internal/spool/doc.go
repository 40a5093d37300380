// Package spool implements the maildir-style job directory shared by try
// clients and the build master.
//
// Producers write a job into tmp/ and rename it into new/; a consumer only
// ever looks at new/, so it never sees a partially written file. The
// consumer moves jobs it has taken into cur/. Entry names combine the
// submission time with a BLAKE3 digest of the payload, which keeps them
// roughly time-ordered and unique without any coordination between
// producers.
package spool
