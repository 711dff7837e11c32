// Package vault implements the record authority: a single mutable record
// whose payload is bound to a SHA-256 digest, plus an append-only history of
// prior states used as a backup stack.
//
// Every validated write archives the outgoing record; Restore destructively
// pops the most recent snapshot and promotes it to current. Corruption of the
// stored binding is detected lazily — on the next write attempt or an explicit
// Verify, never during Read.
package vault
