// Package client provides the RecordVault Go SDK: it holds a local copy of
// the record, synchronizes it with the vault, submits writes with
// self-computed digests, and runs the three-way integrity check that
// triggers backup restoration on tamper detection.
package client
