package vault

import "errors"

var (
	// ErrIntegrityCorrupted means the authoritative record's own stored
	// digest no longer matches its payload. Detected lazily, on the next
	// write attempt or an explicit Verify — never during Read.
	ErrIntegrityCorrupted = errors.New("current record integrity corrupted")

	// ErrHashMismatch means a submitted payload's digest disagrees with the
	// digest the caller claimed for it.
	ErrHashMismatch = errors.New("claimed hash does not match submitted data")

	// ErrNoBackup means the backup history is exhausted.
	ErrNoBackup = errors.New("no backup available")
)
