package vault

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// Record is the single authoritative {data, integrity} pair served by the
// vault. Integrity is the lowercase-hex SHA-256 of Data; the binding holds
// for the authoritative record at all times except inside a detected-tamper
// window opened by fault injection.
type Record struct {
	Data      string `json:"data"`
	Integrity string `json:"integrity"`
}

// Snapshot is a point-in-time copy of a record that was replaced by a
// validated write. Immutable once created; ArchivedAt strictly precedes the
// record that replaced it.
type Snapshot struct {
	ID         uuid.UUID `json:"id"`
	Data       string    `json:"data"`
	Integrity  string    `json:"integrity"`
	ArchivedAt time.Time `json:"archived_at"`
}

// Digest returns the hex-encoded SHA-256 of s interpreted as UTF-8 bytes.
// 64 lowercase hex characters, no truncation. Digests are opaque and
// compared only by exact equality.
func Digest(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

// Consistent reports whether the record's stored integrity still matches its
// payload.
func (r Record) Consistent() bool {
	return r.Integrity == Digest(r.Data)
}
