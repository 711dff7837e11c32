package vault

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store is the interface for the record authority. *MemoryStore implements
// this interface.
type Store interface {
	// Read returns a consistent copy of the current record. Never fails.
	Read(ctx context.Context) Record

	// Write validates claimedDigest against data and, on success, archives
	// the current record and replaces it. The returned record is the new
	// current.
	Write(ctx context.Context, data, claimedDigest string) (Record, error)

	// Restore pops the most recent snapshot and promotes it to current.
	Restore(ctx context.Context) (Record, error)

	// Tamper overwrites the current payload without updating its digest,
	// deliberately breaking the data↔integrity binding.
	Tamper(ctx context.Context, data string) Record

	// Verify checks the current record's binding without mutating anything.
	// Returns nil if the record is consistent.
	Verify(ctx context.Context) error

	// HistoryLen returns the number of archived snapshots.
	HistoryLen(ctx context.Context) int

	// HistoryAt returns the snapshot at the given zero-based index, oldest
	// first.
	HistoryAt(ctx context.Context, index int) (Snapshot, error)
}

// MemoryStore is an in-memory, thread-safe Store implementation. It is the
// sole owner of the record and its history; nothing mutates either outside
// the operations below. State does not survive a restart.
type MemoryStore struct {
	mu      sync.RWMutex
	current Record
	history []Snapshot
	logger  *zap.Logger
}

// New creates a MemoryStore seeded with initialData and its computed digest.
// The history starts empty.
func New(initialData string, logger *zap.Logger) *MemoryStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryStore{
		current: Record{Data: initialData, Integrity: Digest(initialData)},
		logger:  logger,
	}
}

// Read implements Store.
func (s *MemoryStore) Read(_ context.Context) Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Write implements Store.
//
// The current record's own binding is re-checked before anything is archived,
// so out-of-band mutation that bypassed the API surfaces here as
// ErrIntegrityCorrupted rather than being silently snapshotted.
func (s *MemoryStore) Write(_ context.Context, data, claimedDigest string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.current.Consistent() {
		s.logger.Warn("write rejected: stored record inconsistent",
			zap.String("stored_integrity", s.current.Integrity),
		)
		return Record{}, ErrIntegrityCorrupted
	}

	actual := Digest(data)
	if actual != claimedDigest {
		s.logger.Warn("write rejected: claimed digest mismatch",
			zap.String("claimed", claimedDigest),
			zap.String("actual", actual),
		)
		return Record{}, ErrHashMismatch
	}

	s.history = append(s.history, Snapshot{
		ID:         uuid.New(),
		Data:       s.current.Data,
		Integrity:  s.current.Integrity,
		ArchivedAt: time.Now().UTC(),
	})
	s.current = Record{Data: data, Integrity: actual}
	return s.current, nil
}

// Restore implements Store. The consumed snapshot is gone for good; repeated
// calls walk further back, one generation per call.
func (s *MemoryStore) Restore(_ context.Context) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.history) == 0 {
		return Record{}, ErrNoBackup
	}

	last := s.history[len(s.history)-1]
	s.history = s.history[:len(s.history)-1]
	s.current = Record{Data: last.Data, Integrity: last.Integrity}
	s.logger.Info("restored from backup",
		zap.String("integrity", s.current.Integrity),
		zap.Int("remaining_backups", len(s.history)),
	)
	return s.current, nil
}

// Tamper implements Store.
func (s *MemoryStore) Tamper(_ context.Context, data string) Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current.Data = data
	s.logger.Warn("record tampered via injection hook",
		zap.String("stale_integrity", s.current.Integrity),
	)
	return s.current
}

// Verify implements Store.
func (s *MemoryStore) Verify(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.current.Consistent() {
		return fmt.Errorf("%w: stored %s, payload hashes to %s",
			ErrIntegrityCorrupted, s.current.Integrity, Digest(s.current.Data))
	}
	return nil
}

// HistoryLen implements Store.
func (s *MemoryStore) HistoryLen(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.history)
}

// HistoryAt implements Store.
func (s *MemoryStore) HistoryAt(_ context.Context, index int) (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if index < 0 || index >= len(s.history) {
		return Snapshot{}, fmt.Errorf("index %d out of range", index)
	}
	return s.history[index], nil
}
