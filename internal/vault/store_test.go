package vault_test

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/recordvault/recordvault/internal/vault"
)

var ctx = context.Background()

func TestDigest_deterministicHex(t *testing.T) {
	d1 := vault.Digest("Hello World")
	d2 := vault.Digest("Hello World")
	if d1 != d2 {
		t.Errorf("digest not deterministic: %q vs %q", d1, d2)
	}
	if !regexp.MustCompile(`^[0-9a-f]{64}$`).MatchString(d1) {
		t.Errorf("digest is not 64 lowercase hex chars: %q", d1)
	}
	if vault.Digest("Hello World") == vault.Digest("hello world") {
		t.Error("distinct inputs produced the same digest")
	}
}

func TestNew_seedsConsistentRecord(t *testing.T) {
	s := vault.New("Hello World", nil)

	rec := s.Read(ctx)
	if rec.Data != "Hello World" {
		t.Errorf("data: got %q", rec.Data)
	}
	if rec.Integrity != vault.Digest("Hello World") {
		t.Errorf("integrity: got %q, want digest of seed data", rec.Integrity)
	}
	if n := s.HistoryLen(ctx); n != 0 {
		t.Errorf("expected empty history, got %d entries", n)
	}
}

func TestWrite_replacesCurrentAndArchives(t *testing.T) {
	s := vault.New("Hello World", nil)

	rec, err := s.Write(ctx, "Updated", vault.Digest("Updated"))
	if err != nil {
		t.Fatal(err)
	}
	if rec.Data != "Updated" || rec.Integrity != vault.Digest("Updated") {
		t.Errorf("write returned %+v", rec)
	}

	got := s.Read(ctx)
	if got != rec {
		t.Errorf("Read() = %+v, want %+v", got, rec)
	}

	if n := s.HistoryLen(ctx); n != 1 {
		t.Fatalf("history length: got %d, want 1", n)
	}
	snap, err := s.HistoryAt(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Data != "Hello World" || snap.Integrity != vault.Digest("Hello World") {
		t.Errorf("archived snapshot = %+v, want pre-write record", snap)
	}
	if snap.ArchivedAt.IsZero() {
		t.Error("snapshot has zero timestamp")
	}
}

func TestWrite_hashMismatchLeavesStateUntouched(t *testing.T) {
	s := vault.New("Hello World", nil)

	_, err := s.Write(ctx, "Updated", vault.Digest("something else"))
	if !errors.Is(err, vault.ErrHashMismatch) {
		t.Fatalf("err = %v, want ErrHashMismatch", err)
	}

	if rec := s.Read(ctx); rec.Data != "Hello World" {
		t.Errorf("current record changed after rejected write: %+v", rec)
	}
	if n := s.HistoryLen(ctx); n != 0 {
		t.Errorf("history grew after rejected write: %d entries", n)
	}
}

func TestWrite_corruptedCurrentIsRejectedBeforeArchiving(t *testing.T) {
	s := vault.New("Hello World", nil)
	s.Tamper(ctx, "Tampered Data!")

	_, err := s.Write(ctx, "Updated", vault.Digest("Updated"))
	if !errors.Is(err, vault.ErrIntegrityCorrupted) {
		t.Fatalf("err = %v, want ErrIntegrityCorrupted", err)
	}
	if n := s.HistoryLen(ctx); n != 0 {
		t.Errorf("corrupted record was archived: history has %d entries", n)
	}
}

func TestRestore_emptyHistory(t *testing.T) {
	s := vault.New("Hello World", nil)

	_, err := s.Restore(ctx)
	if !errors.Is(err, vault.ErrNoBackup) {
		t.Fatalf("err = %v, want ErrNoBackup", err)
	}
	if rec := s.Read(ctx); rec.Data != "Hello World" {
		t.Errorf("current record changed after failed restore: %+v", rec)
	}
}

func TestRestore_walksGenerationsInReverse(t *testing.T) {
	s := vault.New("gen0", nil)
	for _, d := range []string{"gen1", "gen2", "gen3"} {
		if _, err := s.Write(ctx, d, vault.Digest(d)); err != nil {
			t.Fatal(err)
		}
	}
	if n := s.HistoryLen(ctx); n != 3 {
		t.Fatalf("history length: got %d, want 3", n)
	}

	for i, want := range []string{"gen2", "gen1", "gen0"} {
		rec, err := s.Restore(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if rec.Data != want {
			t.Errorf("restore %d: got %q, want %q", i+1, rec.Data, want)
		}
		if rec.Integrity != vault.Digest(want) {
			t.Errorf("restore %d: integrity does not match promoted data", i+1)
		}
	}

	if _, err := s.Restore(ctx); !errors.Is(err, vault.ErrNoBackup) {
		t.Error("expected ErrNoBackup once history is exhausted")
	}
}

func TestTamper_breaksBindingWithoutTouchingIntegrity(t *testing.T) {
	s := vault.New("Hello World", nil)

	rec := s.Tamper(ctx, "Tampered Data!")
	if rec.Data != "Tampered Data!" {
		t.Errorf("data: got %q", rec.Data)
	}
	if rec.Integrity != vault.Digest("Hello World") {
		t.Errorf("integrity was updated by Tamper: %q", rec.Integrity)
	}

	if err := s.Verify(ctx); !errors.Is(err, vault.ErrIntegrityCorrupted) {
		t.Errorf("Verify() = %v, want ErrIntegrityCorrupted", err)
	}
}

func TestVerify_consistentRecord(t *testing.T) {
	s := vault.New("Hello World", nil)
	if err := s.Verify(ctx); err != nil {
		t.Errorf("Verify() on consistent record: %v", err)
	}
}

// The end-to-end scenario: write, inject a fault, restore the pre-write state.
func TestScenario_tamperThenRestore(t *testing.T) {
	s := vault.New("Hello World", nil)

	if _, err := s.Write(ctx, "Updated", vault.Digest("Updated")); err != nil {
		t.Fatal(err)
	}

	s.Tamper(ctx, "Tampered Data!")
	rec := s.Read(ctx)
	if rec.Integrity == vault.Digest(rec.Data) {
		t.Fatal("tamper did not break the data↔digest binding")
	}

	restored, err := s.Restore(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := vault.Record{Data: "Hello World", Integrity: vault.Digest("Hello World")}
	if restored != want {
		t.Errorf("restored = %+v, want %+v", restored, want)
	}
	if n := s.HistoryLen(ctx); n != 0 {
		t.Errorf("history length after restore: got %d, want 0", n)
	}
}
