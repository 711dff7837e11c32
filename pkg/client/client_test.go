package client_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/recordvault/recordvault/pkg/client"
)

var ctx = context.Background()

// ── Stub vault ──────────────────────────────────────────────────────────

type stubVault struct {
	mu        sync.Mutex
	data      string
	integrity string
	history   []client.Record
}

func newStubVault(initial string) *stubVault {
	return &stubVault{data: initial, integrity: client.Digest(initial)}
}

// tamper overwrites the payload without touching the stored digest.
func (v *stubVault) tamper(data string) {
	v.mu.Lock()
	v.data = data
	v.mu.Unlock()
}

func (v *stubVault) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		v.mu.Lock()
		defer v.mu.Unlock()

		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode(client.Record{Data: v.data, Integrity: v.integrity})

		case http.MethodPost:
			var req struct {
				Data string `json:"data"`
				Hash string `json:"hash"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, `{"error":"bad body"}`, http.StatusBadRequest)
				return
			}
			if v.integrity != client.Digest(v.data) {
				http.Error(w, `{"error":"current record integrity corrupted"}`, http.StatusBadRequest)
				return
			}
			if req.Hash != client.Digest(req.Data) {
				http.Error(w, `{"error":"claimed hash does not match submitted data"}`, http.StatusBadRequest)
				return
			}
			v.history = append(v.history, client.Record{Data: v.data, Integrity: v.integrity})
			v.data, v.integrity = req.Data, req.Hash
			json.NewEncoder(w).Encode(map[string]string{"message": "record updated"})
		}
	})

	mux.HandleFunc("/backup", func(w http.ResponseWriter, r *http.Request) {
		v.mu.Lock()
		defer v.mu.Unlock()

		if len(v.history) == 0 {
			http.Error(w, `{"error":"no backup available"}`, http.StatusNotFound)
			return
		}
		last := v.history[len(v.history)-1]
		v.history = v.history[:len(v.history)-1]
		v.data, v.integrity = last.Data, last.Integrity
		json.NewEncoder(w).Encode(map[string]any{
			"message": "restored most recent backup",
			"current": last,
		})
	})

	return httptest.NewServer(mux)
}

// ── Tests ───────────────────────────────────────────────────────────────

func TestSynchronize_replacesLocalCopy(t *testing.T) {
	srv := newStubVault("Hello World").server(t)
	defer srv.Close()

	c := client.New(srv.URL)
	c.SetData("stale local state")

	rec, err := c.Synchronize(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Data != "Hello World" {
		t.Errorf("record data: got %q", rec.Data)
	}
	if c.Data() != "Hello World" {
		t.Errorf("local copy: got %q", c.Data())
	}
}

func TestSubmit_successUpdatesServerAndLocal(t *testing.T) {
	vault := newStubVault("Hello World")
	srv := vault.server(t)
	defer srv.Close()

	c := client.New(srv.URL)
	if _, err := c.Synchronize(ctx); err != nil {
		t.Fatal(err)
	}

	if err := c.Submit(ctx, "Updated"); err != nil {
		t.Fatal(err)
	}

	if vault.data != "Updated" || vault.integrity != client.Digest("Updated") {
		t.Errorf("server state: %q / %q", vault.data, vault.integrity)
	}
	if len(vault.history) != 1 || vault.history[0].Data != "Hello World" {
		t.Errorf("history: %+v", vault.history)
	}
	if c.Data() != "Updated" {
		t.Errorf("local copy after submit: %q", c.Data())
	}
}

func TestSubmit_rejectionLeavesLocalUntouched(t *testing.T) {
	vault := newStubVault("Hello World")
	vault.tamper("Tampered Data!") // next write hits the corrupted-record guard
	srv := vault.server(t)
	defer srv.Close()

	c := client.New(srv.URL)
	c.SetData("my local draft")

	err := c.Submit(ctx, "Updated")
	if err == nil {
		t.Fatal("expected rejection")
	}
	if !strings.Contains(err.Error(), "corrupted") {
		t.Errorf("error should carry the server's reason text: %v", err)
	}
	if c.Data() != "my local draft" {
		t.Errorf("local copy changed on failure: %q", c.Data())
	}
}

func TestVerify_intactTriggersNoRestore(t *testing.T) {
	vault := newStubVault("Hello World")
	srv := vault.server(t)
	defer srv.Close()

	c := client.New(srv.URL)
	if _, err := c.Synchronize(ctx); err != nil {
		t.Fatal(err)
	}
	if err := c.Submit(ctx, "Updated"); err != nil {
		t.Fatal(err)
	}

	verdict, err := c.Verify(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if verdict != client.VerdictIntact {
		t.Errorf("verdict: got %s, want intact", verdict)
	}
	if len(vault.history) != 1 {
		t.Errorf("intact verify consumed a backup: history=%d", len(vault.history))
	}
}

// Server payload diverged from its own asserted hash while the client's copy
// still matches the assertion. A two-way local-vs-asserted compare would call
// this intact; the three-way check must not.
func TestVerify_serverSideTamperIsDetected(t *testing.T) {
	vault := newStubVault("Hello World")
	srv := vault.server(t)
	defer srv.Close()

	c := client.New(srv.URL)
	if _, err := c.Synchronize(ctx); err != nil {
		t.Fatal(err)
	}
	if err := c.Submit(ctx, "Updated"); err != nil {
		t.Fatal(err)
	}

	vault.tamper("Tampered Data!")

	verdict, err := c.Verify(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if verdict != client.VerdictTampered {
		t.Fatalf("verdict: got %s, want tampered", verdict)
	}

	// Restore flow ran: the single backup was consumed and promoted.
	if vault.data != "Hello World" || vault.integrity != client.Digest("Hello World") {
		t.Errorf("server state after restore: %q / %q", vault.data, vault.integrity)
	}
	if len(vault.history) != 0 {
		t.Errorf("history after restore: %d entries", len(vault.history))
	}
	if c.Data() != "Hello World" {
		t.Errorf("local copy after restore: %q", c.Data())
	}
}

func TestVerify_localDivergenceIsTampered(t *testing.T) {
	vault := newStubVault("Hello World")
	srv := vault.server(t)
	defer srv.Close()

	c := client.New(srv.URL)
	if _, err := c.Synchronize(ctx); err != nil {
		t.Fatal(err)
	}
	if err := c.Submit(ctx, "Updated"); err != nil {
		t.Fatal(err)
	}

	verdict, err := c.VerifyData(ctx, "some other local state")
	if err != nil {
		t.Fatal(err)
	}
	if verdict != client.VerdictTampered {
		t.Errorf("verdict: got %s, want tampered", verdict)
	}
}

func TestVerify_tamperedWithEmptyHistorySurfacesRestoreError(t *testing.T) {
	vault := newStubVault("Hello World")
	vault.tamper("Tampered Data!")
	srv := vault.server(t)
	defer srv.Close()

	c := client.New(srv.URL)
	c.SetData("whatever")

	verdict, err := c.Verify(ctx)
	if verdict != client.VerdictTampered {
		t.Errorf("verdict: got %s, want tampered", verdict)
	}
	if err == nil || !strings.Contains(err.Error(), "no backup available") {
		t.Errorf("expected surfaced NoBackup error, got %v", err)
	}
	if c.Data() != "whatever" {
		t.Errorf("local copy changed despite failed restore: %q", c.Data())
	}
}

func TestRestore_emptyHistoryFails(t *testing.T) {
	srv := newStubVault("Hello World").server(t)
	defer srv.Close()

	c := client.New(srv.URL)
	if _, err := c.Restore(ctx); err == nil {
		t.Fatal("expected error on empty history")
	}
}
