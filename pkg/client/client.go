package client

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Verdict is the outcome of a verification pass.
type Verdict int

const (
	// VerdictIntact means the local copy, the server payload, and the
	// server's asserted digest all agree.
	VerdictIntact Verdict = iota

	// VerdictTampered means at least one of the three digests diverged.
	VerdictTampered
)

// String implements fmt.Stringer.
func (v Verdict) String() string {
	if v == VerdictIntact {
		return "intact"
	}
	return "tampered"
}

// Record mirrors the vault's {data, integrity} pair.
type Record struct {
	Data      string `json:"data"`
	Integrity string `json:"integrity"`
}

// Client is the RecordVault SDK entry point. It keeps a local copy of the
// record; the copy only changes through Synchronize, a successful Submit, or
// a restore — never on failure.
type Client struct {
	baseURL    string
	httpClient *http.Client

	// local copy — guarded by mu
	mu    sync.Mutex
	local string
}

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the request timeout on the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// New creates a Client targeting the vault at baseURL.
//
//	c := client.New("http://localhost:8080", client.WithTimeout(5*time.Second))
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Digest returns the hex-encoded SHA-256 of s interpreted as UTF-8 bytes.
func Digest(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

// Data returns the client's local copy of the record payload.
func (c *Client) Data() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.local
}

// SetData overwrites the local copy without contacting the vault. This is the
// local-mutation step between a Synchronize and a Submit.
func (c *Client) SetData(data string) {
	c.mu.Lock()
	c.local = data
	c.mu.Unlock()
}

// Synchronize fetches the current record and replaces the local copy
// unconditionally. Trust-on-read: no verification is performed here.
func (c *Client) Synchronize(ctx context.Context) (Record, error) {
	rec, err := c.fetch(ctx)
	if err != nil {
		return Record{}, err
	}
	c.mu.Lock()
	c.local = rec.Data
	c.mu.Unlock()
	return rec, nil
}

// Submit computes the digest of data and sends both to the vault's write
// endpoint. Any rejection is surfaced as an error and leaves the local copy
// untouched; on success the client re-synchronizes.
func (c *Client) Submit(ctx context.Context, data string) error {
	payload := struct {
		Data string `json:"data"`
		Hash string `json:"hash"`
	}{Data: data, Hash: Digest(data)}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal write payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build write request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("write request to %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("write rejected: %s", readError(resp))
	}

	if _, err := c.Synchronize(ctx); err != nil {
		return fmt.Errorf("post-write synchronize: %w", err)
	}
	return nil
}

// Verify runs the three-way integrity check against the client's local copy.
//
// The verdict is Intact iff the server's asserted digest equals both the
// digest of the local copy and the digest of the server's own payload. The
// second leg matters: the server payload can diverge from its asserted hash
// without the client's copy being involved at all, and that is still tamper.
//
// On a Tampered verdict the restore flow runs automatically: the latest
// backup is popped, the local copy is overwritten with it, and a fresh
// Synchronize confirms the promoted state. If the history is exhausted the
// restore error is returned alongside the Tampered verdict and local state
// is left unchanged.
func (c *Client) Verify(ctx context.Context) (Verdict, error) {
	return c.VerifyData(ctx, c.Data())
}

// VerifyData is Verify against an explicit payload instead of the stored
// local copy.
func (c *Client) VerifyData(ctx context.Context, data string) (Verdict, error) {
	rec, err := c.fetch(ctx)
	if err != nil {
		return VerdictTampered, fmt.Errorf("fetch record for verify: %w", err)
	}

	localHash := Digest(data)
	serverDataHash := Digest(rec.Data)
	if rec.Integrity == localHash && rec.Integrity == serverDataHash {
		return VerdictIntact, nil
	}

	if _, err := c.Restore(ctx); err != nil {
		return VerdictTampered, fmt.Errorf("restore after tamper detection: %w", err)
	}
	return VerdictTampered, nil
}

// Restore requests the latest backup from the vault, overwrites the local
// copy with it, and re-synchronizes to confirm the restored state is now
// authoritative. Fails without touching local state when no backup exists.
func (c *Client) Restore(ctx context.Context) (Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/backup", nil)
	if err != nil {
		return Record{}, fmt.Errorf("build restore request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Record{}, fmt.Errorf("restore request to %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return Record{}, fmt.Errorf("restore rejected: %s", readError(resp))
	}

	var payload struct {
		Message string `json:"message"`
		Current Record `json:"current"`
	}
	if err := decodeJSON(resp.Body, &payload); err != nil {
		return Record{}, fmt.Errorf("decode restore response: %w", err)
	}

	c.mu.Lock()
	c.local = payload.Current.Data
	c.mu.Unlock()

	// Confirm the promoted snapshot is what the vault now serves.
	return c.Synchronize(ctx)
}

// fetch GETs the current record without touching local state.
func (c *Client) fetch(ctx context.Context) (Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return Record{}, fmt.Errorf("build read request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Record{}, fmt.Errorf("read request to %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return Record{}, fmt.Errorf("vault returned status %d", resp.StatusCode)
	}

	var rec Record
	if err := decodeJSON(resp.Body, &rec); err != nil {
		return Record{}, fmt.Errorf("decode record: %w", err)
	}
	return rec, nil
}

// decodeJSON reads at most 1 MB of body and unmarshals it into v.
func decodeJSON(r io.Reader, v any) error {
	body, err := io.ReadAll(io.LimitReader(r, 1<<20))
	if err != nil {
		return err
	}
	return json.Unmarshal(body, v)
}

// readError extracts the error text from a non-200 JSON response body,
// falling back to the raw body.
func readError(resp *http.Response) string {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil || len(body) == 0 {
		return fmt.Sprintf("status %d", resp.StatusCode)
	}
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
		return payload.Error
	}
	return string(body)
}
