package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/recordvault/recordvault/pkg/client"
)

// snapshot mirrors the vault's archived-snapshot JSON.
type snapshot struct {
	ID         string    `json:"id"`
	Data       string    `json:"data"`
	Integrity  string    `json:"integrity"`
	ArchivedAt time.Time `json:"archived_at"`
}

var httpClient = &http.Client{Timeout: 10 * time.Second}

// tamper calls the fault-injection hook directly; it is a debug surface the
// SDK deliberately does not wrap.
func tamper(ctx context.Context, base, data string) (client.Record, error) {
	body, err := json.Marshal(map[string]string{"data": data})
	if err != nil {
		return client.Record{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/tamper", bytes.NewReader(body))
	if err != nil {
		return client.Record{}, fmt.Errorf("build tamper request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return client.Record{}, fmt.Errorf("tamper request to %s: %w", base, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return client.Record{}, fmt.Errorf("read tamper response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return client.Record{}, fmt.Errorf("tamper endpoint returned status %d: %s", resp.StatusCode, raw)
	}

	var payload struct {
		Current client.Record `json:"current"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return client.Record{}, fmt.Errorf("decode tamper response: %w", err)
	}
	return payload.Current, nil
}

// fetchHistory lists all archived snapshots by walking /history/:idx.
func fetchHistory(ctx context.Context, base string) ([]snapshot, error) {
	count, err := historyLen(ctx, base)
	if err != nil {
		return nil, err
	}

	snaps := make([]snapshot, 0, count)
	for i := 0; i < count; i++ {
		var s snapshot
		if err := getJSON(ctx, fmt.Sprintf("%s/history/%d", base, i), &s); err != nil {
			return nil, fmt.Errorf("fetch snapshot %d: %w", i, err)
		}
		snaps = append(snaps, s)
	}
	return snaps, nil
}

func historyLen(ctx context.Context, base string) (int, error) {
	var overview struct {
		Entries int `json:"entries"`
	}
	if err := getJSON(ctx, base+"/history", &overview); err != nil {
		return 0, err
	}
	return overview.Entries, nil
}

func getJSON(ctx context.Context, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s returned status %d", url, resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}
