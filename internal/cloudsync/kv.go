package cloudsync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// KV is the shared cloud key-value store collaborator.
//
// Implementations are called from worker goroutines only, never from
// the UI-visible path. A hung call hangs its worker; no timeout is
// imposed here beyond what the implementation carries.
type KV interface {
	// List returns a snapshot of every entry in the shared keyspace.
	List(ctx context.Context) (map[string]string, error)
	// Set writes one entry, overwriting any existing value.
	Set(ctx context.Context, key, value string) error
}

// MemoryKV is an in-process KV used by tests and offline runs.
type MemoryKV struct {
	mu      sync.Mutex
	entries map[string]string
}

// NewMemoryKV creates an empty in-memory KV.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{entries: make(map[string]string)}
}

// List implements KV.
func (m *MemoryKV) List(ctx context.Context) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.entries))
	for k, v := range m.entries {
		out[k] = v
	}
	return out, nil
}

// Set implements KV.
func (m *MemoryKV) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = value
	return nil
}

// HTTPKV talks to the shared key-value service over HTTP:
//
//	GET  {base}/kv          -> JSON object of all entries
//	PUT  {base}/kv/{key}    -> body is the raw value
type HTTPKV struct {
	base   string
	client *http.Client
}

// NewHTTPKV creates a client for the KV service at base.
// A nil client gets a default with a 30s timeout.
func NewHTTPKV(base string, client *http.Client) *HTTPKV {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPKV{base: strings.TrimRight(base, "/"), client: client}
}

// List implements KV.
func (h *HTTPKV) List(ctx context.Context) (map[string]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.base+"/kv", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build kv list request: %w", err)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to list kv entries: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("kv list returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read kv list body: %w", err)
	}

	entries := make(map[string]string)
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode kv list: %w", err)
	}
	return entries, nil
}

// Set implements KV.
func (h *HTTPKV) Set(ctx context.Context, key, value string) error {
	u := h.base + "/kv/" + url.PathEscape(key)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u, bytes.NewReader([]byte(value)))
	if err != nil {
		return fmt.Errorf("failed to build kv set request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain")

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to set kv entry %q: %w", key, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("kv set %q returned status %d", key, resp.StatusCode)
	}
	return nil
}
