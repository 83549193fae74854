package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type Config struct {
	BaseURL    string // e.g. https://xyz.supabase.co
	ServiceKey string
	Bucket     string
}

// Client talks to the temporary object store (supabase storage REST API).
// Proof files live there only between intake and processing.
type Client struct {
	cfg   Config
	httpc *http.Client
	log   *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Client {
	return &Client{
		cfg: cfg,
		httpc: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: logger,
	}
}

// FetchObject downloads a temporary object by its public URL. No retry
// here: a failed fetch fails the whole job, which gets dead-lettered.
func (c *Client) FetchObject(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)

	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}

	resp, err := c.httpc.Do(req)

	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", rawURL, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)

	if err != nil {
		return nil, fmt.Errorf("fetch %s: read body: %w", rawURL, err)
	}

	return data, nil
}

// DeleteObjects batch-deletes objects from the bucket. Callers treat
// failures as log-only: by the time this runs the durable copies exist.
func (c *Client) DeleteObjects(ctx context.Context, names []string) error {
	if len(names) == 0 {
		return nil
	}

	body, err := json.Marshal(map[string][]string{"prefixes": names})

	if err != nil {
		return fmt.Errorf("delete objects: %w", err)
	}

	endpoint := strings.TrimSuffix(c.cfg.BaseURL, "/") + "/storage/v1/object/" + c.cfg.Bucket

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, bytes.NewReader(body))

	if err != nil {
		return fmt.Errorf("delete objects: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.ServiceKey)

	resp, err := c.httpc.Do(req)

	if err != nil {
		return fmt.Errorf("delete objects: %w", err)
	}

	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("delete objects: unexpected status %d", resp.StatusCode)
	}

	c.log.Debug("temporary objects deleted", "count", len(names))
	return nil
}

// ObjectNameFromURL extracts the object name (last path segment) from a
// storage URL, dropping any query string.
func ObjectNameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)

	if err != nil {
		// fall back to naive split
		if i := strings.LastIndex(rawURL, "/"); i >= 0 {
			return rawURL[i+1:]
		}
		return rawURL
	}

	path := strings.TrimSuffix(u.Path, "/")

	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}
