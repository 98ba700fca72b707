package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// errorBodyLimit caps how much of a failed reply is kept for the error text.
const errorBodyLimit = 4096

// statusError turns a non-200 status and its (truncated) body into an error.
type statusError func(status int, body []byte) error

// doJSON sends in (nil for no body) and decodes a 200 reply into out
// (nil to discard it). Connection failures wrap ErrProviderDown; other
// statuses are classified by onStatus.
func doJSON(ctx context.Context, client *http.Client, method, url string, header http.Header, in, out any, onStatus statusError) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return err
	}
	for k, v := range header {
		req.Header[k] = v
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderDown, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return onStatus(resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// providerDown is the statusError for endpoints where any failure means
// the backend is unusable.
func providerDown(status int, _ []byte) error {
	return fmt.Errorf("%w: status %d", ErrProviderDown, status)
}

// modelFor picks the per-request model, else the provider default.
func modelFor(opts *ChatOptions, def string) string {
	if opts != nil && opts.Model != "" {
		return opts.Model
	}
	return def
}
