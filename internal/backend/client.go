// Package backend talks to the external services the relay depends on: the
// moderation backend that answers "is this subject blocked" and the account
// service that records logouts. Both speak form-encoded requests and JSON
// responses carrying a "status" field.
package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const statusSuccess = "success"

// maxResponseBytes caps how much of a backend response is read.
const maxResponseBytes = 64 << 10

type formClient struct {
	url  string
	http *http.Client
}

func newFormClient(endpoint string, timeout time.Duration) formClient {
	return formClient{
		url:  endpoint,
		http: &http.Client{Timeout: timeout},
	}
}

// post sends form values and decodes the JSON response into out.
func (c formClient) post(ctx context.Context, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", c.url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("post %s: unexpected status %d", c.url, resp.StatusCode)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
