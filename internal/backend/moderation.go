package backend

import (
	"context"
	"fmt"
	"net/url"
	"time"
)

// ModerationClient asks the moderation backend whether a subject is blocked.
type ModerationClient struct {
	c formClient
}

// NewModerationClient builds a client for endpoint. timeout bounds each request.
func NewModerationClient(endpoint string, timeout time.Duration) *ModerationClient {
	return &ModerationClient{c: newFormClient(endpoint, timeout)}
}

type blockedResponse struct {
	Status  string `json:"status"`
	Blocked bool   `json:"blocked"`
}

// IsBlocked implements core.Moderator. A response whose status is not
// "success" is reported as an error.
func (m *ModerationClient) IsBlocked(ctx context.Context, subject string) (bool, error) {
	var resp blockedResponse
	if err := m.c.post(ctx, url.Values{"uid": {subject}}, &resp); err != nil {
		return false, fmt.Errorf("moderation check: %w", err)
	}
	if resp.Status != statusSuccess {
		return false, fmt.Errorf("moderation check: backend status %q", resp.Status)
	}
	return resp.Blocked, nil
}
