package backend

import (
	"context"
	"fmt"
	"net/url"
	"time"
)

// AccountsClient tells the account service that an identity logged out.
type AccountsClient struct {
	c formClient
}

// NewAccountsClient builds a client for endpoint. timeout bounds each request.
func NewAccountsClient(endpoint string, timeout time.Duration) *AccountsClient {
	return &AccountsClient{c: newFormClient(endpoint, timeout)}
}

type statusResponse struct {
	Status string `json:"status"`
}

// NotifyLogout implements core.AccountNotifier.
func (a *AccountsClient) NotifyLogout(ctx context.Context, identity string) error {
	var resp statusResponse
	if err := a.c.post(ctx, url.Values{"uid": {identity}}, &resp); err != nil {
		return fmt.Errorf("logout notification: %w", err)
	}
	if resp.Status != statusSuccess {
		return fmt.Errorf("logout notification: backend status %q", resp.Status)
	}
	return nil
}
