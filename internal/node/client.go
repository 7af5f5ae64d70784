// Package node talks to the local Minima node. It supplies the publisher's
// host identity and wallet address and performs the best-effort broadcast of
// a created listing to the node's contacts.
package node

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Host is the identity of the user operating the client.
type Host struct {
	Pk   string `json:"pk"`
	Name string `json:"name"`
}

// SendResult is the node's answer to a broadcast request. A non-empty
// Message means the listing was not delivered to contacts; an empty result
// means success.
type SendResult struct {
	Message string `json:"message,omitempty"`
}

// IIdentityProvider resolves the current publisher identity.
type IIdentityProvider interface {
	GetHost(ctx context.Context) (*Host, error)
}

// IWalletProvider resolves the local wallet address.
type IWalletProvider interface {
	GetMiniAddress(ctx context.Context) (string, error)
}

// IBroadcaster sends a created listing to the node's contacts.
type IBroadcaster interface {
	SendListingToContacts(ctx context.Context, listingID string) (*SendResult, error)
}

// Client implements the three node collaborators over the node's HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a node client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

// GetHost fetches the current host identity from the node.
func (c *Client) GetHost(ctx context.Context) (*Host, error) {
	var host Host
	if err := c.getJSON(ctx, "/host", &host); err != nil {
		return nil, fmt.Errorf("failed to get host identity: %w", err)
	}
	return &host, nil
}

// GetMiniAddress fetches the local wallet address from the node.
func (c *Client) GetMiniAddress(ctx context.Context) (string, error) {
	var resp struct {
		Address string `json:"address"`
	}
	if err := c.getJSON(ctx, "/address", &resp); err != nil {
		return "", fmt.Errorf("failed to get wallet address: %w", err)
	}
	return resp.Address, nil
}

// SendListingToContacts asks the node to broadcast the listing with the
// given id to all known contacts. The call is made at most once per
// submission; delivery is best-effort.
func (c *Client) SendListingToContacts(ctx context.Context, listingID string) (*SendResult, error) {
	payload, _ := json.Marshal(map[string]string{"listing_id": listingID})
	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/send", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to contact node: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read node response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("node send returned status %d: %s", resp.StatusCode, string(body))
	}

	var result SendResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse node response: %w", err)
	}
	return &result, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to contact node: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read node response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("node returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse node response: %w", err)
	}
	return nil
}
