// Package marketapi is the HTTP client for the item persistence service,
// used by the publication pipeline to create listings.
package marketapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/utf4/dbay/internal/models"
)

// Client talks to the market REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a market API client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// CreateListing persists a new listing and returns the store-generated id.
func (c *Client) CreateListing(ctx context.Context, listing *models.Item) (string, error) {
	payload, err := json.Marshal(listing)
	if err != nil {
		return "", fmt.Errorf("failed to encode listing: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/item/add", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to reach market API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read market API response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("create listing returned status %d: %s", resp.StatusCode, string(body))
	}

	var ack models.InsertAck
	if err := json.Unmarshal(body, &ack); err != nil {
		return "", fmt.Errorf("failed to parse write ack: %w", err)
	}
	if !ack.Acknowledged || ack.InsertedID == "" {
		return "", fmt.Errorf("create listing was not acknowledged")
	}
	return ack.InsertedID, nil
}
