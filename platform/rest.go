// Package platform is the concrete client for the managed backend that
// owns authentication, the messages table, and realtime change
// notifications. The feed consumes it only through the contract interfaces.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"sealtalk/domain"
)

const defaultRequestTimeout = 15 * time.Second

// Client talks to the platform's REST surface for the messages table.
type Client struct {
	log     *slog.Logger
	baseURL string
	anonKey string
	token   string
	http    *http.Client
}

func NewClient(log *slog.Logger, baseURL, anonKey, accessToken string) *Client {
	return &Client{
		log:     log,
		baseURL: strings.TrimRight(baseURL, "/"),
		anonKey: anonKey,
		token:   accessToken,
		http:    &http.Client{Timeout: defaultRequestTimeout},
	}
}

// ListMessages returns all rows created at or after since, ascending by
// created_at. The retention cutoff is the caller's responsibility; this is
// a plain bounded read.
func (c *Client) ListMessages(ctx context.Context, since time.Time) ([]domain.Message, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("created_at", "gte."+since.UTC().Format(time.RFC3339Nano))
	q.Set("order", "created_at.asc")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/rest/v1/messages?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list messages: unexpected status %d", resp.StatusCode)
	}

	var messages []domain.Message
	if err := json.NewDecoder(resp.Body).Decode(&messages); err != nil {
		return nil, fmt.Errorf("list messages: decoding body: %w", err)
	}
	return messages, nil
}

// InsertMessage submits a draft. The platform assigns id and created_at;
// the stored row is returned for completeness, but visibility flows through
// the change stream, not through this response.
func (c *Client) InsertMessage(ctx context.Context, draft domain.Draft) (domain.Message, error) {
	body, err := json.Marshal(draft)
	if err != nil {
		return domain.Message{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/rest/v1/messages", bytes.NewReader(body))
	if err != nil {
		return domain.Message{}, err
	}
	c.authorize(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=representation")

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.Message{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return domain.Message{}, fmt.Errorf("insert message: unexpected status %d", resp.StatusCode)
	}

	var rows []domain.Message
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return domain.Message{}, fmt.Errorf("insert message: decoding body: %w", err)
	}
	if len(rows) == 0 {
		return domain.Message{}, fmt.Errorf("insert message: empty representation")
	}
	return rows[0], nil
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+c.token)
}
