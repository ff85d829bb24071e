package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Quote is the daily quote served by the platform's edge function.
type Quote struct {
	Quote  string `json:"quote"`
	Author string `json:"author"`
}

// DailyQuote fetches today's quote. Purely cosmetic; callers should treat
// failures as non-fatal.
func (c *Client) DailyQuote(ctx context.Context) (Quote, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/functions/v1/daily-quote", nil)
	if err != nil {
		return Quote{}, err
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return Quote{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Quote{}, fmt.Errorf("daily quote: unexpected status %d", resp.StatusCode)
	}

	var payload struct {
		Quote Quote `json:"quote"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Quote{}, fmt.Errorf("daily quote: decoding body: %w", err)
	}
	return payload.Quote, nil
}
