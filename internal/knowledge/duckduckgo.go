// Package knowledge wraps the DuckDuckGo Instant Answer API as the
// external knowledge source for tier-2 category resolution.
package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.duckduckgo.com/"

// DefaultTimeout bounds a single lookup. There is no retry; a slow
// answer is the same as no answer.
const DefaultTimeout = 6 * time.Second

// Client queries the Instant Answer API.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// New builds a client with the given per-request timeout.
func New(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    defaultBaseURL,
	}
}

// NewWithBaseURL is used by tests to point the client at a stub server.
func NewWithBaseURL(baseURL string, timeout time.Duration) *Client {
	c := New(timeout)
	c.baseURL = baseURL
	return c
}

type instantAnswer struct {
	AbstractText  string `json:"AbstractText"`
	RelatedTopics []struct {
		Text string `json:"Text"`
	} `json:"RelatedTopics"`
}

// Lookup returns a corpus of descriptive text for query: the abstract
// plus the text of up to five related topics, space-joined.
func (c *Client) Lookup(ctx context.Context, query string) (string, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("no_html", "1")
	params.Set("skip_disambig", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("build lookup request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("instant answer request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("instant answer status %d", resp.StatusCode)
	}

	var answer instantAnswer
	if err := json.NewDecoder(resp.Body).Decode(&answer); err != nil {
		return "", fmt.Errorf("decode instant answer: %w", err)
	}

	texts := []string{answer.AbstractText}
	for i, topic := range answer.RelatedTopics {
		if i >= 5 {
			break
		}
		texts = append(texts, topic.Text)
	}
	return strings.TrimSpace(strings.Join(texts, " ")), nil
}
