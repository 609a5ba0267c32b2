package gw2

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultBase = "https://api.guildwars2.com/v2"

// Client talks to the public Guild Wars 2 API. Authenticated endpoints
// take the API key per call because the bot juggles one key per stored
// account, not one key per process.
type Client struct {
	http    *http.Client
	baseURL string
}

func New(opts ...Option) *Client {
	c := &Client{
		http:    &http.Client{Timeout: 15 * time.Second},
		baseURL: defaultBase,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// doJSON builds the URL, attaches the bearer key when given, and maps
// 401/403/404 to sentinels. 429 is retried once after Retry-After.
func (c *Client) doJSON(ctx context.Context, path, key string, q url.Values, out any) error {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("gw2 http: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusTooManyRequests {
		if ra := res.Header.Get("Retry-After"); ra != "" {
			if sec, _ := strconv.Atoi(ra); sec > 0 {
				select {
				case <-time.After(time.Duration(sec) * time.Second):
				case <-ctx.Done():
					return ctx.Err()
				}
				return c.doJSON(ctx, path, key, q, out)
			}
		}
	}

	switch {
	case res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden:
		return ErrInvalidKey
	case res.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case res.StatusCode < 200 || res.StatusCode >= 300:
		b, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return &APIError{Status: res.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	return json.NewDecoder(res.Body).Decode(out)
}
