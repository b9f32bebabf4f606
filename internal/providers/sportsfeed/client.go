package sportsfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"livescores-service/internal/domain"
	"livescores-service/internal/providers"
	"livescores-service/internal/timeutil"
)

// Config controls how the sportsfeed client reaches the upstream API.
type Config struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	MaxPages   int
}

// Client fetches live and scheduled games from the sportsfeed API and maps
// them to domain snapshots.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient httpDoer
	now        func() time.Time
	maxPages   int
}

// NewClient constructs a sportsfeed client with the provided configuration.
func NewClient(cfg Config) *Client {
	return &Client{
		baseURL:    normalizeBaseURL(cfg.BaseURL),
		apiKey:     cfg.APIKey,
		httpClient: resolveHTTPClient(cfg.HTTPClient),
		now:        time.Now,
		maxPages:   resolveMaxPages(cfg.MaxPages),
	}
}

// FetchLive retrieves the current live games, optionally filtered to teamIDs.
func (c *Client) FetchLive(ctx context.Context, teamIDs []string) ([]domain.Game, error) {
	params := map[string]string{"status": "live"}
	if len(teamIDs) > 0 {
		params["team_ids"] = strings.Join(teamIDs, ",")
	}
	return c.fetchPaged(ctx, "/games/live", params)
}

// FetchSchedule retrieves scheduled games inside the window. Upstream returns
// zero scores for games that have not started.
func (c *Client) FetchSchedule(ctx context.Context, window timeutil.Window) ([]domain.Game, error) {
	params := map[string]string{
		"start_date": timeutil.FormatDate(window.Start),
		"end_date":   timeutil.FormatDate(window.End),
	}
	return c.fetchPaged(ctx, "/games/schedule", params)
}

func (c *Client) fetchPaged(ctx context.Context, path string, params map[string]string) ([]domain.Game, error) {
	page := 1
	fetchedAt := c.now().UTC()
	allGames := make([]domain.Game, 0)

	for {
		req, err := c.buildRequest(ctx, path, params, page)
		if err != nil {
			return nil, err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
			resp.Body.Close()
			return nil, &providers.RateLimitError{
				Provider:   providerName,
				StatusCode: resp.StatusCode,
				RetryAfter: retryAfter,
				Remaining:  resp.Header.Get("X-RateLimit-Remaining"),
			}
		}

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			resp.Body.Close()
			return nil, fmt.Errorf("sportsfeed: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		}

		var payload gamesResponse
		if decodeErr := json.NewDecoder(resp.Body).Decode(&payload); decodeErr != nil {
			resp.Body.Close()
			return nil, decodeErr
		}
		resp.Body.Close()

		for _, g := range payload.Data {
			allGames = append(allGames, mapGame(g, fetchedAt))
		}

		totalPages := payload.Meta.TotalPages
		if totalPages > 0 {
			if page >= totalPages {
				break
			}
		} else {
			if len(payload.Data) == 0 || len(payload.Data) < defaultPerPage {
				break
			}
		}
		if page >= c.maxPages {
			break
		}
		page++
	}

	return allGames, nil
}

func (c *Client) buildRequest(ctx context.Context, path string, params map[string]string, page int) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}

	q := req.URL.Query()
	for key, value := range params {
		q.Set(key, value)
	}
	q.Set("per_page", strconv.Itoa(defaultPerPage))
	q.Set("page", strconv.Itoa(page))
	req.URL.RawQuery = q.Encode()

	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	return req, nil
}

func parseRetryAfter(raw string) time.Duration {
	if raw == "" {
		return 0
	}
	if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}
