// Package boardclient is a Go client for the predict-web dashboard API.
package boardclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"predictboard/internal/dashboard"
	"predictboard/internal/httpapi"
	"predictboard/internal/store"
)

// APIError is a non-2xx reply from the dashboard server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("dashboard API: %d %s", e.Status, e.Message)
}

// Client talks to a predict-web server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new dashboard API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// State retrieves the rendered dashboard view.
func (c *Client) State(ctx context.Context) (dashboard.View, error) {
	var v dashboard.View
	err := c.do(ctx, http.MethodGet, "/api/state", nil, &v)
	return v, err
}

// Submit asks the server to predict ticker and returns the normalised ticker.
func (c *Client) Submit(ctx context.Context, ticker string) (string, error) {
	var resp httpapi.PredictResponse
	if err := c.do(ctx, http.MethodPost, "/api/predict", httpapi.PredictRequest{Ticker: ticker}, &resp); err != nil {
		return "", err
	}
	return resp.Ticker, nil
}

// DismissError clears the displayed error messages.
func (c *Client) DismissError(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/api/error", nil, nil)
}

// SetTheme sets the theme; an empty theme toggles it. It returns the theme
// now in effect.
func (c *Client) SetTheme(ctx context.Context, theme string) (string, error) {
	var resp httpapi.ThemeResponse
	if err := c.do(ctx, http.MethodPost, "/api/theme", httpapi.ThemeRequest{Theme: theme}, &resp); err != nil {
		return "", err
	}
	return resp.Theme, nil
}

// ToggleTheme flips the theme.
func (c *Client) ToggleTheme(ctx context.Context) (string, error) {
	return c.SetTheme(ctx, "")
}

// Suggest returns autocomplete matches for q.
func (c *Client) Suggest(ctx context.Context, q string) ([]dashboard.Symbol, error) {
	var resp httpapi.SuggestResponse
	err := c.do(ctx, http.MethodGet, "/api/suggest?q="+url.QueryEscape(q), nil, &resp)
	return resp.Symbols, err
}

// Journal retrieves up to limit journaled predictions for ticker, newest
// first. limit <= 0 uses the server default.
func (c *Client) Journal(ctx context.Context, ticker string, limit int) ([]store.PredictionRecord, error) {
	path := "/api/journal/" + url.PathEscape(ticker)
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var resp httpapi.JournalResponse
	err := c.do(ctx, http.MethodGet, path, nil, &resp)
	return resp.Records, err
}

// Tape retrieves the quote snapshots recorded on date (YYYY-MM-DD).
func (c *Client) Tape(ctx context.Context, date string) ([]store.QuoteSnapshot, error) {
	var resp httpapi.TapeResponse
	err := c.do(ctx, http.MethodGet, "/api/tape/"+url.PathEscape(date), nil, &resp)
	return resp.Snapshots, err
}

// Health retrieves the server's health report.
func (c *Client) Health(ctx context.Context) (httpapi.HealthResponse, error) {
	var resp httpapi.HealthResponse
	err := c.do(ctx, http.MethodGet, "/health", nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e httpapi.ErrorResponse
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		if json.Unmarshal(data, &e) != nil || e.Error == "" {
			e.Error = strings.TrimSpace(string(data))
		}
		return &APIError{Status: resp.StatusCode, Message: e.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s %s: %w", method, path, err)
	}
	return nil
}
