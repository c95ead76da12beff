// Package predictapi is the HTTP client for the remote prediction and quote
// service. It does not retry, cache or de-duplicate; callers decide when to
// call again.
package predictapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"predictboard/internal/domain"
)

// DefaultWindow is the history length requested when the caller passes 0.
const DefaultWindow = 60

// RequestIDHeader carries a per-request id that is also logged.
const RequestIDHeader = "X-Request-ID"

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 4 << 10

// Client talks to the prediction service rooted at baseURL.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
}

// NewClient creates a client for baseURL. A zero timeout leaves requests
// bounded only by the caller's context.
func NewClient(baseURL string, timeout time.Duration, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

// BaseURL returns the service root the client was built with.
func (c *Client) BaseURL() string { return c.baseURL }

// FetchPrediction requests the recent closing history and the predicted
// next price for ticker. The ticker is sent as given apart from trimming;
// uppercasing is the caller's job.
func (c *Client) FetchPrediction(ctx context.Context, ticker string, window int) (domain.PredictionResponse, error) {
	var out domain.PredictionResponse

	ticker = strings.TrimSpace(ticker)
	if ticker == "" {
		return out, &domain.ValidationError{Field: "ticker", Reason: "must not be empty"}
	}
	if window <= 0 {
		window = DefaultWindow
	}

	err := c.postJSON(ctx, "predict", "/api/predict", domain.PredictRequest{Ticker: ticker, Window: window}, &out)
	return out, err
}

// FetchQuotes requests live quotes for tickers. The result order is the
// service's and may differ from the input.
func (c *Client) FetchQuotes(ctx context.Context, tickers []string) ([]domain.Quote, error) {
	if len(tickers) == 0 {
		return nil, &domain.ValidationError{Field: "tickers", Reason: "must not be empty"}
	}
	for _, t := range tickers {
		if strings.TrimSpace(t) == "" {
			return nil, &domain.ValidationError{Field: "tickers", Reason: "contains an empty symbol"}
		}
	}

	var out []domain.Quote
	if err := c.postJSON(ctx, "quotes", "/api/quotes", domain.QuotesRequest{Tickers: tickers}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Health checks GET /health and expects {"status":"ok"}.
func (c *Client) Health(ctx context.Context) error {
	var out struct {
		Status string `json:"status"`
	}
	if err := c.getJSON(ctx, "health", "/health", &out); err != nil {
		return err
	}
	if out.Status != "ok" {
		return &domain.ServiceError{Op: "health", Status: http.StatusOK, Message: "status " + out.Status}
	}
	return nil
}

// Ping checks GET /api/ping and returns the service's message.
func (c *Client) Ping(ctx context.Context) (string, error) {
	var out struct {
		Message string `json:"message"`
	}
	if err := c.getJSON(ctx, "ping", "/api/ping", &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

func (c *Client) postJSON(ctx context.Context, op, path string, body, out any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%s: encoding request: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return fmt.Errorf("%s: building request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, op, out)
}

func (c *Client) getJSON(ctx context.Context, op, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("%s: building request: %w", op, err)
	}
	return c.do(req, op, out)
}

func (c *Client) do(req *http.Request, op string, out any) error {
	id := uuid.NewString()
	req.Header.Set(RequestIDHeader, id)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug("request failed", "op", op, "request_id", id, "error", err)
		return &domain.NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	c.log.Debug("request done", "op", op, "request_id", id,
		"status", resp.StatusCode, "elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &domain.ServiceError{Op: op, Status: resp.StatusCode, Message: errorMessage(resp.Body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &domain.NetworkError{Op: op, Err: fmt.Errorf("decoding response: %w", err)}
	}
	return nil
}

// errorMessage extracts {"error": "..."} from an error body, falling back
// to the trimmed raw text.
func errorMessage(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil && !errors.Is(err, io.EOF) {
		return ""
	}
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return e.Error
	}
	return strings.TrimSpace(string(body))
}
