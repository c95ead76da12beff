// Package httpapi serves the dashboard over HTTP: a JSON API over the board,
// the embedded web page and a WebSocket feed of rendered views.
package httpapi

import (
	"predictboard/internal/dashboard"
	"predictboard/internal/store"
)

// PredictRequest is the body of POST /api/predict.
type PredictRequest struct {
	Ticker string `json:"ticker"`
}

// PredictResponse acknowledges an accepted submission.
type PredictResponse struct {
	Ticker string `json:"ticker"`
}

// ThemeRequest is the body of POST /api/theme. An empty theme toggles.
type ThemeRequest struct {
	Theme string `json:"theme"`
}

// ThemeResponse reports the theme now in effect.
type ThemeResponse struct {
	Theme string `json:"theme"`
}

// SuggestResponse lists autocomplete matches.
type SuggestResponse struct {
	Symbols []dashboard.Symbol `json:"symbols"`
}

// JournalResponse lists journaled predictions, newest first.
type JournalResponse struct {
	Ticker  string                   `json:"ticker"`
	Records []store.PredictionRecord `json:"records"`
}

// TapeResponse lists the quote snapshots recorded on one day.
type TapeResponse struct {
	Date      string                `json:"date"`
	Snapshots []store.QuoteSnapshot `json:"snapshots"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status   string `json:"status"`
	Upstream string `json:"upstream"`
	Clients  int    `json:"clients"`
	Version  uint64 `json:"version"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// wsCommand is a client-to-server WebSocket message.
type wsCommand struct {
	Type   string `json:"type"`
	Ticker string `json:"ticker,omitempty"`
	Theme  string `json:"theme,omitempty"`
}

// wsMessage is a server-to-client WebSocket message.
type wsMessage struct {
	Type  string          `json:"type"`
	View  *dashboard.View `json:"view,omitempty"`
	Error string          `json:"error,omitempty"`
}
