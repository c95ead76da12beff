package httpapi

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"predictboard/internal/board"
	"predictboard/internal/dashboard"
	"predictboard/internal/domain"
	"predictboard/internal/store"
)

//go:embed web/index.html
var webFS embed.FS

const (
	defaultJournalLimit = 50
	maxSuggestions      = 8
	healthTimeout       = 3 * time.Second
)

// Pinger reports whether the prediction service is reachable.
type Pinger interface {
	Health(ctx context.Context) error
}

// Options configures a DashboardServer. Nil stores serve empty lists.
type Options struct {
	Journal  store.PredictionStore
	Tape     store.QuoteStore
	Upstream Pinger
	Logger   *slog.Logger
	Now      func() time.Time
}

// DashboardServer serves the dashboard HTTP API.
type DashboardServer struct {
	board    *board.Board
	journal  store.PredictionStore
	tape     store.QuoteStore
	upstream Pinger
	log      *slog.Logger
	now      func() time.Time
	hub      *Hub
}

// NewDashboardServer creates a new dashboard HTTP server for b.
func NewDashboardServer(b *board.Board, opts Options) *DashboardServer {
	if opts.Journal == nil {
		opts.Journal = store.NoopStore{}
	}
	if opts.Tape == nil {
		opts.Tape = store.NoopStore{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &DashboardServer{
		board:    b,
		journal:  opts.Journal,
		tape:     opts.Tape,
		upstream: opts.Upstream,
		log:      opts.Logger,
		now:      opts.Now,
	}
	s.hub = newHub(s)
	return s
}

// Hub returns the WebSocket hub.
func (s *DashboardServer) Hub() *Hub { return s.hub }

// RegisterRoutes registers all routes on the given mux.
func (s *DashboardServer) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("POST /api/predict", s.handlePredict)
	mux.HandleFunc("DELETE /api/error", s.handleDismissError)
	mux.HandleFunc("POST /api/theme", s.handleTheme)
	mux.HandleFunc("GET /api/suggest", s.handleSuggest)
	mux.HandleFunc("GET /api/journal/{ticker}", s.handleJournal)
	mux.HandleFunc("GET /api/tape/{date}", s.handleTape)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ws", s.hub.ServeWS)
}

// Handler returns an http.Handler with request-ID and CORS middleware.
func (s *DashboardServer) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return corsMiddleware(s.requestID(mux))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestID echoes X-Request-ID, minting one when the caller sent none.
func (s *DashboardServer) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		s.log.Debug("http request", "method", r.Method, "path", r.URL.Path, "request_id", id)
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSONStatus(w, status, ErrorResponse{Error: msg})
}

// submitStatus maps a board.Submit error to an HTTP status.
func submitStatus(err error) int {
	switch {
	case domain.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, board.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, board.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// view renders the current board state.
func (s *DashboardServer) view() dashboard.View {
	return s.buildView(s.board.Snapshot())
}

func (s *DashboardServer) buildView(st board.State) dashboard.View {
	return dashboard.BuildView(st, s.now())
}

func (s *DashboardServer) handleIndex(w http.ResponseWriter, _ *http.Request) {
	page, err := webFS.ReadFile("web/index.html")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "page unavailable")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(page)
}

func (s *DashboardServer) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.view())
}

func (s *DashboardServer) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req PredictRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	ticker, err := s.board.Submit(req.Ticker)
	if err != nil {
		writeError(w, submitStatus(err), err.Error())
		return
	}
	s.log.Info("prediction submitted", "ticker", ticker, "request_id", w.Header().Get("X-Request-ID"))
	writeJSONStatus(w, http.StatusAccepted, PredictResponse{Ticker: ticker})
}

func (s *DashboardServer) handleDismissError(w http.ResponseWriter, _ *http.Request) {
	s.board.DismissError()
	w.WriteHeader(http.StatusNoContent)
}

func (s *DashboardServer) handleTheme(w http.ResponseWriter, r *http.Request) {
	var req ThemeRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}

	if req.Theme == "" {
		t := s.board.ToggleTheme()
		writeJSON(w, ThemeResponse{Theme: string(t)})
		return
	}
	if !s.board.SetTheme(board.Theme(req.Theme)) {
		writeError(w, http.StatusBadRequest, "theme must be dark or light")
		return
	}
	writeJSON(w, ThemeResponse{Theme: req.Theme})
}

func (s *DashboardServer) handleSuggest(w http.ResponseWriter, r *http.Request) {
	symbols := dashboard.Suggest(r.URL.Query().Get("q"), maxSuggestions)
	if symbols == nil {
		symbols = []dashboard.Symbol{}
	}
	writeJSON(w, SuggestResponse{Symbols: symbols})
}

func (s *DashboardServer) handleJournal(w http.ResponseWriter, r *http.Request) {
	ticker, err := domain.NormalizeTicker(r.PathValue("ticker"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	limit := defaultJournalLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	records, err := s.journal.ListPredictions(r.Context(), ticker, limit)
	if err != nil {
		s.log.Error("listing predictions", "ticker", ticker, "error", err)
		writeError(w, http.StatusInternalServerError, "journal unavailable")
		return
	}
	if records == nil {
		records = []store.PredictionRecord{}
	}
	writeJSON(w, JournalResponse{Ticker: ticker, Records: records})
}

func (s *DashboardServer) handleTape(w http.ResponseWriter, r *http.Request) {
	date := r.PathValue("date")
	snaps, err := s.tape.ReadQuotes(r.Context(), date)
	if err != nil {
		if domain.IsValidation(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.log.Error("reading quote tape", "date", date, "error", err)
		writeError(w, http.StatusInternalServerError, "tape unavailable")
		return
	}
	if snaps == nil {
		snaps = []store.QuoteSnapshot{}
	}
	writeJSON(w, TapeResponse{Date: date, Snapshots: snaps})
}

func (s *DashboardServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:   "ok",
		Upstream: "unknown",
		Clients:  s.hub.Len(),
		Version:  s.board.Snapshot().Version,
	}
	if s.upstream != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		if err := s.upstream.Health(ctx); err != nil {
			s.log.Warn("upstream health check failed", "error", err)
			resp.Status = "degraded"
			resp.Upstream = "down"
		} else {
			resp.Upstream = "ok"
		}
	}
	writeJSON(w, resp)
}
