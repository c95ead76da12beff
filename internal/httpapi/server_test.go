package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"predictboard/internal/board"
	"predictboard/internal/dashboard"
	"predictboard/internal/domain"
	"predictboard/internal/poll"
	"predictboard/internal/store"
)

var fixedNow = time.Date(2024, 5, 17, 15, 4, 5, 0, time.UTC)

// stubFetcher answers predictions immediately unless hold is set, in which
// case every call blocks until release is closed.
type stubFetcher struct {
	hold    bool
	release chan struct{}
}

func (f *stubFetcher) FetchPrediction(ctx context.Context, ticker string, _ int) (domain.PredictionResponse, error) {
	if f.hold {
		select {
		case <-f.release:
		case <-ctx.Done():
			return domain.PredictionResponse{}, ctx.Err()
		}
	}
	return domain.PredictionResponse{
		Ticker: ticker,
		History: []domain.PricePoint{
			{Date: "2024-05-15", Close: decimal.RequireFromString("148.20")},
			{Date: "2024-05-16", Close: decimal.RequireFromString("150.00")},
		},
		Prediction: decimal.RequireFromString("153.75"),
	}, nil
}

func (f *stubFetcher) FetchQuotes(context.Context, []string) ([]domain.Quote, error) {
	return nil, errors.New("not used")
}

type stubPinger struct{ err error }

func (p stubPinger) Health(context.Context) error { return p.err }

// MockPredictionStore is a mock implementation of store.PredictionStore.
type MockPredictionStore struct {
	mock.Mock
}

func (m *MockPredictionStore) SavePrediction(ctx context.Context, rec store.PredictionRecord) error {
	return m.Called(ctx, rec).Error(0)
}

func (m *MockPredictionStore) ListPredictions(ctx context.Context, ticker string, limit int) ([]store.PredictionRecord, error) {
	args := m.Called(ctx, ticker, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]store.PredictionRecord), args.Error(1)
}

func (m *MockPredictionStore) Prune(ctx context.Context, cutoff time.Time) error {
	return m.Called(ctx, cutoff).Error(0)
}

type testServer struct {
	srv     *DashboardServer
	board   *board.Board
	handler http.Handler
}

func newTestServer(t *testing.T, f *stubFetcher, opts Options) *testServer {
	t.Helper()
	if f == nil {
		f = &stubFetcher{}
	}
	tickers := &poll.ManualTickers{}
	ctrl := poll.NewController(context.Background(), poll.Options{NewTicker: tickers.New})
	b := board.New(f, ctrl, board.Options{
		Tickers:  []string{"AAPL", "MSFT"},
		Location: time.UTC,
		Now:      func() time.Time { return fixedNow },
	})
	t.Cleanup(func() {
		if f.hold {
			select {
			case <-f.release:
			default:
				close(f.release)
			}
		}
		b.Close()
		ctrl.Close()
	})

	opts.Now = func() time.Time { return fixedNow }
	srv := NewDashboardServer(b, opts)
	return &testServer{srv: srv, board: b, handler: srv.Handler()}
}

func (ts *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestIndexServesPage(t *testing.T) {
	ts := newTestServer(t, nil, Options{})

	rec := ts.do(t, "GET", "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "AI Stock Predictor")

	rec = ts.do(t, "GET", "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStateReturnsView(t *testing.T) {
	ts := newTestServer(t, nil, Options{})

	rec := ts.do(t, "GET", "/api/state", "")
	require.Equal(t, http.StatusOK, rec.Code)
	v := decode[dashboard.View](t, rec)
	assert.Equal(t, dashboard.Title, v.Title)
	assert.Equal(t, "dark", v.Theme)
	assert.Equal(t, []string{"AAPL", "MSFT"}, v.Board.Tickers)
	assert.Nil(t, v.Chart)
	assert.Equal(t, "Predict", v.Form.Button)
}

func TestPredictRendersChart(t *testing.T) {
	ts := newTestServer(t, nil, Options{})

	rec := ts.do(t, "POST", "/api/predict", `{"ticker":" aapl "}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "AAPL", decode[PredictResponse](t, rec).Ticker)

	var v dashboard.View
	require.Eventually(t, func() bool {
		v = decode[dashboard.View](t, ts.do(t, "GET", "/api/state", ""))
		return v.Chart != nil
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, "AAPL", v.Chart.Ticker)
	assert.Equal(t, "2024-05-19", v.Chart.TargetDate)
	require.NotNil(t, v.Cards)
	assert.Equal(t, "↗+2.50%", v.Cards.Predicted.Change)
}

func TestPredictRejectsBadInput(t *testing.T) {
	ts := newTestServer(t, nil, Options{})

	rec := ts.do(t, "POST", "/api/predict", `{"ticker":"   "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotEmpty(t, decode[ErrorResponse](t, rec).Error)

	rec = ts.do(t, "POST", "/api/predict", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.False(t, ts.board.Snapshot().Loading)
}

func TestPredictWhileLoadingConflicts(t *testing.T) {
	f := &stubFetcher{hold: true, release: make(chan struct{})}
	ts := newTestServer(t, f, Options{})

	rec := ts.do(t, "POST", "/api/predict", `{"ticker":"AAPL"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = ts.do(t, "POST", "/api/predict", `{"ticker":"MSFT"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	v := decode[dashboard.View](t, ts.do(t, "GET", "/api/state", ""))
	assert.True(t, v.Form.Disabled)
	assert.Equal(t, "Predicting...", v.Form.Button)
}

func TestThemeEndpoint(t *testing.T) {
	ts := newTestServer(t, nil, Options{})

	rec := ts.do(t, "POST", "/api/theme", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "light", decode[ThemeResponse](t, rec).Theme)

	rec = ts.do(t, "POST", "/api/theme", `{"theme":"dark"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, board.ThemeDark, ts.board.Snapshot().Theme)

	rec = ts.do(t, "POST", "/api/theme", `{"theme":"neon"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, board.ThemeDark, ts.board.Snapshot().Theme)
}

func TestDismissError(t *testing.T) {
	ts := newTestServer(t, nil, Options{})

	rec := ts.do(t, "DELETE", "/api/error", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, ts.board.Snapshot().Error)
}

func TestSuggest(t *testing.T) {
	ts := newTestServer(t, nil, Options{})

	rec := ts.do(t, "GET", "/api/suggest?q=ms", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[SuggestResponse](t, rec)
	require.NotEmpty(t, resp.Symbols)
	assert.Equal(t, "MSFT", resp.Symbols[0].Ticker)

	rec = ts.do(t, "GET", "/api/suggest", "")
	assert.JSONEq(t, `{"symbols":[]}`, rec.Body.String())
}

func TestJournal(t *testing.T) {
	journal := new(MockPredictionStore)
	records := []store.PredictionRecord{{
		Ticker:     "AAPL",
		AppliedAt:  fixedNow,
		Window:     60,
		LastDate:   "2024-05-16",
		LastClose:  decimal.RequireFromString("150"),
		TargetDate: "2024-05-19",
		Predicted:  decimal.RequireFromString("153.75"),
	}}
	journal.On("ListPredictions", mock.Anything, "AAPL", 5).Return(records, nil)
	journal.On("ListPredictions", mock.Anything, "MSFT", defaultJournalLimit).Return(nil, errors.New("disk gone"))

	ts := newTestServer(t, nil, Options{Journal: journal})

	rec := ts.do(t, "GET", "/api/journal/aapl?limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[JournalResponse](t, rec)
	assert.Equal(t, "AAPL", resp.Ticker)
	require.Len(t, resp.Records, 1)
	assert.Equal(t, "2024-05-19", resp.Records[0].TargetDate)

	rec = ts.do(t, "GET", "/api/journal/MSFT", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = ts.do(t, "GET", "/api/journal/AAPL?limit=-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, "GET", "/api/journal/%21%21", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	journal.AssertExpectations(t)
}

func TestJournalWithoutStoreIsEmpty(t *testing.T) {
	ts := newTestServer(t, nil, Options{})

	rec := ts.do(t, "GET", "/api/journal/AAPL", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ticker":"AAPL","records":[]}`, rec.Body.String())
}

func TestTape(t *testing.T) {
	tape := store.NewParquetStore(t.TempDir())
	at := time.Date(2024, 5, 17, 15, 0, 0, 0, time.UTC)
	require.NoError(t, tape.WriteQuotes(context.Background(), at, []domain.Quote{
		{Ticker: "AAPL", Price: decimal.RequireFromString("190.5"), Change: decimal.RequireFromString("1.5"), Percent: decimal.RequireFromString("0.79")},
	}))

	ts := newTestServer(t, nil, Options{Tape: tape})

	rec := ts.do(t, "GET", "/api/tape/2024-05-17", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[TapeResponse](t, rec)
	require.Len(t, resp.Snapshots, 1)
	require.Len(t, resp.Snapshots[0].Quotes, 1)
	assert.Equal(t, "AAPL", resp.Snapshots[0].Quotes[0].Ticker)

	rec = ts.do(t, "GET", "/api/tape/2024-05-18", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[TapeResponse](t, rec).Snapshots)

	rec = ts.do(t, "GET", "/api/tape/yesterday", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name     string
		upstream Pinger
		status   string
		up       string
	}{
		{"no upstream", nil, "ok", "unknown"},
		{"upstream ok", stubPinger{}, "ok", "ok"},
		{"upstream down", stubPinger{err: &domain.NetworkError{Op: "health", Err: errors.New("refused")}}, "degraded", "down"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, nil, Options{Upstream: tt.upstream})
			rec := ts.do(t, "GET", "/health", "")
			require.Equal(t, http.StatusOK, rec.Code)
			resp := decode[HealthResponse](t, rec)
			assert.Equal(t, tt.status, resp.Status)
			assert.Equal(t, tt.up, resp.Upstream)
		})
	}
}

func TestMiddleware(t *testing.T) {
	ts := newTestServer(t, nil, Options{})

	rec := ts.do(t, "OPTIONS", "/api/predict", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = ts.do(t, "GET", "/api/state", "")
	assert.Len(t, rec.Header().Get("X-Request-ID"), 36)

	req := httptest.NewRequest("GET", "/api/state", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec = httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestWebSocketPushesViews(t *testing.T) {
	ts := newTestServer(t, nil, Options{})
	hs := httptest.NewServer(ts.handler)
	defer hs.Close()

	url := "ws" + strings.TrimPrefix(hs.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	read := func() wsMessage {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var msg wsMessage
		require.NoError(t, conn.ReadJSON(&msg))
		return msg
	}

	first := read()
	require.Equal(t, "view", first.Type)
	assert.Equal(t, "dark", first.View.Theme)
	assert.Eventually(t, func() bool { return ts.srv.Hub().Len() == 1 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, conn.WriteJSON(wsCommand{Type: "theme"}))
	for {
		msg := read()
		if msg.Type == "view" && msg.View.Theme == "light" {
			break
		}
	}

	require.NoError(t, conn.WriteJSON(wsCommand{Type: "bogus"}))
	for {
		msg := read()
		if msg.Type == "error" {
			assert.Equal(t, "unknown command bogus", msg.Error)
			break
		}
	}

	// Closing the board ends the session.
	ts.board.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), err.Error())
			break
		}
	}
	assert.Eventually(t, func() bool { return ts.srv.Hub().Len() == 0 }, 2*time.Second, 5*time.Millisecond)
}
