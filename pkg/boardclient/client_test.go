package boardclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewClient(t *testing.T) {
	baseURL := "http://localhost:8090/"
	c := NewClient(baseURL)

	if c == nil {
		t.Fatal("expected non-nil client")
	}

	if c.baseURL != "http://localhost:8090" {
		t.Errorf("expected trailing slash trimmed, got %q", c.baseURL)
	}

	if c.httpClient == nil {
		t.Fatal("expected non-nil httpClient")
	}
}

func TestSubmit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/predict" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decoding body: %v", err)
		}
		if body["ticker"] != "aapl" {
			t.Errorf("expected ticker aapl, got %q", body["ticker"])
		}
		w.WriteHeader(http.StatusAccepted)
		io.WriteString(w, `{"ticker":"AAPL"}`)
	}))
	defer srv.Close()

	got, err := NewClient(srv.URL).Submit(context.Background(), "aapl")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if got != "AAPL" {
		t.Errorf("expected AAPL, got %q", got)
	}
}

func TestAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		io.WriteString(w, `{"error":"board: a prediction request is already in progress"}`)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Submit(context.Background(), "MSFT")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Status != http.StatusConflict {
		t.Errorf("expected 409, got %d", apiErr.Status)
	}
	if apiErr.Message != "board: a prediction request is already in progress" {
		t.Errorf("unexpected message %q", apiErr.Message)
	}
}

func TestStateAndJournal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/state":
			io.WriteString(w, `{"version":3,"title":"AI Stock Predictor","theme":"light","board":{"tickers":["AAPL"],"quotes":[]}}`)
		case "/api/journal/AAPL":
			if r.URL.Query().Get("limit") != "2" {
				t.Errorf("expected limit=2, got %q", r.URL.RawQuery)
			}
			io.WriteString(w, `{"ticker":"AAPL","records":[{"ticker":"AAPL","target_date":"2024-05-19","predicted":"153.75"}]}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	v, err := c.State(context.Background())
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if v.Version != 3 || v.Theme != "light" || len(v.Board.Tickers) != 1 {
		t.Errorf("unexpected view %+v", v)
	}

	recs, err := c.Journal(context.Background(), "AAPL", 2)
	if err != nil {
		t.Fatalf("Journal: %v", err)
	}
	if len(recs) != 1 || recs[0].TargetDate != "2024-05-19" || recs[0].Predicted.String() != "153.75" {
		t.Errorf("unexpected records %+v", recs)
	}

	if _, err := c.Tape(context.Background(), "2024-05-17"); err == nil {
		t.Error("expected error for missing route")
	}
}
