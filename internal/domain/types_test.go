package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestNormalizeTicker(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"aapl", "AAPL", false},
		{"  msft ", "MSFT", false},
		{"brk.b", "BRK.B", false},
		{"^gspc", "^GSPC", false},
		{"", "", true},
		{"   ", "", true},
		{"AA PL", "", true},
		{"TOOLONGSYMBOL", "", true},
	}
	for _, tt := range tests {
		got, err := NormalizeTicker(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("NormalizeTicker(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err != nil && !IsValidation(err) {
			t.Errorf("NormalizeTicker(%q) error %T is not a ValidationError", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("NormalizeTicker(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDirectionOf(t *testing.T) {
	if DirectionOf(decimal.Zero) != DirectionUp {
		t.Error("zero delta should be up")
	}
	if DirectionOf(decimal.RequireFromString("-0.01")) != DirectionDown {
		t.Error("negative delta should be down")
	}
}

func TestPredictionResponseDecode(t *testing.T) {
	body := `{"ticker":"AAPL","history":[{"date":"2024-05-01","close":169.3},{"date":"2024-05-02","close":173.03}],"prediction":172.4}`

	var resp PredictionResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(resp.History) != 2 {
		t.Fatalf("len(History) = %d, want 2", len(resp.History))
	}
	if !resp.History[1].Close.Equal(decimal.RequireFromString("173.03")) {
		t.Errorf("History[1].Close = %s, want 173.03", resp.History[1].Close)
	}
	if !resp.Prediction.Equal(decimal.RequireFromString("172.4")) {
		t.Errorf("Prediction = %s, want 172.4", resp.Prediction)
	}

	ts, err := resp.History[0].Time(time.UTC)
	if err != nil || ts.Day() != 1 || ts.Month() != time.May {
		t.Errorf("Time() = %v, %v, want 2024-05-01", ts, err)
	}
}

func TestErrorTaxonomy(t *testing.T) {
	cause := errors.New("connection refused")
	wrapped := fmt.Errorf("polling: %w", &NetworkError{Op: "predict", Err: cause})

	var ne *NetworkError
	if !errors.As(wrapped, &ne) {
		t.Fatal("errors.As did not find NetworkError")
	}
	if !errors.Is(wrapped, cause) {
		t.Error("NetworkError should unwrap to its cause")
	}

	se := &ServiceError{Op: "predict", Status: 404, Message: "Model not found for ticker"}
	if se.Error() != "predict: status 404: Model not found for ticker" {
		t.Errorf("ServiceError.Error() = %q", se.Error())
	}
	if IsValidation(se) {
		t.Error("ServiceError should not be a validation error")
	}
}
