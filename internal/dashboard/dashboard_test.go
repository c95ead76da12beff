package dashboard

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"predictboard/internal/board"
	"predictboard/internal/domain"
	"predictboard/internal/forecast"
)

var viewNow = time.Date(2024, 5, 17, 15, 4, 5, 0, time.UTC)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func predictedState() board.State {
	return board.State{
		Version: 7,
		Ticker:  "AAPL",
		History: []domain.PricePoint{
			{Date: "2024-05-15", Close: d("148.20")},
			{Date: "2024-05-16", Close: d("150.00")},
		},
		Prediction:  &domain.PricePoint{Date: "2024-05-19", Close: d("153.75")},
		PredictedAt: viewNow.Add(-5 * time.Minute),
		OffsetDays:  2,
		Tickers:     []string{"AAPL", "MSFT"},
		Theme:       board.ThemeDark,
	}
}

func TestFormatters(t *testing.T) {
	assert.Equal(t, "$150.00", FormatPrice(d("150")))
	assert.Equal(t, "$0.10", FormatPrice(d("0.1")))
	assert.Equal(t, "+2.20", FormatChange(d("2.2")))
	assert.Equal(t, "-5.19", FormatChange(d("-5.19")))
	assert.Equal(t, "+0.00", FormatChange(decimal.Zero))
	assert.Equal(t, "+2.50%", FormatPercent(d("2.5")))
	assert.Equal(t, "-1.25%", FormatPercent(d("-1.25")))
	assert.Equal(t, "(1.17%)", FormatQuotePercent(d("1.1666")))
	assert.Equal(t, "Fri, May 17, 2024", FormatDate("2024-05-17"))
	assert.Equal(t, "not-a-date", FormatDate("not-a-date"))
	assert.Equal(t, "↗", Arrow(domain.DirectionUp))
	assert.Equal(t, "↘", Arrow(domain.DirectionDown))
}

func TestBuildViewWithPrediction(t *testing.T) {
	v := BuildView(predictedState(), viewNow)

	assert.Equal(t, uint64(7), v.Version)
	assert.Equal(t, Title, v.Title)
	assert.Equal(t, "dark", v.Theme)
	assert.Equal(t, "#00ff88", v.Palette.Up)
	assert.Equal(t, FormView{Ticker: "AAPL", Button: "Predict"}, v.Form)
	assert.Empty(t, v.Error)

	require.NotNil(t, v.Chart)
	require.Len(t, v.Chart.Points, 3)
	last := v.Chart.Points[2]
	assert.True(t, last.Predicted)
	assert.Equal(t, "2024-05-19", last.Date)
	assert.Equal(t, "Sun, May 19, 2024", last.Label)
	assert.Equal(t, "$153.75", last.Price)
	assert.False(t, v.Chart.Points[0].Predicted)
	assert.InDelta(t, 148.20, v.Chart.Min, 1e-9)
	assert.InDelta(t, 153.75, v.Chart.Max, 1e-9)
	assert.Equal(t, domain.DirectionUp, v.Chart.Trend)
	assert.Equal(t, "2024-05-19", v.Chart.TargetDate)
	assert.Equal(t, "5 minutes ago", v.Chart.UpdatedAgo)
	assert.Len(t, v.Chart.Series(), 3)

	require.NotNil(t, v.Cards)
	assert.Equal(t, "$150.00", v.Cards.Current.Value)
	assert.Equal(t, "Thu, May 16, 2024", v.Cards.Current.Date)
	assert.Equal(t, "Last Close", v.Cards.Current.Badge)
	assert.Equal(t, "$153.75", v.Cards.Predicted.Value)
	assert.Equal(t, "↗+2.50%", v.Cards.Predicted.Change)
	assert.Equal(t, domain.DirectionUp, v.Cards.Predicted.Direction)
}

func TestBuildViewDownward(t *testing.T) {
	s := predictedState()
	s.Prediction = &domain.PricePoint{Date: "2024-05-19", Close: d("148.125")}

	v := BuildView(s, viewNow)
	require.NotNil(t, v.Cards)
	assert.Equal(t, "↘-1.25%", v.Cards.Predicted.Change)
	assert.Equal(t, domain.DirectionDown, v.Cards.Predicted.Direction)
	// 148.20 -> 148.125 closes lower than it opened.
	assert.Equal(t, domain.DirectionDown, v.Chart.Trend)
}

func TestBuildViewZeroCloseHidesPercent(t *testing.T) {
	s := predictedState()
	s.History = []domain.PricePoint{{Date: "2024-05-16", Close: decimal.Zero}}
	s.Prediction = &domain.PricePoint{Date: "2024-05-19", Close: d("5")}

	v := BuildView(s, viewNow)
	require.NotNil(t, v.Cards)
	assert.Equal(t, Placeholder, v.Cards.Predicted.Change)
	assert.Equal(t, "$0.00", v.Cards.Current.Value)
}

func TestBuildViewWithoutPrediction(t *testing.T) {
	s := board.State{
		Ticker:  "MSFT",
		Loading: true,
		Error:   "Failed to fetch prediction. Please try again.",
		Theme:   board.ThemeLight,
	}

	v := BuildView(s, viewNow)
	assert.Nil(t, v.Chart)
	assert.Nil(t, v.Cards)
	assert.True(t, v.Form.Disabled)
	assert.Equal(t, "Predicting...", v.Form.Button)
	assert.Equal(t, s.Error, v.Error)
	assert.Equal(t, "light", v.Theme)
	assert.Equal(t, lightPalette, v.Palette)
	assert.NotNil(t, v.Board.Quotes)
	assert.Empty(t, v.Board.UpdatedAgo)
}

func TestBuildViewQuoteBoard(t *testing.T) {
	s := board.State{
		Tickers: []string{"AAPL", "TSLA"},
		Quotes: []domain.Quote{
			{Ticker: "AAPL", Price: d("190.5"), Change: d("-1.2"), Percent: d("-0.63")},
			{Ticker: "TSLA", Price: d("180"), Change: d("4.1"), Percent: d("2.33")},
		},
		QuotesError: "Failed to refresh live prices.",
		QuotesAt:    viewNow.Add(-30 * time.Second),
	}

	bv := BuildView(s, viewNow).Board
	assert.Equal(t, []string{"AAPL", "TSLA"}, bv.Tickers)
	assert.Equal(t, "Failed to refresh live prices.", bv.Error)
	require.Len(t, bv.Quotes, 2)
	assert.Equal(t, QuoteView{
		Ticker: "AAPL", Price: "$190.50", Change: "-1.20", Percent: "(-0.63%)", Direction: domain.DirectionDown,
	}, bv.Quotes[0])
	assert.Equal(t, domain.DirectionUp, bv.Quotes[1].Direction)
	assert.Equal(t, "+4.10", bv.Quotes[1].Change)
	assert.Equal(t, "30 seconds ago", bv.UpdatedAgo)
}

func TestPaletteFor(t *testing.T) {
	assert.Equal(t, darkPalette, PaletteFor(board.ThemeDark))
	assert.Equal(t, lightPalette, PaletteFor(board.ThemeLight))
	assert.Equal(t, darkPalette, PaletteFor(board.Theme("neon")))
	assert.Equal(t, "#000000", darkPalette.Background)
}

func TestSparkline(t *testing.T) {
	points := []forecast.ChartPoint{
		{Date: "2024-05-15", Close: d("1")},
		{Date: "2024-05-16", Close: d("2")},
		{Date: "2024-05-19", Close: d("3"), Predicted: true},
	}

	rows := Sparkline(points, 10, 3)
	assert.Equal(t, []string{
		"  ◆",
		" •·",
		"•··",
	}, rows)
}

func TestSparklineFlatAndSampled(t *testing.T) {
	flat := []forecast.ChartPoint{{Close: d("5")}, {Close: d("5")}}
	assert.Equal(t, []string{"  ", "••", "··"}, Sparkline(flat, 4, 3))

	var long []forecast.ChartPoint
	for i := 0; i < 100; i++ {
		long = append(long, forecast.ChartPoint{Close: decimal.NewFromInt(int64(i))})
	}
	long[99].Predicted = true

	rows := Sparkline(long, 20, 5)
	require.Len(t, rows, 5)
	top := []rune(rows[0])
	require.Len(t, top, 20)
	assert.Equal(t, GlyphPrediction, top[19])

	assert.Nil(t, Sparkline(nil, 10, 3))
	assert.Nil(t, Sparkline(long, 0, 3))
}

func TestSuggest(t *testing.T) {
	got := Suggest("a", 3)
	require.Len(t, got, 3)
	assert.Equal(t, "AAPL", got[0].Ticker)
	assert.Equal(t, "ADBE", got[1].Ticker)
	assert.Equal(t, "AMD", got[2].Ticker)

	// Name matches follow ticker matches.
	got = Suggest("tesla", 5)
	require.Len(t, got, 1)
	assert.Equal(t, "TSLA", got[0].Ticker)

	assert.Nil(t, Suggest("  ", 5))
	assert.Nil(t, Suggest("AAPL", 0))
	assert.Empty(t, Suggest("ZZZZ", 5))
}

func TestKnownSymbolsSorted(t *testing.T) {
	tickers := Tickers()
	require.Len(t, tickers, len(KnownSymbols))
	for i := 1; i < len(tickers); i++ {
		assert.Less(t, tickers[i-1], tickers[i])
	}
	for _, tk := range []string{"AAPL", "MSFT", "GOOGL", "TSLA", "AMZN", "NVDA"} {
		assert.Contains(t, tickers, tk)
	}
}
