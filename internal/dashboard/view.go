// Package dashboard renders board state into a front-end neutral view: the
// text, numbers and flags both the terminal and the web client draw.
package dashboard

import (
	"time"

	"github.com/dustin/go-humanize"

	"predictboard/internal/board"
	"predictboard/internal/domain"
	"predictboard/internal/forecast"
)

const (
	Title    = "AI Stock Predictor"
	Subtitle = "Advanced stock price prediction powered by AI"
)

// View is the complete render tree for one state.
type View struct {
	Version  uint64  `json:"version"`
	Title    string  `json:"title"`
	Subtitle string  `json:"subtitle"`
	Theme    string  `json:"theme"`
	Palette  Palette `json:"palette"`

	Form  FormView   `json:"form"`
	Error string     `json:"error,omitempty"`
	Chart *ChartView `json:"chart,omitempty"`
	Cards *CardsView `json:"cards,omitempty"`
	Board BoardView  `json:"board"`
}

// FormView is the ticker input. Disabled while a submission is loading.
type FormView struct {
	Ticker   string `json:"ticker"`
	Disabled bool   `json:"disabled"`
	Button   string `json:"button"`
}

// PlotPoint is one chart point ready to draw.
type PlotPoint struct {
	Date      string  `json:"date"`
	Label     string  `json:"label"`
	Close     float64 `json:"close"`
	Price     string  `json:"price"`
	Predicted bool    `json:"predicted"`
}

// ChartView is the merged history-plus-prediction series.
type ChartView struct {
	Ticker     string           `json:"ticker"`
	Points     []PlotPoint      `json:"points"`
	Min        float64          `json:"min"`
	Max        float64          `json:"max"`
	Trend      domain.Direction `json:"trend"`
	TargetDate string           `json:"target_date"`
	UpdatedAgo string           `json:"updated_ago,omitempty"`

	series []forecast.ChartPoint
}

// Series returns the decimal chart points the view was built from.
func (c *ChartView) Series() []forecast.ChartPoint { return c.series }

// Card is one result card.
type Card struct {
	Label     string           `json:"label"`
	Date      string           `json:"date"`
	Value     string           `json:"value"`
	Badge     string           `json:"badge"`
	Change    string           `json:"change,omitempty"`
	Direction domain.Direction `json:"direction,omitempty"`
}

// CardsView pairs the last close with the prediction.
type CardsView struct {
	Current   Card `json:"current"`
	Predicted Card `json:"predicted"`
}

// QuoteView is one quote board card.
type QuoteView struct {
	Ticker    string           `json:"ticker"`
	Price     string           `json:"price"`
	Change    string           `json:"change"`
	Percent   string           `json:"percent"`
	Direction domain.Direction `json:"direction"`
}

// BoardView is the live quote board.
type BoardView struct {
	Tickers    []string    `json:"tickers"`
	Loading    bool        `json:"loading"`
	Error      string      `json:"error,omitempty"`
	Quotes     []QuoteView `json:"quotes"`
	UpdatedAgo string      `json:"updated_ago,omitempty"`
}

// BuildView derives the view of s. now only feeds the "updated ago" labels.
func BuildView(s board.State, now time.Time) View {
	v := View{
		Version:  s.Version,
		Title:    Title,
		Subtitle: Subtitle,
		Theme:    string(s.Theme),
		Palette:  PaletteFor(s.Theme),
		Form: FormView{
			Ticker:   s.Ticker,
			Disabled: s.Loading,
			Button:   "Predict",
		},
		Error: s.Error,
		Board: buildBoard(s, now),
	}
	if s.Loading {
		v.Form.Button = "Predicting..."
	}

	if s.HasPrediction() {
		series := forecast.Merge(s.History, *s.Prediction)
		v.Chart = buildChart(s, series, now)
		if m, err := forecast.Compute(s.History, *s.Prediction); err == nil {
			v.Cards = buildCards(m)
		}
	}
	return v
}

func buildChart(s board.State, series []forecast.ChartPoint, now time.Time) *ChartView {
	lo, hi := forecast.Bounds(series)
	c := &ChartView{
		Ticker:     s.Ticker,
		Points:     make([]PlotPoint, len(series)),
		Min:        lo.InexactFloat64(),
		Max:        hi.InexactFloat64(),
		Trend:      forecast.Trend(series),
		TargetDate: s.Prediction.Date,
		series:     series,
	}
	for i, p := range series {
		c.Points[i] = PlotPoint{
			Date:      p.Date,
			Label:     FormatDate(p.Date),
			Close:     p.Close.InexactFloat64(),
			Price:     FormatPrice(p.Close),
			Predicted: p.Predicted,
		}
	}
	if !s.PredictedAt.IsZero() {
		c.UpdatedAgo = humanize.RelTime(s.PredictedAt, now, "ago", "from now")
	}
	return c
}

func buildCards(m forecast.Metrics) *CardsView {
	change := Placeholder
	if m.PercentValid {
		change = Arrow(m.Direction) + FormatPercent(m.Percent)
	}
	return &CardsView{
		Current: Card{
			Label: "Current Price",
			Date:  FormatDate(m.Current.Date),
			Value: FormatPrice(m.Current.Close),
			Badge: "Last Close",
		},
		Predicted: Card{
			Label:     "AI Prediction",
			Date:      FormatDate(m.Predicted.Date),
			Value:     FormatPrice(m.Predicted.Close),
			Badge:     "Predicted",
			Change:    change,
			Direction: m.Direction,
		},
	}
}

func buildBoard(s board.State, now time.Time) BoardView {
	bv := BoardView{
		Tickers: s.Tickers,
		Loading: s.QuotesLoading,
		Error:   s.QuotesError,
		Quotes:  make([]QuoteView, 0, len(s.Quotes)),
	}
	for _, q := range s.Quotes {
		bv.Quotes = append(bv.Quotes, QuoteView{
			Ticker:    q.Ticker,
			Price:     FormatPrice(q.Price),
			Change:    FormatChange(q.Change),
			Percent:   FormatQuotePercent(q.Percent),
			Direction: domain.DirectionOf(q.Change),
		})
	}
	if !s.QuotesAt.IsZero() {
		bv.UpdatedAgo = humanize.RelTime(s.QuotesAt, now, "ago", "from now")
	}
	return bv
}
