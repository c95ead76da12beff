package dashboard

import (
	"sort"
	"strings"
)

// Symbol is a ticker offered by autocomplete.
type Symbol struct {
	Ticker string `json:"ticker"`
	Name   string `json:"name"`
}

// KnownSymbols is the static autocomplete list, sorted by ticker.
var KnownSymbols = sortedSymbols([]Symbol{
	{"AAPL", "Apple Inc."},
	{"ADBE", "Adobe Inc."},
	{"AMD", "Advanced Micro Devices"},
	{"AMZN", "Amazon.com Inc."},
	{"AVGO", "Broadcom Inc."},
	{"BAC", "Bank of America"},
	{"BRK.B", "Berkshire Hathaway"},
	{"COST", "Costco Wholesale"},
	{"CRM", "Salesforce Inc."},
	{"DIS", "Walt Disney Co."},
	{"GOOGL", "Alphabet Inc."},
	{"INTC", "Intel Corp."},
	{"JNJ", "Johnson & Johnson"},
	{"JPM", "JPMorgan Chase"},
	{"KO", "Coca-Cola Co."},
	{"MA", "Mastercard Inc."},
	{"META", "Meta Platforms"},
	{"MSFT", "Microsoft Corp."},
	{"NFLX", "Netflix Inc."},
	{"NVDA", "NVIDIA Corp."},
	{"ORCL", "Oracle Corp."},
	{"PEP", "PepsiCo Inc."},
	{"PFE", "Pfizer Inc."},
	{"QQQ", "Invesco QQQ Trust"},
	{"SPY", "SPDR S&P 500 ETF"},
	{"TSLA", "Tesla Inc."},
	{"UNH", "UnitedHealth Group"},
	{"V", "Visa Inc."},
	{"WMT", "Walmart Inc."},
	{"XOM", "Exxon Mobil"},
})

func sortedSymbols(s []Symbol) []Symbol {
	sort.Slice(s, func(i, j int) bool { return s[i].Ticker < s[j].Ticker })
	return s
}

// Suggest returns up to limit symbols whose ticker starts with query or
// whose name contains it, ticker matches first. Matching ignores case. An
// empty query matches nothing.
func Suggest(query string, limit int) []Symbol {
	q := strings.ToUpper(strings.TrimSpace(query))
	if q == "" || limit <= 0 {
		return nil
	}

	var byTicker, byName []Symbol
	for _, s := range KnownSymbols {
		switch {
		case strings.HasPrefix(s.Ticker, q):
			byTicker = append(byTicker, s)
		case strings.Contains(strings.ToUpper(s.Name), q):
			byName = append(byName, s)
		}
	}

	out := append(byTicker, byName...)
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Tickers returns the ticker of every known symbol.
func Tickers() []string {
	out := make([]string, len(KnownSymbols))
	for i, s := range KnownSymbols {
		out[i] = s.Ticker
	}
	return out
}
