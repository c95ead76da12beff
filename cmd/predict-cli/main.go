package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"predictboard/internal/config"
	"predictboard/internal/dashboard"
	"predictboard/internal/domain"
	"predictboard/internal/forecast"
	"predictboard/internal/predictapi"
	"predictboard/internal/util"
	"predictboard/pkg/boardclient"
)

const version = "0.1.0"

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: predict-cli <command> [options]\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  version                   Print the CLI version\n")
	fmt.Fprintf(os.Stderr, "  health                    Check the prediction service\n")
	fmt.Fprintf(os.Stderr, "  predict TICKER [-window N] Fetch a prediction from the service\n")
	fmt.Fprintf(os.Stderr, "  quotes [TICKERS...]       Fetch live quotes from the service\n")
	fmt.Fprintf(os.Stderr, "  state                     Show the web dashboard state\n")
	fmt.Fprintf(os.Stderr, "  submit TICKER             Submit a ticker to the web dashboard\n")
	fmt.Fprintf(os.Stderr, "  journal TICKER [-limit N] List journaled predictions\n")
	fmt.Fprintf(os.Stderr, "\n")
}

func main() {
	flag.Usage = usage

	if len(os.Args) < 2 {
		flag.Usage()
		os.Exit(1)
	}

	_ = godotenv.Load()

	cmd, args := os.Args[1], os.Args[2:]
	if cmd == "version" {
		fmt.Printf("predict-cli %s\n", version)
		return
	}

	cfg, err := config.Load(config.Path())
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}
	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	api := predictapi.NewClient(cfg.API.BaseURL, cfg.API.Timeout, logger)
	dash := boardclient.NewClient(dashboardURL(cfg))

	switch cmd {
	case "health":
		err = runHealth(ctx, os.Stdout, api)
	case "predict":
		err = runPredict(ctx, os.Stdout, api, cfg, args)
	case "quotes":
		err = runQuotes(ctx, os.Stdout, api, cfg, args)
	case "state":
		err = runState(ctx, os.Stdout, dash)
	case "submit":
		err = runSubmit(ctx, os.Stdout, dash, args)
	case "journal":
		err = runJournal(ctx, os.Stdout, dash, args)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", cmd)
		flag.Usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", cmd, err)
		os.Exit(1)
	}
}

// dashboardURL is PREDICTBOARD_URL, or the configured web listener.
func dashboardURL(cfg *config.Config) string {
	if u := os.Getenv("PREDICTBOARD_URL"); u != "" {
		return u
	}
	host := cfg.Server.Host
	if host == "" || host == "0.0.0.0" {
		host = "localhost"
	}
	return fmt.Sprintf("http://%s:%d", host, cfg.Server.Port)
}

// splitArgs lets flags follow a leading positional argument.
func splitArgs(args []string) (positional string, rest []string) {
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		return args[0], args[1:]
	}
	return "", args
}

func runHealth(ctx context.Context, w io.Writer, api *predictapi.Client) error {
	if err := api.Health(ctx); err != nil {
		return err
	}
	msg, err := api.Ping(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s: ok (ping: %s)\n", api.BaseURL(), msg)
	return nil
}

func runPredict(ctx context.Context, w io.Writer, api *predictapi.Client, cfg *config.Config, args []string) error {
	raw, rest := splitArgs(args)
	fs := flag.NewFlagSet("predict", flag.ContinueOnError)
	window := fs.Int("window", cfg.Dashboard.Window, "days of history to fetch")
	if err := fs.Parse(rest); err != nil {
		return err
	}
	if raw == "" {
		raw = fs.Arg(0)
	}
	ticker, err := domain.NormalizeTicker(raw)
	if err != nil {
		return err
	}

	resp, err := api.FetchPrediction(ctx, ticker, *window)
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	point := forecast.NewPredictionPoint(time.Now().In(loc), cfg.Dashboard.PredictionOffsetDays, resp.Prediction)
	m, err := forecast.Compute(resp.History, point)
	if err != nil {
		return err
	}

	change := dashboard.Placeholder
	if m.PercentValid {
		change = dashboard.Arrow(m.Direction) + dashboard.FormatPercent(m.Percent)
	}
	series := forecast.Merge(resp.History, point)
	lo, hi := forecast.Bounds(series)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Ticker\t%s\n", ticker)
	fmt.Fprintf(tw, "History\t%d days (%s to %s)\n", len(resp.History), resp.History[0].Date, m.Current.Date)
	fmt.Fprintf(tw, "Range\t%s to %s\n", dashboard.FormatPrice(lo), dashboard.FormatPrice(hi))
	fmt.Fprintf(tw, "Current\t%s\t%s\n", dashboard.FormatPrice(m.Current.Close), dashboard.FormatDate(m.Current.Date))
	fmt.Fprintf(tw, "Predicted\t%s\t%s\t%s\n", dashboard.FormatPrice(m.Predicted.Close), dashboard.FormatDate(m.Predicted.Date), change)
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, row := range dashboard.Sparkline(series, 60, 8) {
		fmt.Fprintln(w, "  "+row)
	}
	return nil
}

func runQuotes(ctx context.Context, w io.Writer, api *predictapi.Client, cfg *config.Config, args []string) error {
	tickers := cfg.Dashboard.Tickers
	if len(args) > 0 {
		tickers = make([]string, 0, len(args))
		for _, a := range args {
			t, err := domain.NormalizeTicker(a)
			if err != nil {
				return err
			}
			tickers = append(tickers, t)
		}
	}

	quotes, err := api.FetchQuotes(ctx, tickers)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TICKER\tPRICE\tCHANGE\tPERCENT")
	for _, q := range quotes {
		fmt.Fprintf(tw, "%s\t%s\t%s %s\t%s\n", q.Ticker, dashboard.FormatPrice(q.Price),
			dashboard.Arrow(domain.DirectionOf(q.Change)), dashboard.FormatChange(q.Change), dashboard.FormatQuotePercent(q.Percent))
	}
	return tw.Flush()
}

func runState(ctx context.Context, w io.Writer, dash *boardclient.Client) error {
	v, err := dash.State(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "version %d  theme %s\n", v.Version, v.Theme)
	if v.Form.Ticker != "" {
		status := "ready"
		if v.Form.Disabled {
			status = "loading"
		}
		fmt.Fprintf(w, "ticker %s (%s)\n", v.Form.Ticker, status)
	}
	if v.Error != "" {
		fmt.Fprintf(w, "error: %s\n", v.Error)
	}
	if v.Cards != nil {
		fmt.Fprintf(w, "current %s on %s, predicted %s on %s %s\n",
			v.Cards.Current.Value, v.Cards.Current.Date,
			v.Cards.Predicted.Value, v.Cards.Predicted.Date, v.Cards.Predicted.Change)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, q := range v.Board.Quotes {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", q.Ticker, q.Price, q.Change, q.Percent)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if v.Board.Error != "" {
		fmt.Fprintf(w, "quotes: %s\n", v.Board.Error)
	}
	return nil
}

func runSubmit(ctx context.Context, w io.Writer, dash *boardclient.Client, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("want exactly one ticker")
	}
	ticker, err := dash.Submit(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "submitted %s\n", ticker)
	return nil
}

func runJournal(ctx context.Context, w io.Writer, dash *boardclient.Client, args []string) error {
	raw, rest := splitArgs(args)
	fs := flag.NewFlagSet("journal", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "maximum records")
	if err := fs.Parse(rest); err != nil {
		return err
	}
	if raw == "" {
		raw = fs.Arg(0)
	}
	if raw == "" {
		return fmt.Errorf("ticker required")
	}

	records, err := dash.Journal(ctx, raw, *limit)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "APPLIED\tLAST CLOSE\tTARGET\tPREDICTED")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s (%s)\t%s\t%s\n", r.AppliedAt.Local().Format(time.DateTime),
			dashboard.FormatPrice(r.LastClose), r.LastDate, r.TargetDate, dashboard.FormatPrice(r.Predicted))
	}
	return tw.Flush()
}
