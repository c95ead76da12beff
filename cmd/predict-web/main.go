package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"predictboard/internal/board"
	"predictboard/internal/config"
	"predictboard/internal/httpapi"
	"predictboard/internal/poll"
	"predictboard/internal/predictapi"
	"predictboard/internal/store"
	"predictboard/internal/util"
)

func main() {
	addr := flag.String("addr", "", "listen address (overrides server.host/port)")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(config.Path())
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	// Setup logging.
	var w io.Writer = os.Stdout
	if cfg.Logging.File != "" {
		logFile, err := util.OpenLogFile(cfg.Logging.File, "predict-web")
		if err != nil {
			log.Fatalf("opening log file: %v", err)
		}
		defer logFile.Close()
		w = io.MultiWriter(os.Stdout, logFile)
	}
	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format, w)
	util.SetDefault(logger)

	loc, err := cfg.Location()
	if err != nil {
		log.Fatalf("loading timezone: %v", err)
	}
	policy, err := poll.ParsePolicy(cfg.Dashboard.Ordering)
	if err != nil {
		log.Fatalf("%v", err)
	}

	stores, err := store.Open(cfg.Storage.DataDir, cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer stores.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if pruners := stores.Pruners(); len(pruners) > 0 {
		ret := store.NewRetention(ctx, cfg.Storage.RetentionDays, logger, pruners...)
		if err := ret.Register(cfg.Storage.PruneSchedule); err != nil {
			log.Fatalf("%v", err)
		}
		ret.Start()
		defer ret.Stop()
		logger.Info("retention scheduled", "schedule", cfg.Storage.PruneSchedule, "keep_days", cfg.Storage.RetentionDays)
	}

	// Create board and server.
	client := predictapi.NewClient(cfg.API.BaseURL, cfg.API.Timeout, logger)
	ctrl := poll.NewController(ctx, poll.Options{Policy: policy, Logger: logger})
	defer ctrl.Close()

	b := board.New(client, ctrl, board.Options{
		Tickers:         cfg.Dashboard.Tickers,
		Window:          cfg.Dashboard.Window,
		PredictInterval: cfg.Dashboard.PredictInterval,
		QuotesInterval:  cfg.Dashboard.QuotesInterval,
		OffsetDays:      cfg.Dashboard.PredictionOffsetDays,
		Location:        loc,
		Theme:           board.Theme(cfg.Dashboard.Theme),
		Predictions:     stores.Predictions,
		Quotes:          stores.Quotes,
		Logger:          logger,
	})
	defer b.Close()

	srv := httpapi.NewDashboardServer(b, httpapi.Options{
		Journal:  stores.Predictions,
		Tape:     stores.Quotes,
		Upstream: client,
		Logger:   logger,
	})

	listen := cfg.Addr()
	if *addr != "" {
		listen = *addr
	}
	httpServer := &http.Server{
		Addr:              listen,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	b.Start(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("dashboard listening", "addr", httpServer.Addr, "api", client.BaseURL(), "ordering", policy)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down dashboard")

		// Closing the board ends every WebSocket session.
		b.Close()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("dashboard stopped", "error", err)
		os.Exit(1)
	}
}
