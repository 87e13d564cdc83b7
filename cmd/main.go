package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/guttosm/nsepulse/config"
	"github.com/guttosm/nsepulse/internal/app"
	"github.com/guttosm/nsepulse/internal/domain/models"
	"github.com/guttosm/nsepulse/internal/logger"
	"github.com/guttosm/nsepulse/internal/scheduler"
	"github.com/guttosm/nsepulse/internal/screener"
)

const (
	modeScreen      = "screen"
	modeEligibility = "eligibility"
	modeVolatility  = "volatility"
	modeSchedule    = "schedule"
	modeAPI         = "api"
)

// startServer initializes and starts the HTTP server in a separate goroutine.
func startServer(router http.Handler, port string) *http.Server {
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.L().Info().Str("port", port).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L().Fatal().Err(err).Msg("server failed to start")
		}
	}()

	return server
}

// gracefulShutdown blocks until ctx is cancelled (SIGINT/SIGTERM in main),
// then drains the server within 10 seconds and runs cleanup.
func gracefulShutdown(ctx context.Context, server *http.Server, cleanup func()) {
	<-ctx.Done()
	logger.L().Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.L().Error().Err(err).Msg("server forced to shutdown")
	}

	cleanup()
	logger.L().Info().Msg("server exited gracefully")
}

// buildPipeline wires the pipeline for the batch and schedule modes. Run
// history is recorded only when HISTORY_ENABLED is set. The returned cleanup
// closes every opened connection.
func buildPipeline(cfg config.Config) (*screener.Pipeline, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	rdb, err := app.InitRedis(cfg)
	if err != nil {
		logger.L().Warn().Err(err).Msg("redis unavailable, continuing without cache")
	}
	if rdb != nil {
		closers = append(closers, func() { _ = rdb.Close() })
	}

	var recorder screener.RunRecorder
	if cfg.Output.HistoryEnabled {
		repo, closeDB, err := app.InitHistory(cfg)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		closers = append(closers, closeDB)
		recorder = repo
	}

	p, err := app.NewPipeline(cfg, app.InitGateway(cfg, rdb), recorder)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return p, cleanup, nil
}

// runScreening builds the pipeline and executes one batch mode.
func runScreening(ctx context.Context, cfg config.Config, mode string) (*models.RunReport, error) {
	p, cleanup, err := buildPipeline(cfg)
	if err != nil {
		return nil, err
	}
	defer cleanup()
	return screen(ctx, p, mode)
}

// runSchedule runs full screenings on cfg.Schedule until ctx is cancelled.
func runSchedule(ctx context.Context, cfg config.Config) error {
	p, cleanup, err := buildPipeline(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	loc, err := scheduler.LoadLocation(cfg.Schedule.Timezone)
	if err != nil {
		return fmt.Errorf("schedule timezone: %w", err)
	}
	s, err := scheduler.New(ctx, cfg.Schedule.Cron, loc, func(ctx context.Context) error {
		_, err := p.Run(ctx)
		return err
	})
	if err != nil {
		return err
	}

	if cfg.Schedule.RunOnStart {
		s.RunNow()
	}
	s.Start()
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	s.Stop(stopCtx)
	return nil
}

func screen(ctx context.Context, p *screener.Pipeline, mode string) (*models.RunReport, error) {
	switch mode {
	case modeScreen:
		return p.Run(ctx)
	case modeEligibility:
		return p.Eligibility(ctx)
	case modeVolatility:
		return p.ScreenFile(ctx)
	default:
		return nil, fmt.Errorf("unknown mode %q", mode)
	}
}

// main is the entry point of the nsepulse application.
//
// Modes (selected via --mode flag):
//   - screen:      full run, eligibility CSV plus one delta file per volatile symbol.
//   - eligibility: price band and market cap stages only.
//   - volatility:  volatility stage over the symbols of an existing eligibility CSV.
//   - schedule:    full runs on SCHEDULE_CRON until interrupted.
//   - api:         REST API over the recorded run history.
//
// Flags:
//   - --mode:        Execution mode. Default: "screen".
//   - --input:       Eligibility CSV to read/write. Defaults to OUTPUT_ELIGIBLE_FILE.
//   - --out:         Directory for delta files. Defaults to OUTPUT_STOCK_DIR.
//   - --concurrency: Max in-flight provider calls per stage. Defaults to SCREEN_CONCURRENCY.
//   - --port:        Port for API mode. Defaults to SERVER_PORT.
func main() {
	config.LoadConfig()
	logger.Init()

	cfg := config.AppConfig
	mode := flag.String("mode", modeScreen, "Mode: screen, eligibility, volatility, schedule or api")
	input := flag.String("input", cfg.Output.EligibleFile, "Eligibility CSV path")
	out := flag.String("out", cfg.Output.StockDir, "Directory for per-symbol delta files")
	concurrency := flag.Int("concurrency", cfg.Screen.Concurrency, "Max concurrent provider calls per stage")
	port := flag.String("port", cfg.Server.Port, "Port for API mode")
	flag.Parse()

	cfg.Output.EligibleFile = *input
	cfg.Output.StockDir = *out
	if *concurrency > 0 {
		cfg.Screen.Concurrency = *concurrency
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *mode == modeAPI {
		logger.L().Info().Msg("starting API server")
		config.AppConfig = cfg
		router, cleanup, err := app.InitializeApp()
		if err != nil {
			logger.L().Fatal().Err(err).Msg("app init error")
		}
		server := startServer(router, *port)
		gracefulShutdown(ctx, server, cleanup)
		return
	}

	if *mode == modeSchedule {
		logger.L().Info().Str("cron", cfg.Schedule.Cron).Str("timezone", cfg.Schedule.Timezone).Msg("starting scheduler")
		if err := runSchedule(ctx, cfg); err != nil {
			logger.L().Fatal().Err(err).Msg("scheduler failed")
		}
		return
	}

	logger.L().Info().Str("mode", *mode).Int("concurrency", cfg.Screen.Concurrency).Msg("running screening")
	report, err := runScreening(ctx, cfg, *mode)
	if err != nil {
		logger.L().Fatal().Err(err).Str("mode", *mode).Msg("screening failed")
	}
	logger.L().Info().
		Str("run_id", report.ID.String()).
		Strs("volatile", report.VolatileSymbols()).
		Msg("screening completed")
}
