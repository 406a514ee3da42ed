// Imxind is the imxin daemon. It owns the check-in flow and the log
// collection and serves them over a loopback JSON API.
//
// Usage:
//
//	# Start with ~/.config/imxin/config.yaml (optional) and defaults
//	imxind
//
//	# Use another config file or override through the environment
//	IMXIN_SERVER_HTTP_PORT=9471 imxind -config /etc/imxin/config.yaml
//
//	imxind version
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/imxin/internal/config"
	"github.com/fyrsmithlabs/imxin/internal/flow"
	imxhttp "github.com/fyrsmithlabs/imxin/internal/http"
	"github.com/fyrsmithlabs/imxin/internal/insight"
	"github.com/fyrsmithlabs/imxin/internal/logging"
	"github.com/fyrsmithlabs/imxin/internal/scrub"
	"github.com/fyrsmithlabs/imxin/internal/storage"
	"github.com/fyrsmithlabs/imxin/internal/telemetry"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "config file (default ~/.config/imxin/config.yaml)")
	flag.Parse()

	if args := flag.Args(); len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  imxind [-config path]   Start the imxin daemon\n")
			fmt.Fprintf(os.Stderr, "  imxind version          Show version information\n")
			os.Exit(1)
		}
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func printVersion() {
	fmt.Printf("imxind by Fyrsmith Labs\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run wires every component from cfg, serves until ctx is cancelled and
// then shuts down within cfg.Server.ShutdownTimeout.
func run(ctx context.Context, cfg *config.Config) error {
	tel, err := telemetry.New(ctx, telemetry.FromSettings(cfg.Observability, version))
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() { _ = tel.Shutdown(context.Background()) }()

	logCfg, err := logging.FromSettings(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return fmt.Errorf("invalid logging config: %w", err)
	}
	logger, err := logging.NewLogger(logCfg, tel.LoggerProvider())
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	if h := tel.Health(); h.Degraded {
		logger.Warn(ctx, "telemetry degraded", zap.String("error", h.Error))
	}

	loc, err := cfg.Flow.Location()
	if err != nil {
		return fmt.Errorf("invalid flow timezone: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	kv, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	repo := storage.NewRepository(kv, logger, storage.NewMetrics(reg))
	defer func() {
		if err := repo.Close(); err != nil {
			logger.Warn(context.Background(), "storage close failed", zap.Error(err))
		}
	}()

	ctrl, err := flow.New(ctx, repo, flow.Config{
		CenteringDelay: cfg.Flow.CenteringDelay,
		Logger:         logger,
	})
	if err != nil {
		return fmt.Errorf("failed to start check-in flow: %w", err)
	}
	defer ctrl.Close()

	rulesFile, err := config.ExpandPath(cfg.Insight.RulesFile)
	if err != nil {
		return err
	}
	scrubber, err := scrub.NewReloadable(rulesFile, logger)
	if err != nil {
		return fmt.Errorf("failed to load scrub rules: %w", err)
	}
	if err := scrubber.Watch(ctx); err != nil {
		logger.Warn(ctx, "scrub rules will not be reloaded", zap.Error(err))
	}
	defer func() { _ = scrubber.Close() }()

	deps := imxhttp.Deps{Flow: ctrl, Logs: repo, Scrubber: scrubber, Logger: logger}
	if ic := insight.NewClient(cfg.Insight, scrubber, logger, insight.WithPhysicalSource(insight.SimulatedSource{})); ic.Available() {
		deps.Insight = ic
	}

	srv, err := imxhttp.NewServer(deps, &imxhttp.Config{
		Host:     cfg.Server.Host,
		Port:     cfg.Server.Port,
		Location: loc,
		Gatherer: reg,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("failed to create http server: %w", err)
	}

	logger.Info(ctx, "starting imxind",
		zap.String("version", version),
		zap.String("addr", cfg.Server.Addr()),
		zap.String("storage", cfg.Storage.Backend),
		zap.Bool("insight", deps.Insight != nil),
		zap.Bool("telemetry", tel.IsEnabled()),
	)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info(shutdownCtx, "imxind stopped")
	return nil
}
