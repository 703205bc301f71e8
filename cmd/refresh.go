package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/climbtrack/agescraper/internal/agetable"
	"github.com/climbtrack/agescraper/internal/api"
	"github.com/climbtrack/agescraper/internal/browser"
	"github.com/climbtrack/agescraper/internal/clock/system"
	"github.com/climbtrack/agescraper/internal/logging"
	"github.com/climbtrack/agescraper/internal/progress"
	"github.com/climbtrack/agescraper/internal/progress/sinks"
	"github.com/climbtrack/agescraper/internal/refresh"
	"github.com/climbtrack/agescraper/internal/scrape"
	"github.com/climbtrack/agescraper/internal/storage"
)

// newRefreshCmd creates and configures the 'refresh' subcommand, which runs
// the full fetch/retry/checkpoint loop for one federation.
func newRefreshCmd() *cobra.Command {
	var fedFlag string

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Refreshes the athlete age table for one federation",
		Long: fmt.Sprintf(`Runs up to %d scheduling cycles over the athletes whose age is
still missing for today, fetching profile pages concurrently and saving the
table after every cycle.`, refresh.DefaultMaxCycles),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRefresh(cmd.Context(), fedFlag)
		},
	}

	feds := make([]string, 0, len(scrape.Federations()))
	for _, fed := range scrape.Federations() {
		feds = append(feds, string(fed))
	}
	cmd.Flags().StringVar(&fedFlag, "fed", "", fmt.Sprintf("federation to refresh (%s)", strings.Join(feds, "|")))
	cmd.MarkFlagRequired("fed") //nolint:errcheck // flag is registered above

	return cmd
}

func runRefresh(ctx context.Context, fedFlag string) error {
	logger := logging.L

	fed, err := scrape.ParseFederation(fedFlag)
	if err != nil {
		return err
	}

	cfg, err := scrape.LoadConfig(viper.GetViper())
	if err != nil {
		return fmt.Errorf("load scraper config: %w", err)
	}

	registry := prometheus.NewRegistry()
	hub, err := buildHub(ctx, cfg, registry, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if cerr := hub.Close(closeCtx); cerr != nil {
			logger.Warn("Failed to close progress hub", zap.Error(cerr))
		}
	}()

	if cfg.MetricsAddr != "" {
		server := api.NewServer(cfg.MetricsAddr, registry, logger)
		server.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if serr := server.Shutdown(shutdownCtx); serr != nil {
				logger.Warn("Metrics server shutdown failed", zap.Error(serr))
			}
		}()
	}

	engine, err := buildEngine(ctx, cfg, hub, logger)
	if err != nil {
		return err
	}

	if err := engine.Run(ctx, fed); err != nil {
		// A missing table is fatal to this federation only: report it and
		// let the process exit cleanly without writing anything.
		if errors.Is(err, agetable.ErrNotFound) {
			logger.Error("Age table not found; skipping federation",
				zap.String("federation", string(fed)), zap.Error(err))
			return nil
		}
		return fmt.Errorf("refresh %s: %w", fed, err)
	}

	logger.Info("Refresh finished", zap.String("federation", string(fed)))
	return nil
}

func buildHub(ctx context.Context, cfg scrape.Config, registry *prometheus.Registry, logger *zap.Logger) (*progress.Hub, error) {
	promSink, err := sinks.NewPrometheusSink(registry)
	if err != nil {
		return nil, fmt.Errorf("init prometheus sink: %w", err)
	}
	sinkList := []progress.Sink{sinks.NewLogSink(logger), promSink}

	if cfg.ProgressPostgresDSN != "" {
		pgSink, err := sinks.NewPostgresSink(ctx, cfg.ProgressPostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("init postgres sink: %w", err)
		}
		sinkList = append(sinkList, pgSink)
	}

	return progress.NewHub(progress.Config{Logger: logger}, sinkList...), nil
}

func buildEngine(ctx context.Context, cfg scrape.Config, hub *progress.Hub, logger *zap.Logger) (*refresh.Engine, error) {
	mirror, err := buildMirror(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	store := agetable.NewStore(cfg.DataDir, mirror, logger)

	extractor, err := scrape.NewAgeExtractor(cfg.AgePattern)
	if err != nil {
		return nil, fmt.Errorf("init age extractor: %w", err)
	}
	detector := scrape.NewDeletedDetector(cfg.DeletedSelector, cfg.DeletedKeywords, cfg.DeletedPollTimeout, nil)
	retryer := scrape.NewRetryer(cfg.Retry, extractor, detector, nil, logger)

	factory, err := buildSessionFactory(cfg, logger)
	if err != nil {
		return nil, err
	}
	pool := scrape.NewPool(factory, retryer, cfg.Workers, logger)

	return refresh.NewEngine(store, pool, system.New(), hub, cfg.MaxCycles, logger), nil
}

func buildSessionFactory(cfg scrape.Config, logger *zap.Logger) (scrape.SessionFactory, error) {
	switch cfg.Engine {
	case scrape.EngineStatic:
		return browser.NewStaticFactory(browser.StaticConfig{
			UserAgent: cfg.UserAgent,
			Timeout:   cfg.NavTimeout,
			QPS:       cfg.RateLimitQPS,
		}), nil
	default:
		return browser.NewChromeFactory(browser.ChromeConfig{
			UserAgent:  cfg.UserAgent,
			NavTimeout: cfg.NavTimeout,
			QPS:        cfg.RateLimitQPS,
		}, logger)
	}
}

func buildMirror(ctx context.Context, cfg scrape.Config, logger *zap.Logger) (storage.Provider, error) {
	switch cfg.MirrorBackend {
	case scrape.MirrorLocal:
		provider, err := storage.NewLocalProvider(cfg.MirrorLocalDir)
		if err != nil {
			return nil, fmt.Errorf("init local mirror: %w", err)
		}
		return provider, nil
	case scrape.MirrorGCS:
		provider, err := storage.NewGCSProvider(ctx, cfg.MirrorBucket, logger)
		if err != nil {
			return nil, fmt.Errorf("init gcs mirror: %w", err)
		}
		return provider, nil
	default:
		return &storage.NoOpProvider{}, nil
	}
}
