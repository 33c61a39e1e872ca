package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/JeanGrijp/url-shortener/internal/adapters/flake"
	"github.com/JeanGrijp/url-shortener/internal/adapters/hash"
	httpadapter "github.com/JeanGrijp/url-shortener/internal/adapters/http"
	"github.com/JeanGrijp/url-shortener/internal/adapters/metrics"
	"github.com/JeanGrijp/url-shortener/internal/adapters/qrcode"
	"github.com/JeanGrijp/url-shortener/internal/adapters/urlcheck"
	"github.com/JeanGrijp/url-shortener/internal/config"
	"github.com/JeanGrijp/url-shortener/internal/core/services"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Start the URL shortener HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}

	root := &cobra.Command{
		Use:          "shortener",
		Short:        "URL shortener with per link redirect limits",
		SilenceUsage: true,
		RunE:         serve.RunE,
	}

	root.AddCommand(serve, &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			printConfig(cmd, cfg)
			return nil
		},
	})

	return root
}

func printConfig(cmd *cobra.Command, cfg config.Config) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "server.port=%s\n", cfg.Server.Port)
	fmt.Fprintf(out, "server.base_url=%s\n", cfg.Server.BaseURL)
	fmt.Fprintf(out, "server.shutdown_timeout=%s\n", cfg.Server.ShutdownTimeout)
	fmt.Fprintf(out, "log.level=%s\n", cfg.Log.Level)
	fmt.Fprintf(out, "storage.type=%s\n", cfg.Storage.Type)
	fmt.Fprintf(out, "redirect_limiter.max_redirects=%d\n", cfg.RedirectLimiter.Rule.MaxRedirects)
	fmt.Fprintf(out, "redirect_limiter.window=%s\n", cfg.RedirectLimiter.Rule.Window)
	fmt.Fprintf(out, "redirect_limiter.shards=%d\n", cfg.RedirectLimiter.Shards)
	fmt.Fprintf(out, "redirect_limiter.evict_interval=%s\n", cfg.RedirectLimiter.EvictInterval)
	fmt.Fprintf(out, "shortener.hash_length=%d\n", cfg.Shortener.HashLength)
	fmt.Fprintf(out, "shortener.max_hash_attempts=%d\n", cfg.Shortener.MaxHashAttempts)
	fmt.Fprintf(out, "shortener.check_reachability=%t\n", cfg.Shortener.CheckReachability)
	fmt.Fprintf(out, "shortener.blocked_hosts=%d\n", len(cfg.Shortener.BlockedHosts))
}

func runServe(parent context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := newLogger(cfg.Log.Level)

	urls, clicks, closeFn, err := initStorage(parent, cfg.Storage, logger)
	if err != nil {
		_ = level.Error(logger).Log("msg", "failed to init storage", "storage", cfg.Storage.Type, "err", err)
		return err
	}
	defer closeFn()

	ids, err := flake.New(0)
	if err != nil {
		return fmt.Errorf("failed to create id generator: %w", err)
	}

	shortenerConfig := services.ShortenerConfig{
		URLs:            urls,
		Clicks:          clicks,
		Hasher:          hash.NewBase62(cfg.Shortener.HashLength),
		Validator:       urlcheck.Validator{},
		Safety:          urlcheck.NewHostDenylist(cfg.Shortener.BlockedHosts),
		QRCodes:         qrcode.NewEncoder(),
		IDs:             ids,
		Logger:          log.With(logger, "component", "shortener"),
		BaseURL:         cfg.Server.BaseURL,
		MaxHashAttempts: cfg.Shortener.MaxHashAttempts,
	}
	if cfg.Shortener.CheckReachability {
		shortenerConfig.Reachability = urlcheck.NewHeadProber(nil, cfg.Shortener.ReachabilityTimeout)
	}

	core, err := services.NewShortenerService(shortenerConfig)
	if err != nil {
		return fmt.Errorf("failed to create shortener: %w", err)
	}

	errCount, opCount, opLatency := metrics.KeyMetrics(
		prometheus.DefaultRegisterer,
		metrics.Namespace,
		services.FieldMethod,
		services.FieldStore,
	)
	shortener := services.Chain(core,
		services.LogMiddleware(logger, cfg.Storage.Type),
		services.InstrumentMiddleware(cfg.Storage.Type, errCount, opCount, opLatency),
	)

	limiter, err := services.NewRedirectionLimiter(
		cfg.RedirectLimiter.Rule,
		services.WithShards(cfg.RedirectLimiter.Shards),
	)
	if err != nil {
		return fmt.Errorf("failed to create redirect limiter: %w", err)
	}
	limiterMetrics := metrics.NewLimiterMetrics(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.RedirectLimiter.EvictInterval > 0 {
		go limiter.RunJanitor(ctx, cfg.RedirectLimiter.EvictInterval, limiterMetrics.ObserveSweep)
	}

	srv := &http.Server{
		Addr: fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: httpadapter.NewRouter(httpadapter.RouterConfig{
			Shortener: shortener,
			Limiter:   metrics.InstrumentLimiter(limiter, limiterMetrics),
			BaseURL:   cfg.Server.BaseURL,
			Logger:    log.With(logger, "component", "http"),
			Metrics:   promhttp.Handler(),
		}),
	}

	errCh := make(chan error, 1)
	go func() {
		err := srv.ListenAndServe()
		if err != nil {
			errCh <- err
		}
	}()

	_ = level.Info(logger).Log(
		"msg", "server started",
		"port", cfg.Server.Port,
		"storage", cfg.Storage.Type,
		"max_redirects", limiter.MaxRedirects(),
		"window_seconds", limiter.WindowSeconds(),
	)

	select {
	case <-ctx.Done():
		_ = level.Info(logger).Log("msg", "shutdown signal received")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			_ = level.Error(logger).Log("msg", "server error", "err", err)
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		_ = level.Error(logger).Log("msg", "graceful shutdown failed", "err", err)
		return err
	}
	return nil
}

func newLogger(lvl string) log.Logger {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)

	var option level.Option
	switch lvl {
	case "debug":
		option = level.AllowDebug()
	case "warn":
		option = level.AllowWarn()
	case "error":
		option = level.AllowError()
	default:
		option = level.AllowInfo()
	}
	return level.NewFilter(logger, option)
}
