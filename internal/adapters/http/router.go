// Package http monta o roteador chi com handlers e middlewares.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-kit/kit/log"

	"github.com/JeanGrijp/url-shortener/internal/adapters/hash"
	"github.com/JeanGrijp/url-shortener/internal/adapters/http/handlers"
	"github.com/JeanGrijp/url-shortener/internal/adapters/http/middleware"
	"github.com/JeanGrijp/url-shortener/internal/core/domain"
	"github.com/JeanGrijp/url-shortener/internal/core/ports"
)

// redirectPattern only matches strings that can be short URL hashes.
var redirectPattern = fmt.Sprintf("/{%s:[0-9A-Za-z]{1,%d}}", middleware.HashParam, hash.MaxLength)

type RouterConfig struct {
	Shortener ports.Shortener
	Limiter   ports.RedirectLimiter
	BaseURL   string
	Logger    log.Logger
	// Metrics is mounted on /metrics when set.
	Metrics http.Handler
	Now     func() time.Time
}

func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = log.NewNopLogger()
	}

	shortener := handlers.NewShortenerHandler(cfg.Shortener, cfg.BaseURL, cfg.Logger)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.RequestLogger(cfg.Logger))
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", handlers.HealthHandler)
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	r.Route("/api/v1/urls", func(r chi.Router) {
		r.Post("/", shortener.Shorten)
		r.Get("/{hash}", shortener.Stats)
		r.Get("/{hash}/qr", shortener.QRCode)
	})

	r.With(middleware.NewRedirectLimiterMiddleware(cfg.Limiter, knownHash(cfg.Shortener), cfg.Logger, cfg.Now)).
		Get(redirectPattern, shortener.Redirect)

	return r
}

func knownHash(shortener ports.Shortener) middleware.KnownKey {
	return func(ctx context.Context, key string) (bool, error) {
		_, err := shortener.Lookup(ctx, key)
		switch {
		case err == nil:
			return true, nil
		case domain.IsNotFoundError(err):
			return false, nil
		default:
			return false, err
		}
	}
}
