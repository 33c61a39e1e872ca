package services

import (
	"context"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"

	"github.com/JeanGrijp/url-shortener/internal/core/domain"
	"github.com/JeanGrijp/url-shortener/internal/core/ports"
)

// ServiceMiddleware is a chainable behaviour modifier for ports.Shortener.
type ServiceMiddleware func(ports.Shortener) ports.Shortener

// Chain applies middlewares so that the first one is the outermost.
func Chain(next ports.Shortener, mws ...ServiceMiddleware) ports.Shortener {
	for i := len(mws) - 1; i >= 0; i-- {
		next = mws[i](next)
	}
	return next
}

type logService struct {
	logger log.Logger
	next   ports.Shortener
}

// LogMiddleware given a Logger wraps the next Shortener with logging
// capabilities.
func LogMiddleware(logger log.Logger, store string) ServiceMiddleware {
	return func(next ports.Shortener) ports.Shortener {
		logger = log.With(
			logger,
			"service", "shortener",
			"store", store,
		)

		return &logService{logger: logger, next: next}
	}
}

func (s *logService) log(err error, ps ...interface{}) {
	l := level.Debug(s.logger)
	if err != nil && !domain.IsNotFoundError(err) {
		l = level.Error(s.logger)
		ps = append(ps, "err", err)
	} else if err != nil {
		ps = append(ps, "err", err)
	}

	_ = l.Log(ps...)
}

func (s *logService) Shorten(ctx context.Context, longURL string) (output domain.ShortURL, err error) {
	defer func(begin time.Time) {
		s.log(err,
			"duration_ns", time.Since(begin).Nanoseconds(),
			"hash", output.Hash,
			"long_url", longURL,
			"method", "Shorten",
		)
	}(time.Now())

	return s.next.Shorten(ctx, longURL)
}

func (s *logService) Lookup(ctx context.Context, hash string) (output domain.ShortURL, err error) {
	defer func(begin time.Time) {
		s.log(err,
			"duration_ns", time.Since(begin).Nanoseconds(),
			"hash", hash,
			"method", "Lookup",
		)
	}(time.Now())

	return s.next.Lookup(ctx, hash)
}

func (s *logService) Resolve(ctx context.Context, hash string, client domain.ClientInfo) (output domain.ShortURL, err error) {
	defer func(begin time.Time) {
		s.log(err,
			"duration_ns", time.Since(begin).Nanoseconds(),
			"hash", hash,
			"ip", client.IP,
			"method", "Resolve",
		)
	}(time.Now())

	return s.next.Resolve(ctx, hash, client)
}

func (s *logService) Stats(ctx context.Context, hash string) (stats domain.URLStats, err error) {
	defer func(begin time.Time) {
		s.log(err,
			"duration_ns", time.Since(begin).Nanoseconds(),
			"hash", hash,
			"method", "Stats",
			"total_clicks", stats.TotalClicks,
		)
	}(time.Now())

	return s.next.Stats(ctx, hash)
}

func (s *logService) QRCode(ctx context.Context, hash string, size int) (png []byte, err error) {
	defer func(begin time.Time) {
		s.log(err,
			"bytes", len(png),
			"duration_ns", time.Since(begin).Nanoseconds(),
			"hash", hash,
			"method", "QRCode",
			"size", size,
		)
	}(time.Now())

	return s.next.QRCode(ctx, hash, size)
}
