package services

import (
	"context"
	"time"

	kitmetrics "github.com/go-kit/kit/metrics"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/JeanGrijp/url-shortener/internal/core/domain"
	"github.com/JeanGrijp/url-shortener/internal/core/ports"
)

// Label names shared with the metrics adapter.
const (
	FieldMethod = "method"
	FieldStore  = "store"
)

type instrumentService struct {
	errCount  kitmetrics.Counter
	opCount   kitmetrics.Counter
	opLatency *prometheus.HistogramVec
	next      ports.Shortener
	store     string
}

// InstrumentMiddleware observes key aspects of Shortener operations and
// exposes Prometheus metrics.
func InstrumentMiddleware(
	store string,
	errCount kitmetrics.Counter,
	opCount kitmetrics.Counter,
	opLatency *prometheus.HistogramVec,
) ServiceMiddleware {
	return func(next ports.Shortener) ports.Shortener {
		return &instrumentService{
			errCount:  errCount,
			opCount:   opCount,
			opLatency: opLatency,
			next:      next,
			store:     store,
		}
	}
}

func (s *instrumentService) Shorten(ctx context.Context, longURL string) (output domain.ShortURL, err error) {
	defer func(begin time.Time) {
		s.track("Shorten", begin, err)
	}(time.Now())

	return s.next.Shorten(ctx, longURL)
}

func (s *instrumentService) Lookup(ctx context.Context, hash string) (output domain.ShortURL, err error) {
	defer func(begin time.Time) {
		s.track("Lookup", begin, err)
	}(time.Now())

	return s.next.Lookup(ctx, hash)
}

func (s *instrumentService) Resolve(ctx context.Context, hash string, client domain.ClientInfo) (output domain.ShortURL, err error) {
	defer func(begin time.Time) {
		s.track("Resolve", begin, err)
	}(time.Now())

	return s.next.Resolve(ctx, hash, client)
}

func (s *instrumentService) Stats(ctx context.Context, hash string) (stats domain.URLStats, err error) {
	defer func(begin time.Time) {
		s.track("Stats", begin, err)
	}(time.Now())

	return s.next.Stats(ctx, hash)
}

func (s *instrumentService) QRCode(ctx context.Context, hash string, size int) (png []byte, err error) {
	defer func(begin time.Time) {
		s.track("QRCode", begin, err)
	}(time.Now())

	return s.next.QRCode(ctx, hash, size)
}

func (s *instrumentService) track(method string, begin time.Time, err error) {
	if err != nil && !domain.IsNotFoundError(err) {
		s.errCount.With(
			FieldMethod, method,
			FieldStore, s.store,
		).Add(1)

		return
	}

	s.opCount.With(
		FieldMethod, method,
		FieldStore, s.store,
	).Add(1)

	s.opLatency.With(prometheus.Labels{
		FieldMethod: method,
		FieldStore:  s.store,
	}).Observe(time.Since(begin).Seconds())
}
