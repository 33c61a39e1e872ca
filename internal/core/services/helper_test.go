package services

import (
	"testing"

	"github.com/go-kit/kit/log"
	kitmetrics "github.com/go-kit/kit/metrics"
	kitprometheus "github.com/go-kit/kit/metrics/prometheus"
	"github.com/prometheus/client_golang/prometheus"
)

type testWriter struct {
	t *testing.T
}

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

func testLogger(t *testing.T) log.Logger {
	return log.NewLogfmtLogger(log.NewSyncWriter(testWriter{t: t}))
}

// newTestServiceMetrics builds unregistered collectors so tests can run in
// parallel without clashing on the default registry.
func newTestServiceMetrics() (kitmetrics.Counter, kitmetrics.Counter, *prometheus.HistogramVec) {
	fields := []string{FieldMethod, FieldStore}

	errCount := kitprometheus.NewCounter(prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "test",
		Subsystem: "err",
		Name:      "count",
	}, fields))
	opCount := kitprometheus.NewCounter(prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "test",
		Subsystem: "op",
		Name:      "count",
	}, fields))
	opLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "test",
		Subsystem: "op",
		Name:      "latency_seconds",
	}, fields)

	return errCount, opCount, opLatency
}
