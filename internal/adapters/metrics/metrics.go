// Package metrics expõe os coletores Prometheus do serviço.
package metrics

import (
	"fmt"

	kitprometheus "github.com/go-kit/kit/metrics/prometheus"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/JeanGrijp/url-shortener/internal/core/ports"
)

const Namespace = "shortener"

// Common metrics subsystems.
const (
	subsystemErr     = "err"
	subsystemOp      = "op"
	subsystemLimiter = "redirect_limiter"
)

// Outcomes of a limiter decision.
const (
	OutcomeAdmitted = "admitted"
	OutcomeDenied   = "denied"
)

// KeyMetrics builds the error count, op count and op latency collectors and
// registers them with reg.
func KeyMetrics(
	reg prometheus.Registerer,
	namespace string,
	fieldKeys ...string,
) (*kitprometheus.Counter, *kitprometheus.Counter, *prometheus.HistogramVec) {
	errCount := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystemErr,
		Name:      "count",
		Help:      fmt.Sprintf("Number of failed %s operations", namespace),
	}, fieldKeys)

	opCount := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystemOp,
		Name:      "count",
		Help:      fmt.Sprintf("Number of %s operations performed", namespace),
	}, fieldKeys)

	opLatency := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystemOp,
			Name:      "latency_seconds",
			Help:      fmt.Sprintf("Distribution of %s op duration in seconds", namespace),
		},
		fieldKeys,
	)

	reg.MustRegister(errCount, opCount, opLatency)

	return kitprometheus.NewCounter(errCount), kitprometheus.NewCounter(opCount), opLatency
}

// LimiterMetrics are the collectors fed by InstrumentLimiter and the janitor.
type LimiterMetrics struct {
	Decisions *prometheus.CounterVec
	Evicted   prometheus.Counter
}

func NewLimiterMetrics(reg prometheus.Registerer) LimiterMetrics {
	m := LimiterMetrics{
		Decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: subsystemLimiter,
			Name:      "decisions_total",
			Help:      "Redirect admission decisions by outcome",
		}, []string{"outcome"}),
		Evicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: subsystemLimiter,
			Name:      "evicted_keys_total",
			Help:      "Limiter entries dropped after their window expired",
		}),
	}
	reg.MustRegister(m.Decisions, m.Evicted)
	return m
}

// ObserveSweep is a RunJanitor callback.
func (m LimiterMetrics) ObserveSweep(removed int) {
	m.Evicted.Add(float64(removed))
}

type instrumentedLimiter struct {
	ports.RedirectLimiter
	decisions *prometheus.CounterVec
}

// InstrumentLimiter counts the admissions and denials of next.
func InstrumentLimiter(next ports.RedirectLimiter, m LimiterMetrics) ports.RedirectLimiter {
	return &instrumentedLimiter{RedirectLimiter: next, decisions: m.Decisions}
}

func (l *instrumentedLimiter) IsAllowed(key string) bool {
	allowed := l.RedirectLimiter.IsAllowed(key)

	outcome := OutcomeDenied
	if allowed {
		outcome = OutcomeAdmitted
	}
	l.decisions.WithLabelValues(outcome).Inc()

	return allowed
}
