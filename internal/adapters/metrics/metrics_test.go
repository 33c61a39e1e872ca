package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JeanGrijp/url-shortener/internal/core/domain"
	"github.com/JeanGrijp/url-shortener/internal/core/services"
)

func TestInstrumentLimiter_CountsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewLimiterMetrics(reg)

	inner, err := services.NewRedirectionLimiter(domain.RedirectLimitRule{MaxRedirects: 2, Window: time.Minute})
	require.NoError(t, err)
	limiter := InstrumentLimiter(inner, m)

	assert.True(t, limiter.IsAllowed("abc"))
	assert.True(t, limiter.IsAllowed("abc"))
	assert.False(t, limiter.IsAllowed("abc"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Decisions.WithLabelValues(OutcomeAdmitted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Decisions.WithLabelValues(OutcomeDenied)))

	assert.Equal(t, 2, limiter.CurrentRedirects("abc"))
	assert.Equal(t, 2, limiter.MaxRedirects())
	assert.Equal(t, 60, limiter.WindowSeconds())
	_, ok := limiter.ResetAt("abc")
	assert.True(t, ok)
}

func TestLimiterMetrics_ObserveSweep(t *testing.T) {
	m := NewLimiterMetrics(prometheus.NewRegistry())

	m.ObserveSweep(3)
	m.ObserveSweep(0)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.Evicted))
}

func TestKeyMetrics_Registers(t *testing.T) {
	reg := prometheus.NewRegistry()
	errCount, opCount, opLatency := KeyMetrics(reg, Namespace, "method", "store")

	errCount.With("method", "Shorten", "store", "memory").Add(1)
	opCount.With("method", "Resolve", "store", "memory").Add(2)
	opLatency.WithLabelValues("Resolve", "memory").Observe(0.01)

	count, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}
