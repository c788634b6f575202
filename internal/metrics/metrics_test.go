package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOnRegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOn(reg)
	require.NotNil(t, m)

	m.CountQuote("across", StatusSuccess)
	m.CountQuote("across", StatusSuccess)
	m.CountQuote("hop", StatusError)
	m.ObserveFetch("across", 120*time.Millisecond)
	m.CountComparison()
	m.CountCacheHit()
	m.CountCacheMiss()
	m.SetBreakerState("hop", 1)
	m.SetLastTotalFee("across", "USDC", 2.5)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.quoteRequests.WithLabelValues("across", StatusSuccess)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.quoteRequests.WithLabelValues("hop", StatusError)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.comparisons))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.breakerState.WithLabelValues("hop")))
	assert.Equal(t, 2.5, testutil.ToFloat64(m.lastTotalFee.WithLabelValues("across", "USDC")))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.CountQuote("across", StatusSuccess)
		m.ObserveFetch("hop", time.Second)
		m.CountComparison()
		m.CountCacheHit()
		m.CountCacheMiss()
		m.SetBreakerState("across", 2)
		m.SetLastTotalFee("hop", "ETH", 0.003)
	})
}
