package metrics_test

import (
	"testing"

	"github.com/jrsteele09/door-client/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *metrics.Metrics
	m.ObserveRenewal(metrics.RenewSuccess)
	m.ObserveRequest("ok")
	m.ObserveReplay()
}

func TestCountersRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	m.ObserveRenewal(metrics.RenewSuccess)
	m.ObserveRenewal(metrics.RenewFailure)
	m.ObserveRenewal(metrics.RenewFailure)
	m.ObserveReplay()

	require.Equal(t, 1.0, testutil.ToFloat64(m.Renewals.WithLabelValues(metrics.RenewSuccess)))
	require.Equal(t, 2.0, testutil.ToFloat64(m.Renewals.WithLabelValues(metrics.RenewFailure)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.GatewayReplays))

	n, err := testutil.GatherAndCount(reg, "doorclient_renewals_total")
	require.NoError(t, err)
	require.Equal(t, 2, n)
}
