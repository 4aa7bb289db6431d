package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "doorclient"

// Renewal results
const (
	RenewSuccess = "success"
	RenewFailure = "failure"
	RenewTimeout = "timeout"
)

// Metrics groups the client's collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Renewals        *prometheus.CounterVec
	GatewayRequests *prometheus.CounterVec
	GatewayReplays  prometheus.Counter
}

// New creates the collectors and registers them on reg when reg is non-nil.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Renewals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "renewals_total",
			Help:      "Credential renewal calls made to the backend, by result.",
		}, []string{"result"}),
		GatewayRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_requests_total",
			Help:      "Requests sent through the gateway, by classified outcome.",
		}, []string{"outcome"}),
		GatewayReplays: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_replays_total",
			Help:      "Requests resent once after a credential renewal.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Renewals, m.GatewayRequests, m.GatewayReplays)
	}
	return m
}

func (m *Metrics) ObserveRenewal(result string) {
	if m == nil {
		return
	}
	m.Renewals.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveRequest(outcome string) {
	if m == nil {
		return
	}
	m.GatewayRequests.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveReplay() {
	if m == nil {
		return
	}
	m.GatewayReplays.Inc()
}
