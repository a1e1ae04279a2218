package httpclient

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker/v2"

	apperrors "github.com/nsouzarj/craweb/pkg/errors"
)

// Metrics holds the interceptor's collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	requests     *prometheus.CounterVec
	failures     *prometheus.CounterVec
	retries      *prometheus.CounterVec
	breakerState *prometheus.GaugeVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cra_http_client_requests_total",
				Help: "Total number of backend calls by outcome (success or error)",
			},
			[]string{"method", "outcome"},
		),
		failures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cra_http_client_errors_total",
				Help: "Total number of classified backend failures by kind",
			},
			[]string{"kind"},
		),
		retries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cra_http_client_retries_total",
				Help: "Total number of automatic re-sends after a failed attempt",
			},
			[]string{"method"},
		),
		breakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "cra_circuit_breaker_state",
				Help: "Current state of the circuit breaker (0=closed, 1=half-open, 2=open)",
			},
			[]string{"name"},
		),
	}
}

func (m *Metrics) succeeded(method string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, "success").Inc()
}

func (m *Metrics) failed(method string, kind apperrors.Kind) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, "error").Inc()
	m.failures.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) retried(method string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(method).Inc()
}

func (m *Metrics) breakerChanged(name string, state gobreaker.State) {
	if m == nil {
		return
	}
	m.breakerState.WithLabelValues(name).Set(stateToFloat(state))
}

// stateToFloat maps gobreaker states to prometheus gauge values.
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
