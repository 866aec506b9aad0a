// Package metrics holds the Prometheus collectors for the dispatch engine.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ridewave"

// Search outcomes.
const (
	OutcomeAccepted  = "accepted"
	OutcomeCanceled  = "canceled"
	OutcomeExhausted = "exhausted"
	OutcomeExpired   = "expired"
)

type Metrics struct {
	connections    prometheus.Gauge
	captainsOnDuty prometheus.Gauge
	activeSearches prometheus.Gauge
	offersSent     prometheus.Counter
	pushBursts     prometheus.Counter
	outcomes       *prometheus.CounterVec
}

// New registers the collectors on reg. A nil registerer defaults to the
// global Prometheus registerer.
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections",
			Help:      "Open gateway connections",
		}),
		captainsOnDuty: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "captains_on_duty",
			Help:      "Captains currently in the presence registry",
		}),
		activeSearches: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_searches",
			Help:      "Ride dispatch loops currently running",
		}),
		offersSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "offers_sent_total",
			Help:      "rideOffer events sent to captains",
		}),
		pushBursts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "push_bursts_total",
			Help:      "Push notification bursts dispatched for rides",
		}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_outcomes_total",
			Help:      "Terminal outcomes of ride searches",
		}, []string{"outcome"}),
	}

	var err error
	m.connections = register(reg, m.connections, &err)
	m.captainsOnDuty = register(reg, m.captainsOnDuty, &err)
	m.activeSearches = register(reg, m.activeSearches, &err)
	m.offersSent = register(reg, m.offersSent, &err)
	m.pushBursts = register(reg, m.pushBursts, &err)
	m.outcomes = register(reg, m.outcomes, &err)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// register reuses an already registered collector of the same shape so that
// New can run more than once against one registry.
func register[C prometheus.Collector](reg prometheus.Registerer, c C, errp *error) C {
	if *errp != nil {
		return c
	}
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		*errp = err
	}
	return c
}

func (m *Metrics) ConnectionOpened() {
	if m != nil {
		m.connections.Inc()
	}
}

func (m *Metrics) ConnectionClosed() {
	if m != nil {
		m.connections.Dec()
	}
}

func (m *Metrics) SetCaptainsOnDuty(n int) {
	if m != nil {
		m.captainsOnDuty.Set(float64(n))
	}
}

func (m *Metrics) SearchStarted() {
	if m != nil {
		m.activeSearches.Inc()
	}
}

// SearchFinished records a loop exit. An empty outcome only decrements the
// active gauge.
func (m *Metrics) SearchFinished(outcome string) {
	if m == nil {
		return
	}
	m.activeSearches.Dec()
	if outcome != "" {
		m.outcomes.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) OffersSent(n int) {
	if m != nil && n > 0 {
		m.offersSent.Add(float64(n))
	}
}

func (m *Metrics) PushBurst() {
	if m != nil {
		m.pushBursts.Inc()
	}
}
