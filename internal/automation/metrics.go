package automation

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the engine's Prometheus collectors. A nil *Metrics records
// nothing, so callers without a registry pass nil.
type Metrics struct {
	evaluations *prometheus.CounterVec
	actions     *prometheus.CounterVec
	debounced   prometheus.Counter
	cleared     prometheus.Counter
	pending     prometheus.Gauge
}

// NewMetrics creates and registers the engine collectors. It returns nil
// when reg is nil.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		return nil, nil
	}

	m := &Metrics{
		evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "telemetrycore",
			Subsystem: "automation",
			Name:      "evaluations_total",
			Help:      "Rule evaluations by condition kind and outcome.",
		}, []string{"kind", "result"}),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "telemetrycore",
			Subsystem: "automation",
			Name:      "actions_total",
			Help:      "Executed rule actions by trigger and outcome.",
		}, []string{"trigger", "result"}),
		debounced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "telemetrycore",
			Subsystem: "automation",
			Name:      "delayed_debounced_total",
			Help:      "Qualifying values ignored because the delayed rule was already pending.",
		}),
		cleared: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "telemetrycore",
			Subsystem: "automation",
			Name:      "delayed_cleared_total",
			Help:      "Delayed rules skipped at fire time because the watch value fell below threshold.",
		}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "telemetrycore",
			Subsystem: "automation",
			Name:      "pending_triggers",
			Help:      "Delayed rules currently armed.",
		}),
	}

	for _, c := range []prometheus.Collector{m.evaluations, m.actions, m.debounced, m.cleared, m.pending} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// RegisterRuleGauge exposes the registry's rule count as a gauge.
func RegisterRuleGauge(reg prometheus.Registerer, registry *Registry) error {
	if reg == nil {
		return nil
	}
	return reg.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "telemetrycore",
		Subsystem: "automation",
		Name:      "rules",
		Help:      "Rules currently loaded.",
	}, func() float64 {
		return float64(registry.Count())
	}))
}

func (m *Metrics) observeEvaluation(kind Kind, fired bool) {
	if m == nil {
		return
	}
	m.evaluations.WithLabelValues(string(kind), outcome(fired, "fired", "idle")).Inc()
}

func (m *Metrics) observeAction(trigger string, ok bool) {
	if m == nil {
		return
	}
	m.actions.WithLabelValues(trigger, outcome(ok, "success", "failure")).Inc()
}

func (m *Metrics) observeDebounced() {
	if m == nil {
		return
	}
	m.debounced.Inc()
}

func (m *Metrics) observeCleared() {
	if m == nil {
		return
	}
	m.cleared.Inc()
}

func (m *Metrics) setPending(n int) {
	if m == nil {
		return
	}
	m.pending.Set(float64(n))
}

func outcome(ok bool, yes, no string) string {
	if ok {
		return yes
	}
	return no
}
