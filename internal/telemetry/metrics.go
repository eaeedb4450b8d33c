package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the ingest and feedback collectors. A nil *Metrics records
// nothing.
type Metrics struct {
	messages          *prometheus.CounterVec
	values            prometheus.Counter
	skipped           prometheus.Counter
	writeFailures     prometheus.Counter
	feedbackForwarded prometheus.Counter
	feedbackDropped   prometheus.Counter
	feedbackFailures  prometheus.Counter
	reconnects        prometheus.Counter
}

// NewMetrics creates and registers the telemetry collectors. It returns nil
// when reg is nil.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		return nil, nil
	}

	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "telemetrycore",
			Subsystem: "telemetry",
			Name:      name,
			Help:      help,
		})
	}

	m := &Metrics{
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "telemetrycore",
			Subsystem: "telemetry",
			Name:      "messages_total",
			Help:      "Telemetry messages consumed, by result.",
		}, []string{"result"}),
		values:            counter("values_total", "Numeric values ingested."),
		skipped:           counter("values_skipped_total", "Data entries skipped for not being numeric."),
		writeFailures:     counter("sample_write_failures_total", "Failed sample writes on the ingest path."),
		feedbackForwarded: counter("feedback_forwarded_total", "Feedback samples republished as commands."),
		feedbackDropped:   counter("feedback_duplicates_total", "Feedback samples dropped as already forwarded."),
		feedbackFailures:  counter("feedback_publish_failures_total", "Feedback commands that could not be published."),
		reconnects:        counter("feedback_reconnects_total", "Feedback stream reopen attempts."),
	}

	for _, c := range []prometheus.Collector{
		m.messages, m.values, m.skipped, m.writeFailures,
		m.feedbackForwarded, m.feedbackDropped, m.feedbackFailures, m.reconnects,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) message(result string) {
	if m != nil {
		m.messages.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) value() {
	if m != nil {
		m.values.Inc()
	}
}

func (m *Metrics) skippedValue() {
	if m != nil {
		m.skipped.Inc()
	}
}

func (m *Metrics) writeFailed() {
	if m != nil {
		m.writeFailures.Inc()
	}
}

func (m *Metrics) forwarded() {
	if m != nil {
		m.feedbackForwarded.Inc()
	}
}

func (m *Metrics) duplicate() {
	if m != nil {
		m.feedbackDropped.Inc()
	}
}

func (m *Metrics) publishFailed() {
	if m != nil {
		m.feedbackFailures.Inc()
	}
}

func (m *Metrics) reconnect() {
	if m != nil {
		m.reconnects.Inc()
	}
}
