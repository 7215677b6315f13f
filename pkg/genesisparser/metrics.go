package genesisparser

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts what the rewriter did to the state file.
type Metrics struct {
	Passes   prometheus.Counter
	Read     prometheus.Counter
	Written  prometheus.Counter
	Removed  prometheus.Counter
	Appended prometheus.Counter
}

// NewMetrics registers the rewriter counters with reg. A nil reg uses a
// private registry.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		Passes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "statepatch",
			Name:      "passes_total",
			Help:      "Passes made over state files",
		}),
		Read: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "statepatch",
			Name:      "lines_read_total",
			Help:      "Physical lines read during the write pass",
		}),
		Written: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "statepatch",
			Name:      "lines_written_total",
			Help:      "Lines written to the destination file",
		}),
		Removed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "statepatch",
			Name:      "lines_removed_total",
			Help:      "Original lines dropped by a manipulator",
		}),
		Appended: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "statepatch",
			Name:      "lines_appended_total",
			Help:      "Extra lines injected by manipulators",
		}),
	}
	for _, c := range []prometheus.Collector{m.Passes, m.Read, m.Written, m.Removed, m.Appended} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}
