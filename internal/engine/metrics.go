package engine

import (
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts engine events on a private registry so several engines (tests, the
// HTTP adapter) never collide on global registration.
type Metrics struct {
	registry *prometheus.Registry

	events  *prometheus.CounterVec
	drops   *prometheus.CounterVec
	visible prometheus.Gauge
	nodes   prometheus.Gauge
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wbs",
			Name:      "events_total",
			Help:      "Engine events processed, by type.",
		}, []string{"type"}),
		drops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wbs",
			Name:      "drops_total",
			Help:      "Structural edits by outcome status and rejection reason.",
		}, []string{"status", "reason"}),
		visible: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "wbs",
			Name:      "visible_rows",
			Help:      "Rows in the current projection.",
		}),
		nodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "wbs",
			Name:      "nodes",
			Help:      "Nodes in the current tree.",
		}),
	}
	m.registry.MustRegister(m.events, m.drops, m.visible, m.nodes)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) event(typ string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(typ).Inc()
}

func (m *Metrics) outcome(o Outcome) {
	if m == nil {
		return
	}
	reason := string(o.Reason)
	if reason == "" {
		reason = "none"
	}
	m.drops.WithLabelValues(string(o.Status), reason).Inc()
}

func (m *Metrics) shape(nodes, visible int) {
	if m == nil {
		return
	}
	m.nodes.Set(float64(nodes))
	m.visible.Set(float64(visible))
}

// Snapshot flattens the registry into "name{label=value,...}" -> value.
func (m *Metrics) Snapshot() (map[string]float64, error) {
	out := map[string]float64{}
	if m == nil {
		return out, nil
	}
	families, err := m.registry.Gather()
	if err != nil {
		return nil, err
	}
	for _, fam := range families {
		for _, metric := range fam.GetMetric() {
			var labels []string
			for _, lp := range metric.GetLabel() {
				labels = append(labels, lp.GetName()+"="+lp.GetValue())
			}
			sort.Strings(labels)
			key := fam.GetName()
			if len(labels) > 0 {
				key += "{" + strings.Join(labels, ",") + "}"
			}
			switch {
			case metric.GetCounter() != nil:
				out[key] = metric.GetCounter().GetValue()
			case metric.GetGauge() != nil:
				out[key] = metric.GetGauge().GetValue()
			}
		}
	}
	return out, nil
}
