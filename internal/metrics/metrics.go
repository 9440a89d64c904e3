// Package metrics holds the in-process Prometheus collectors backing
// monitor.metrics. There is no HTTP /metrics exporter here — gauges and
// counters are read synchronously inside a handler and returned as a
// query-shaped Result instead. Grounded on itchan-dev-itchan's use of
// prometheus/client_golang for service-level counters/gauges, repurposed
// away from its original HTTP exporter.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry bundles every gauge/counter the gateway exposes through
// monitor.metrics. It is process-wide, built once in cmd/pggatewayd and
// threaded into the handler context alongside the resolver/session
// manager.
type Registry struct {
	reg *prometheus.Registry

	ActiveSessions    prometheus.Gauge
	PoolConnsInUse    prometheus.Gauge
	PoolConnsIdle     prometheus.Gauge
	ActionsDispatched *prometheus.CounterVec
	ActionErrors      *prometheus.CounterVec
}

// New builds a Registry with all collectors registered against a fresh
// prometheus.Registry (not the global DefaultRegisterer, so multiple
// gateways can coexist in one process during tests).
func New() *Registry {
	r := &Registry{reg: prometheus.NewRegistry()}

	r.ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pggateway_active_sessions",
		Help: "Number of live entries in the session registry.",
	})
	r.PoolConnsInUse = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pggateway_pool_conns_in_use",
		Help: "Connections currently checked out of the pool.",
	})
	r.PoolConnsIdle = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pggateway_pool_conns_idle",
		Help: "Connections currently idle in the pool.",
	})
	r.ActionsDispatched = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pggateway_actions_dispatched_total",
		Help: "Actions dispatched, labeled by tool and action.",
	}, []string{"tool", "action"})
	r.ActionErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pggateway_action_errors_total",
		Help: "Actions that returned an error, labeled by kind.",
	}, []string{"kind"})

	r.reg.MustRegister(r.ActiveSessions, r.PoolConnsInUse, r.PoolConnsIdle, r.ActionsDispatched, r.ActionErrors)
	return r
}

// Sample is one collected metric, flattened to a name/value/label row so
// monitor.metrics can return it as an ordinary query Result.
type Sample struct {
	Name   string            `json:"name"`
	Value  float64           `json:"value"`
	Labels map[string]string `json:"labels,omitempty"`
}

// Collect gathers every registered metric and flattens it to Samples.
// Histograms/summaries are not in use yet, so only Gauge/Counter values
// are extracted.
func (r *Registry) Collect() ([]Sample, error) {
	families, err := r.reg.Gather()
	if err != nil {
		return nil, err
	}

	var out []Sample
	for _, fam := range families {
		for _, m := range fam.GetMetric() {
			labels := make(map[string]string, len(m.GetLabel()))
			for _, l := range m.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			var value float64
			switch {
			case m.GetGauge() != nil:
				value = m.GetGauge().GetValue()
			case m.GetCounter() != nil:
				value = m.GetCounter().GetValue()
			default:
				continue
			}
			out = append(out, Sample{Name: fam.GetName(), Value: value, Labels: labels})
		}
	}
	return out, nil
}
