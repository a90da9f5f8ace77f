// Package metrics exports pool activity as Prometheus metrics.
//
// One Collector is registered per registry; each pool gets its own
// Observer from Collector.ForPool, labelled with the pool name.
package metrics

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/superfly/spawnpool/pool"
)

const namespace = "spawnpool"

// Collector holds the metric vectors shared by every pool.
type Collector struct {
	transitions *prometheus.CounterVec
	size        *prometheus.GaugeVec
}

// NewCollector creates the pool metrics and registers them with reg.
// Metrics already registered by an earlier collector are reused.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transitions_total",
		Help:      "Pool lifecycle transitions by pool and kind (constructed, reused, pooled, destroyed).",
	}, []string{"pool", "kind"})
	size := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "resources",
		Help:      "Resources currently held by a pool, by set (active, inactive).",
	}, []string{"pool", "set"})

	var err error
	if transitions, err = register(reg, transitions); err != nil {
		return nil, err
	}
	if size, err = register(reg, size); err != nil {
		return nil, err
	}
	return &Collector{transitions: transitions, size: size}, nil
}

func register[V prometheus.Collector](reg prometheus.Registerer, c V) (V, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(V); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// Observer records one pool's transitions.
type Observer struct {
	constructed prometheus.Counter
	reused      prometheus.Counter
	pooled      prometheus.Counter
	destroyed   prometheus.Counter
	active      prometheus.Gauge
	inactive    prometheus.Gauge
}

var _ pool.Observer = (*Observer)(nil)

// ForPool returns an observer for the pool called name.
func (c *Collector) ForPool(name string) *Observer {
	return &Observer{
		constructed: c.transitions.WithLabelValues(name, "constructed"),
		reused:      c.transitions.WithLabelValues(name, "reused"),
		pooled:      c.transitions.WithLabelValues(name, "pooled"),
		destroyed:   c.transitions.WithLabelValues(name, "destroyed"),
		active:      c.size.WithLabelValues(name, "active"),
		inactive:    c.size.WithLabelValues(name, "inactive"),
	}
}

func (o *Observer) Constructed() { o.constructed.Inc() }
func (o *Observer) Reused() { o.reused.Inc() }
func (o *Observer) Pooled() { o.pooled.Inc() }
func (o *Observer) Destroyed() { o.destroyed.Inc() }

func (o *Observer) Sizes(active, inactive int) {
	o.active.Set(float64(active))
	o.inactive.Set(float64(inactive))
}

// Snapshot gathers the spawnpool metrics from g into a flat map keyed by
// metric name and labels, e.g. `spawnpool_resources{pool="a",set="active"}`.
func Snapshot(g prometheus.Gatherer) (map[string]float64, error) {
	mfs, err := g.Gather()
	if err != nil {
		return nil, fmt.Errorf("metrics: gather: %w", err)
	}

	out := make(map[string]float64)
	for _, mf := range mfs {
		if !strings.HasPrefix(mf.GetName(), namespace+"_") {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := make([]string, 0, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%q", lp.GetName(), lp.GetValue()))
			}
			sort.Strings(labels)
			key := mf.GetName() + "{" + strings.Join(labels, ",") + "}"

			switch {
			case m.GetCounter() != nil:
				out[key] = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				out[key] = m.GetGauge().GetValue()
			}
		}
	}
	return out, nil
}
