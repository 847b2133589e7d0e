package metrics

import (
	"sort"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusProvider creates Prometheus collectors and registers them on a Registerer.
//
// Counters map to prometheus.Counter, up/down counters to prometheus.Gauge and
// histograms to prometheus.Histogram with prometheus.DefBuckets. Instrument
// attributes become constant labels. Asking twice for the same name and
// attributes returns the same collector, also across providers sharing a
// registry. Registration failures other than AlreadyRegisteredError panic,
// as with prometheus.MustRegister.
type PrometheusProvider struct {
	reg prometheus.Registerer

	mu         sync.Mutex
	collectors map[string]prometheus.Collector
}

// NewPrometheusProvider returns a provider registering on reg.
// A nil reg selects prometheus.DefaultRegisterer.
func NewPrometheusProvider(reg prometheus.Registerer) *PrometheusProvider {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &PrometheusProvider{reg: reg, collectors: make(map[string]prometheus.Collector)}
}

func (p *PrometheusProvider) Counter(name string, opts ...InstrumentOption) Counter {
	cfg := NewInstrumentConfig(opts...)
	c := p.register(name, cfg, func() prometheus.Collector {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Name:        name,
			Help:        help(name, cfg),
			ConstLabels: cfg.Attributes,
		})
	})
	return promCounter{c.(prometheus.Counter)}
}

func (p *PrometheusProvider) UpDownCounter(name string, opts ...InstrumentOption) UpDownCounter {
	cfg := NewInstrumentConfig(opts...)
	g := p.register(name, cfg, func() prometheus.Collector {
		return prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        name,
			Help:        help(name, cfg),
			ConstLabels: cfg.Attributes,
		})
	})
	return promGauge{g.(prometheus.Gauge)}
}

func (p *PrometheusProvider) Histogram(name string, opts ...InstrumentOption) Histogram {
	cfg := NewInstrumentConfig(opts...)
	h := p.register(name, cfg, func() prometheus.Collector {
		return prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        name,
			Help:        help(name, cfg),
			ConstLabels: cfg.Attributes,
			Buckets:     prometheus.DefBuckets,
		})
	})
	return promHistogram{h.(prometheus.Histogram)}
}

func (p *PrometheusProvider) register(name string, cfg InstrumentConfig, mk func() prometheus.Collector) prometheus.Collector {
	key := collectorKey(name, cfg.Attributes)

	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.collectors[key]; ok {
		return c
	}

	c := mk()
	if err := p.reg.Register(c); err != nil {
		are, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			panic(err)
		}
		c = are.ExistingCollector
	}
	p.collectors[key] = c
	return c
}

func help(name string, cfg InstrumentConfig) string {
	if cfg.Description != "" {
		return cfg.Description
	}
	return name
}

// collectorKey identifies a collector by name and sorted attributes.
func collectorKey(name string, attrs map[string]string) string {
	if len(attrs) == 0 {
		return name
	}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(name)
	for _, k := range keys {
		b.WriteByte('|')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(attrs[k])
	}
	return b.String()
}

type promCounter struct{ c prometheus.Counter }

func (c promCounter) Add(n int64) { c.c.Add(float64(n)) }

type promGauge struct{ g prometheus.Gauge }

func (g promGauge) Add(n int64) { g.g.Add(float64(n)) }

type promHistogram struct{ h prometheus.Histogram }

func (h promHistogram) Record(v float64) { h.h.Observe(v) }
