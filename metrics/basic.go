package metrics

import (
	"sync"
	"sync/atomic"
)

// BasicProvider keeps instruments in memory and lets callers read them back by name.
// It is safe for concurrent use and suitable for tests and small programs.
type BasicProvider struct {
	mu         sync.RWMutex
	counters   map[string]*BasicCounter
	updowns    map[string]*BasicUpDownCounter
	histograms map[string]*BasicHistogram
	meta       map[string]InstrumentConfig
}

// NewBasicProvider constructs an empty BasicProvider.
func NewBasicProvider() *BasicProvider {
	return &BasicProvider{
		counters:   make(map[string]*BasicCounter),
		updowns:    make(map[string]*BasicUpDownCounter),
		histograms: make(map[string]*BasicHistogram),
		meta:       make(map[string]InstrumentConfig),
	}
}

// getOrCreate returns m[name], creating it with mk under the write lock when missing.
// The metadata of the first registration wins.
func getOrCreate[T any](p *BasicProvider, m map[string]T, name string, opts []InstrumentOption, mk func() T) T {
	p.mu.RLock()
	v, ok := m[name]
	p.mu.RUnlock()
	if ok {
		return v
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if v, ok = m[name]; ok {
		return v
	}
	p.meta[name] = NewInstrumentConfig(opts...)
	v = mk()
	m[name] = v
	return v
}

// Counter returns the counter registered under name.
func (p *BasicProvider) Counter(name string, opts ...InstrumentOption) Counter {
	return getOrCreate(p, p.counters, name, opts, func() *BasicCounter { return &BasicCounter{} })
}

// UpDownCounter returns the up/down counter registered under name.
func (p *BasicProvider) UpDownCounter(name string, opts ...InstrumentOption) UpDownCounter {
	return getOrCreate(p, p.updowns, name, opts, func() *BasicUpDownCounter { return &BasicUpDownCounter{} })
}

// Histogram returns the histogram registered under name.
func (p *BasicProvider) Histogram(name string, opts ...InstrumentOption) Histogram {
	return getOrCreate(p, p.histograms, name, opts, func() *BasicHistogram { return &BasicHistogram{} })
}

// CounterValue returns the current value of the named counter.
func (p *BasicProvider) CounterValue(name string) (int64, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	c, ok := p.counters[name]
	if !ok {
		return 0, false
	}
	return c.Snapshot(), true
}

// UpDownValue returns the current value of the named up/down counter.
func (p *BasicProvider) UpDownValue(name string) (int64, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	u, ok := p.updowns[name]
	if !ok {
		return 0, false
	}
	return u.Snapshot(), true
}

// HistogramSnapshot returns a snapshot of the named histogram.
func (p *BasicProvider) HistogramSnapshot(name string) (HistSnapshot, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	h, ok := p.histograms[name]
	if !ok {
		return HistSnapshot{}, false
	}
	return h.Snapshot(), true
}

// Config returns the metadata recorded when the named instrument was created.
func (p *BasicProvider) Config(name string) (InstrumentConfig, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	cfg, ok := p.meta[name]
	return cfg, ok
}

// BasicCounter is a thread-safe monotonic counter.
type BasicCounter struct {
	val atomic.Int64
}

func (c *BasicCounter) Add(n int64) { c.val.Add(n) }

// Snapshot returns the current value.
func (c *BasicCounter) Snapshot() int64 { return c.val.Load() }

// BasicUpDownCounter is a thread-safe up/down counter.
type BasicUpDownCounter struct {
	val atomic.Int64
}

func (u *BasicUpDownCounter) Add(n int64) { u.val.Add(n) }

// Snapshot returns the current value.
func (u *BasicUpDownCounter) Snapshot() int64 { return u.val.Load() }

// BasicHistogram tracks count, sum, min and max of recorded values. No buckets.
type BasicHistogram struct {
	mu    sync.Mutex
	count int64
	sum   float64
	min   float64
	max   float64
}

// Record adds a measurement.
func (h *BasicHistogram) Record(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.count == 0 || v < h.min {
		h.min = v
	}
	if h.count == 0 || v > h.max {
		h.max = v
	}
	h.count++
	h.sum += v
}

// HistSnapshot is an immutable snapshot of a BasicHistogram.
type HistSnapshot struct {
	Count int64
	Sum   float64
	Min   float64
	Max   float64
	Mean  float64
}

// Snapshot returns a copy of the histogram state.
func (h *BasicHistogram) Snapshot() HistSnapshot {
	h.mu.Lock()
	s := HistSnapshot{Count: h.count, Sum: h.sum, Min: h.min, Max: h.max}
	h.mu.Unlock()
	if s.Count > 0 {
		s.Mean = s.Sum / float64(s.Count)
	}
	return s
}
