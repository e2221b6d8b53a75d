package metrics

import (
	"math"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// BasicProvider is the fabric's in-memory Provider: passed to a tier via its
// WithMetrics option, it turns every fabric_* instrument (metrics/names.go)
// that tier records into a real, readable counter/histogram suitable for
// tests and the occasional debug dump. The cmd binaries pass no Provider, so
// they run with the noop default.
//
// Instruments are keyed by name PLUS attributes, not name alone: the same
// instrument name is shared across tiers (TasksDispatched is incremented by
// both a Universe Space Proxy and a Space Computer Proxy), and TierAttr is
// how a call site tells BasicProvider which tier's count it's adding to —
// mirroring how PrometheusProvider's label vectors keep
// fabric_tasks_dispatched{tier="space"} distinct from {tier="computer"}.
type BasicProvider struct {
	mu         sync.RWMutex
	counters   map[string]*BasicCounter
	updowns    map[string]*BasicUpDownCounter
	histograms map[string]*BasicHistogram
	meta       map[string]InstrumentConfig // optional stored metadata per key
}

// NewBasicProvider constructs a new BasicProvider.
func NewBasicProvider() *BasicProvider {
	return &BasicProvider{
		counters:   make(map[string]*BasicCounter),
		updowns:    make(map[string]*BasicUpDownCounter),
		histograms: make(map[string]*BasicHistogram),
		meta:       make(map[string]InstrumentConfig),
	}
}

// applyOptions builds InstrumentConfig from options.
func applyOptions(opts []InstrumentOption) InstrumentConfig {
	var cfg InstrumentConfig
	for _, o := range opts {
		if o != nil {
			o(&cfg)
		}
	}
	return cfg
}

// instrumentKey combines name and attributes into the map key an instrument
// is cached under, so two calls with the same name but different attributes
// (e.g. TierAttr("space") vs TierAttr("computer")) never collapse into one
// instrument.
func instrumentKey(name string, attrs map[string]string) string {
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
		b.WriteByte('\x1f')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(attrs[k])
	}
	return b.String()
}

// Counter returns a monotonic counter instrument for the given name and
// attributes (created once per distinct combination).
func (p *BasicProvider) Counter(name string, opts ...InstrumentOption) Counter {
	cfg := applyOptions(opts)
	key := instrumentKey(name, cfg.Attributes)

	p.mu.RLock()
	c, ok := p.counters[key]
	p.mu.RUnlock()
	if ok {
		return c
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	// re-check after acquiring write lock
	if c, ok = p.counters[key]; ok {
		return c
	}
	p.meta[key] = cfg
	c = &BasicCounter{}
	p.counters[key] = c
	return c
}

// UpDownCounter returns an up/down counter instrument for the given name and
// attributes (created once per distinct combination).
func (p *BasicProvider) UpDownCounter(name string, opts ...InstrumentOption) UpDownCounter {
	cfg := applyOptions(opts)
	key := instrumentKey(name, cfg.Attributes)

	p.mu.RLock()
	u, ok := p.updowns[key]
	p.mu.RUnlock()
	if ok {
		return u
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if u, ok = p.updowns[key]; ok {
		return u
	}
	p.meta[key] = cfg
	u = &BasicUpDownCounter{}
	p.updowns[key] = u
	return u
}

// Histogram returns a histogram instrument for the given name and
// attributes (created once per distinct combination).
func (p *BasicProvider) Histogram(name string, opts ...InstrumentOption) Histogram {
	cfg := applyOptions(opts)
	key := instrumentKey(name, cfg.Attributes)

	p.mu.RLock()
	h, ok := p.histograms[key]
	p.mu.RUnlock()
	if ok {
		return h
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if h, ok = p.histograms[key]; ok {
		return h
	}
	p.meta[key] = cfg
	h = &BasicHistogram{min: math.Inf(1), max: math.Inf(-1)}
	p.histograms[key] = h
	return h
}

// BasicCounter is a thread-safe monotonic counter.
type BasicCounter struct {
	val atomic.Int64
}

// Add increments the counter by n (n may be negative but it's not recommended for monotonic counters).
func (c *BasicCounter) Add(n int64) { c.val.Add(n) }

// Snapshot returns the current value.
func (c *BasicCounter) Snapshot() int64 { return c.val.Load() }

// BasicUpDownCounter is a thread-safe up/down counter.
type BasicUpDownCounter struct {
	val atomic.Int64
}

// Add adds n (positive or negative) to the current value.
func (u *BasicUpDownCounter) Add(n int64) { u.val.Add(n) }

// Snapshot returns the current value.
func (u *BasicUpDownCounter) Snapshot() int64 { return u.val.Load() }

// BasicHistogram is a thread-safe histogram that tracks count, sum, min, and max.
// It does not maintain buckets; it's intended as a lightweight, general-purpose aggregator.
type BasicHistogram struct {
	mu    sync.Mutex
	count int64
	sum   float64
	min   float64
	max   float64
}

// Record adds a measurement to the histogram.
func (h *BasicHistogram) Record(v float64) {
	h.mu.Lock()
	if h.count == 0 {
		// initialize min/max on first record
		h.min, h.max = v, v
	} else {
		if v < h.min {
			h.min = v
		}
		if v > h.max {
			h.max = v
		}
	}
	h.count++
	h.sum += v
	h.mu.Unlock()
}

// HistSnapshot is an immutable snapshot of a BasicHistogram.
type HistSnapshot struct {
	Count int64
	Sum   float64
	Min   float64
	Max   float64
	Mean  float64
}

// Snapshot returns a copy of the histogram state at the time of call.
func (h *BasicHistogram) Snapshot() HistSnapshot {
	h.mu.Lock()
	count := h.count
	sum := h.sum
	min := h.min
	max := h.max
	h.mu.Unlock()
	mean := 0.0
	if count > 0 {
		mean = sum / float64(count)
	}
	return HistSnapshot{Count: count, Sum: sum, Min: min, Max: max, Mean: mean}
}
