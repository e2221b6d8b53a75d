package metrics

// Provider constructs the instruments a fabric process records its
// fabric_* metrics (metrics/names.go) through. Every tier that records
// metrics — Universe, Space, Computer; the Server records none — is handed
// exactly one Provider at construction (universe.WithMetrics,
// space.WithMetrics, computer.WithMetrics) and calls
// Counter/Histogram by name wherever it needs to count a task dispatch or
// time an execution, without caring whether that Provider discards the
// value (NoopProvider), aggregates it in memory (BasicProvider), or exports
// it to a scrape endpoint (PrometheusProvider).
//
// Implementations must be safe for concurrent use: a Computer's worker
// goroutines, a Space's per-Computer proxies, and a Universe's per-peer
// proxies all call into the same Provider instance from separate
// goroutines.
//
// Keep this interface minimal and stable. If you need new capabilities later,
// introduce separate optional interfaces rather than expanding this surface.
type Provider interface {
	Counter(name string, opts ...InstrumentOption) Counter
	UpDownCounter(name string, opts ...InstrumentOption) UpDownCounter
	Histogram(name string, opts ...InstrumentOption) Histogram
}

// Counter records monotonic counts.
// Methods must be safe for concurrent use.
type Counter interface {
	Add(n int64)
}

// UpDownCounter records values that can move up or down (e.g., current in-flight).
// Methods must be safe for concurrent use.
type UpDownCounter interface {
	Add(n int64)
}

// Histogram records distribution of float64 measurements (e.g., durations in seconds).
// Methods must be safe for concurrent use.
type Histogram interface {
	Record(v float64)
}

// InstrumentConfig carries optional instrument metadata. It's advisory only.
type InstrumentConfig struct {
	Description string
	Unit        string
	// Attributes are static key-value pairs associated with the instrument itself.
	// Keep cardinality bounded. Implementations may ignore attributes.
	Attributes map[string]string
}

// InstrumentOption mutates InstrumentConfig.
type InstrumentOption func(*InstrumentConfig)

// WithDescription sets an advisory description for the instrument.
func WithDescription(desc string) InstrumentOption {
	return func(c *InstrumentConfig) { c.Description = desc }
}

// WithUnit sets an advisory unit for the instrument (e.g., "1", "seconds").
func WithUnit(unit string) InstrumentOption {
	return func(c *InstrumentConfig) { c.Unit = unit }
}

// WithAttributes attaches static attributes to the instrument (bounded
// cardinality only). TierAttr is the fabric's own convenience wrapper over
// this for the one attribute every tier's call sites actually set.
func WithAttributes(attrs map[string]string) InstrumentOption {
	return func(c *InstrumentConfig) {
		if len(attrs) == 0 {
			return
		}
		// copy to avoid external mutation
		if c.Attributes == nil {
			c.Attributes = make(map[string]string, len(attrs))
		}
		for k, v := range attrs {
			c.Attributes[k] = v
		}
	}
}
