package metrics

// NoopProvider discards every fabric_* instrument (metrics/names.go) a tier
// records. It is the Provider a Universe/Space/Computer falls back to when
// built with no WithMetrics option at all — e.g. a unit test's
// newTestScheduler helper that doesn't care about counters, and
// cmd/universe, cmd/space and cmd/computer, none of which pass a Provider.
type NoopProvider struct{}

// NewNoopProvider constructs a Provider that discards all metrics.
func NewNoopProvider() NoopProvider { return NoopProvider{} }

func (NoopProvider) Counter(_ string, _ ...InstrumentOption) Counter {
	return noopCounter{}
}

func (NoopProvider) UpDownCounter(_ string, _ ...InstrumentOption) UpDownCounter {
	return noopUpDownCounter{}
}

func (NoopProvider) Histogram(_ string, _ ...InstrumentOption) Histogram {
	return noopHistogram{}
}

type noopCounter struct{}

func (noopCounter) Add(_ int64) {}

type noopUpDownCounter struct{}

func (noopUpDownCounter) Add(_ int64) {}

type noopHistogram struct{}

func (noopHistogram) Record(_ float64) {}
