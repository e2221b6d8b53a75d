package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusProvider implements Provider on top of client_golang, for
// deployments that want the fabric's counters and histograms scraped
// rather than read back in-process via Snapshot.
type PrometheusProvider struct {
	reg *prometheus.Registry

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	updowns    map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec
}

// NewPrometheusProvider constructs a provider backed by reg. Pass
// prometheus.NewRegistry() for an isolated registry, or
// prometheus.DefaultRegisterer's registry to expose instruments on the
// process-wide /metrics endpoint.
func NewPrometheusProvider(reg *prometheus.Registry) *PrometheusProvider {
	return &PrometheusProvider{
		reg:        reg,
		counters:   make(map[string]*prometheus.CounterVec),
		updowns:    make(map[string]*prometheus.GaugeVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}
}

// Registry exposes the underlying registry so a caller can mount
// promhttp.HandlerFor(p.Registry(), ...) on a debug endpoint.
func (p *PrometheusProvider) Registry() *prometheus.Registry { return p.reg }

func labelNames(attrs map[string]string) []string {
	names := make([]string, 0, len(attrs))
	for k := range attrs {
		names = append(names, k)
	}
	return names
}

func (p *PrometheusProvider) Counter(name string, opts ...InstrumentOption) Counter {
	cfg := applyOptions(opts)

	p.mu.Lock()
	defer p.mu.Unlock()
	vec, ok := p.counters[name]
	if !ok {
		vec = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: name,
			Help: cfg.Description,
		}, labelNames(cfg.Attributes))
		p.reg.MustRegister(vec)
		p.counters[name] = vec
	}
	return &prometheusCounter{vec: vec, labels: cfg.Attributes}
}

func (p *PrometheusProvider) UpDownCounter(name string, opts ...InstrumentOption) UpDownCounter {
	cfg := applyOptions(opts)

	p.mu.Lock()
	defer p.mu.Unlock()
	vec, ok := p.updowns[name]
	if !ok {
		vec = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: name,
			Help: cfg.Description,
		}, labelNames(cfg.Attributes))
		p.reg.MustRegister(vec)
		p.updowns[name] = vec
	}
	return &prometheusUpDownCounter{vec: vec, labels: cfg.Attributes}
}

func (p *PrometheusProvider) Histogram(name string, opts ...InstrumentOption) Histogram {
	cfg := applyOptions(opts)

	p.mu.Lock()
	defer p.mu.Unlock()
	vec, ok := p.histograms[name]
	if !ok {
		vec = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: name,
			Help: cfg.Description,
		}, labelNames(cfg.Attributes))
		p.reg.MustRegister(vec)
		p.histograms[name] = vec
	}
	return &prometheusHistogram{vec: vec, labels: cfg.Attributes}
}

type prometheusCounter struct {
	vec    *prometheus.CounterVec
	labels map[string]string
}

func (c *prometheusCounter) Add(n int64) {
	c.vec.With(prometheus.Labels(c.labels)).Add(float64(n))
}

type prometheusUpDownCounter struct {
	vec    *prometheus.GaugeVec
	labels map[string]string
}

func (u *prometheusUpDownCounter) Add(n int64) {
	u.vec.With(prometheus.Labels(u.labels)).Add(float64(n))
}

type prometheusHistogram struct {
	vec    *prometheus.HistogramVec
	labels map[string]string
}

func (h *prometheusHistogram) Record(v float64) {
	h.vec.With(prometheus.Labels(h.labels)).Observe(v)
}
