package space

import (
	"github.com/ternarybob/arbor"

	"github.com/ygrebnov/fabric/metrics"
)

// Config holds a Space's construction parameters, built up via Option.
type Config struct {
	ListenAddr   string
	UniverseAddr string
	DedupDir     string
	Logger       arbor.ILogger
	Metrics      metrics.Provider
}

// Option mutates a Config during New.
type Option func(*Config)

// WithListenAddr sets the address the Space's RPC service listens on.
func WithListenAddr(addr string) Option {
	return func(c *Config) { c.ListenAddr = addr }
}

// WithUniverseAddr sets the Universe address this Space registers against.
func WithUniverseAddr(addr string) Option {
	return func(c *Config) { c.UniverseAddr = addr }
}

// WithDedupDir sets the on-disk directory backing the duplicate-ValueResult
// store (internal/dedup). Defaults to "fabric-space-dedup" in the working
// directory.
func WithDedupDir(dir string) Option {
	return func(c *Config) { c.DedupDir = dir }
}

// WithLogger overrides the default logger.
func WithLogger(l arbor.ILogger) Option {
	return func(c *Config) { c.Logger = l }
}

// WithMetrics overrides the default (noop) metrics provider.
func WithMetrics(m metrics.Provider) Option {
	return func(c *Config) { c.Metrics = m }
}

func defaultConfig() Config {
	return Config{
		DedupDir: "fabric-space-dedup",
		Metrics:  metrics.NewNoopProvider(),
	}
}

func buildConfig(opts []Option) Config {
	cfg := defaultConfig()
	for _, o := range opts {
		if o != nil {
			o(&cfg)
		}
	}
	return cfg
}
