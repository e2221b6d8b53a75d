package computer

import (
	"github.com/ternarybob/arbor"

	"github.com/ygrebnov/fabric/metrics"
)

// Config holds a Computer's construction parameters, built up via Option.
type Config struct {
	WorkerNum int
	SpaceAddr string
	ListenAddr string
	Logger    arbor.ILogger
	Metrics   metrics.Provider
}

// Option mutates a Config during New.
type Option func(*Config)

// WithWorkerNum sets the number of worker slots the Computer will run.
// Defaults to 1 if never set or set to <= 0.
func WithWorkerNum(n int) Option {
	return func(c *Config) { c.WorkerNum = n }
}

// WithSpaceAddr sets the Space address the Computer registers against.
func WithSpaceAddr(addr string) Option {
	return func(c *Config) { c.SpaceAddr = addr }
}

// WithListenAddr sets the address the Computer's own RPC service listens
// on.
func WithListenAddr(addr string) Option {
	return func(c *Config) { c.ListenAddr = addr }
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
		WorkerNum: 1,
		Metrics:   metrics.NewNoopProvider(),
	}
}

func buildConfig(opts []Option) Config {
	cfg := defaultConfig()
	for _, o := range opts {
		if o != nil {
			o(&cfg)
		}
	}
	if cfg.WorkerNum <= 0 {
		cfg.WorkerNum = 1
	}
	return cfg
}
