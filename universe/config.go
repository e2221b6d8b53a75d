package universe

import (
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ygrebnov/fabric/metrics"
)

// Config holds a Universe's construction parameters, built up via Option.
type Config struct {
	ListenAddr        string
	CheckpointPath    string
	CheckpointPeriod  time.Duration
	Recover           bool
	Logger            arbor.ILogger
	Metrics           metrics.Provider
}

// Option mutates a Config during New.
type Option func(*Config)

// WithListenAddr sets the address the Universe's RPC service listens on.
func WithListenAddr(addr string) Option {
	return func(c *Config) { c.ListenAddr = addr }
}

// WithCheckpointPath overrides the recovery file location (default
// checkpoint.FileName in the working directory).
func WithCheckpointPath(path string) Option {
	return func(c *Config) { c.CheckpointPath = path }
}

// WithCheckpointPeriod overrides the checkpoint cadence (default 10s per
// design §4.3).
func WithCheckpointPeriod(d time.Duration) Option {
	return func(c *Config) { c.CheckpointPeriod = d }
}

// WithRecover starts the Universe by reloading its last checkpoint instead
// of empty queues (design §6.3's recovery-flag argument).
func WithRecover(recover bool) Option {
	return func(c *Config) { c.Recover = recover }
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
		CheckpointPeriod: 10 * time.Second,
		Metrics:          metrics.NewNoopProvider(),
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
