// Package logging configures the fabric's structured logger: a thin,
// fabric-specific wrapper around arbor.ILogger, following the
// console+level setup style used for the retrieved corpus's services.
package logging

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/models"
)

// Tier identifies which process is logging, stamped on every line so a
// mixed Universe/Space/Computer/Server deployment's logs can be told apart
// when aggregated.
type Tier string

const (
	TierUniverse Tier = "universe"
	TierSpace    Tier = "space"
	TierComputer Tier = "computer"
	TierServer   Tier = "server"
)

// New builds a console logger at the given level ("debug", "info", "warn",
// "error"), and announces the tier starting up. Every call site still
// tags its own lines with Str("tier", ...) / Int("id", ...) the way the
// rest of the corpus tags fields per-call rather than through a persistent
// logging context.
func New(tier Tier, level string) arbor.ILogger {
	logger := arbor.NewLogger().
		WithConsoleWriter(models.WriterConfiguration{
			Type:             models.LogWriterTypeConsole,
			TimeFormat:       "15:04:05.000",
			DisableTimestamp: false,
		}).
		WithLevelFromString(level)

	logger.Info().Str("tier", string(tier)).Msg("logger initialized")
	return logger
}
