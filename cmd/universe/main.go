// Command universe runs the fabric's root scheduler: the single process
// every Space registers against, and the final destination for every
// Server-submitted coarse task's running-map bookkeeping.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ygrebnov/fabric/internal/logging"
	"github.com/ygrebnov/fabric/universe"
)

var rootCmd = &cobra.Command{
	Use:   "universe",
	Short: "Run the fabric Universe scheduler",
	RunE: func(_ *cobra.Command, _ []string) error {
		logger := logging.New(logging.TierUniverse, viper.GetString("log-level"))

		proc, err := universe.NewProcess(
			universe.WithListenAddr(viper.GetString("listen")),
			universe.WithCheckpointPath(viper.GetString("checkpoint")),
			universe.WithCheckpointPeriod(viper.GetDuration("checkpoint-period")),
			universe.WithRecover(viper.GetBool("recover")),
			universe.WithLogger(logger),
		)
		if err != nil {
			return fmt.Errorf("build universe process: %w", err)
		}

		if err := proc.Serve(viper.GetString("listen")); err != nil {
			return fmt.Errorf("serve universe: %w", err)
		}
		logger.Info().Str("listen", viper.GetString("listen")).Bool("recover", viper.GetBool("recover")).Msg("universe listening")

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig

		logger.Info().Msg("universe shutting down")
		proc.Stop()
		return nil
	},
}

func init() {
	flags := rootCmd.Flags()
	flags.String("listen", fmt.Sprintf("localhost:%d", 7510), "address the universe RPC service listens on")
	flags.String("checkpoint", "fabric-universe.checkpoint", "path to the checkpoint recovery file")
	flags.Duration("checkpoint-period", 10*time.Second, "interval between checkpoint writes")
	flags.Bool("recover", false, "restore state from the checkpoint file before accepting connections")
	flags.String("log-level", "info", "log level: debug, info, warn, error")

	for _, name := range []string{"listen", "checkpoint", "checkpoint-period", "recover", "log-level"} {
		if err := viper.BindPFlag(name, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("fabric_universe")
	viper.AutomaticEnv()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
