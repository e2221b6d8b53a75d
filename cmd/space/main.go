// Command space runs a Space scheduler: it registers with a Universe,
// accepts Computers, and decomposes coarse tasks routed down to it.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ygrebnov/fabric/internal/logging"
	"github.com/ygrebnov/fabric/space"
)

var rootCmd = &cobra.Command{
	Use:   "space",
	Short: "Run a fabric Space scheduler",
	RunE: func(_ *cobra.Command, _ []string) error {
		logger := logging.New(logging.TierSpace, viper.GetString("log-level"))

		listen := viper.GetString("listen")
		callback := viper.GetString("callback")
		if callback == "" {
			callback = listen
		}

		proc, err := space.NewProcess(
			space.WithListenAddr(listen),
			space.WithUniverseAddr(viper.GetString("universe")),
			space.WithDedupDir(viper.GetString("dedup-dir")),
			space.WithLogger(logger),
		)
		if err != nil {
			return fmt.Errorf("build space process: %w", err)
		}

		if err := proc.Serve(listen, callback); err != nil {
			return fmt.Errorf("serve space: %w", err)
		}
		logger.Info().Str("listen", listen).Str("universe", viper.GetString("universe")).Msg("space listening")

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig

		logger.Info().Msg("space shutting down")
		proc.Stop()
		return nil
	},
}

func init() {
	flags := rootCmd.Flags()
	flags.String("listen", fmt.Sprintf("localhost:%d", 7511), "address this space's RPC service listens on")
	flags.String("callback", "", "address advertised to the universe for dial-back (defaults to --listen)")
	flags.String("universe", "localhost:7510", "address of the universe this space registers against")
	flags.String("dedup-dir", "fabric-space-dedup", "on-disk directory backing the duplicate-result store")
	flags.String("log-level", "info", "log level: debug, info, warn, error")

	for _, name := range []string{"listen", "callback", "universe", "dedup-dir", "log-level"} {
		if err := viper.BindPFlag(name, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("fabric_space")
	viper.AutomaticEnv()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
