// Command computer runs a Computer worker process: a fixed pool of local
// workers that registers with a Space and executes whatever tasks that
// Space's Computer Proxy dispatches.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ygrebnov/fabric/computer"
	"github.com/ygrebnov/fabric/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "computer",
	Short: "Run a fabric Computer worker process",
	RunE: func(_ *cobra.Command, _ []string) error {
		logger := logging.New(logging.TierComputer, viper.GetString("log-level"))

		listen := viper.GetString("listen")
		callback := viper.GetString("callback")
		if callback == "" {
			callback = listen
		}

		c := computer.New(
			computer.WithWorkerNum(viper.GetInt("workers")),
			computer.WithSpaceAddr(viper.GetString("space")),
			computer.WithListenAddr(listen),
			computer.WithLogger(logger),
		)

		if _, err := c.Serve(listen); err != nil {
			return fmt.Errorf("serve computer: %w", err)
		}
		if err := c.Register(viper.GetString("space"), callback); err != nil {
			return fmt.Errorf("register with space: %w", err)
		}
		logger.Info().Str("listen", listen).Str("space", viper.GetString("space")).Int("workers", viper.GetInt("workers")).Msg("computer ready")

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig

		logger.Info().Msg("computer shutting down")
		c.Stop()
		return nil
	},
}

func init() {
	flags := rootCmd.Flags()
	flags.String("listen", fmt.Sprintf("localhost:%d", 7513), "address this computer's RPC service listens on")
	flags.String("callback", "", "address advertised to the space for dial-back (defaults to --listen)")
	flags.String("space", "localhost:7511", "address of the space this computer registers against")
	flags.Int("workers", 4, "number of local worker goroutines")
	flags.String("log-level", "info", "log level: debug, info, warn, error")

	for _, name := range []string{"listen", "callback", "space", "workers", "log-level"} {
		if err := viper.BindPFlag(name, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("fabric_computer")
	viper.AutomaticEnv()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
