// Command server runs a reference Server process: it registers with a
// Universe, submits a single examples/fib coarse task, and prints the
// final value once the fabric has computed it.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ygrebnov/fabric/examples/fib"
	"github.com/ygrebnov/fabric/internal/logging"
	"github.com/ygrebnov/fabric/server"
	"github.com/ygrebnov/fabric/task"
)

var rootCmd = &cobra.Command{
	Use:   "server",
	Short: "Submit a fib(n) coarse task to the fabric and print its result",
	RunE: func(_ *cobra.Command, _ []string) error {
		logger := logging.New(logging.TierServer, viper.GetString("log-level"))

		listen := viper.GetString("listen")
		callback := viper.GetString("callback")
		if callback == "" {
			callback = listen
		}

		s := server.New(viper.GetString("tag"), logger)
		if _, err := s.Serve(listen); err != nil {
			return fmt.Errorf("serve server: %w", err)
		}
		if err := s.Register(viper.GetString("universe"), callback); err != nil {
			return fmt.Errorf("register with universe: %w", err)
		}
		logger.Info().Str("listen", listen).Str("universe", viper.GetString("universe")).Msg("server ready")

		n := viper.GetInt("n")
		resultCh := s.Submit(fib.New(n))

		timeout := viper.GetDuration("timeout")
		select {
		case res := <-resultCh:
			vr, ok := res.(*task.ValueResult)
			if !ok {
				return fmt.Errorf("unexpected result type %T for fib(%d)", res, n)
			}
			fmt.Printf("fib(%d) = %v\n", n, vr.Value)
		case <-time.After(timeout):
			return fmt.Errorf("timed out after %s waiting for fib(%d) result", timeout, n)
		}
		return nil
	},
}

func init() {
	flags := rootCmd.Flags()
	flags.String("listen", fmt.Sprintf("localhost:%d", 7512), "address this server's RPC service listens on")
	flags.String("callback", "", "address advertised to the universe for dial-back (defaults to --listen)")
	flags.String("universe", "localhost:7510", "address of the universe this server registers against")
	flags.String("tag", "", "client tag written to this server's registration log line (default: generated uuid)")
	flags.Int("n", 10, "fib(n) to compute")
	flags.Duration("timeout", 30*time.Second, "how long to wait for the final result")
	flags.String("log-level", "info", "log level: debug, info, warn, error")

	for _, name := range []string{"listen", "callback", "universe", "tag", "n", "timeout", "log-level"} {
		if err := viper.BindPFlag(name, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("fabric_server")
	viper.AutomaticEnv()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
