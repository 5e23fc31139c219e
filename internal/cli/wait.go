package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/equalsraf/ffcli/internal/browser"
)

var waitCmd = &cobra.Command{
	Use:   "wait",
	Short: "Wait until the browser accepts Marionette sessions",
	Long: `Connects repeatedly until a session can be created, backing off a little
more after each failed attempt. Use it after starting Firefox with
--marionette and before the first real command.

Examples:
  firefox --marionette --headless & ffctl wait && ffctl go example.com
  ffctl wait --attempts 10 --delay 500ms`,
	Args: cobra.NoArgs,
	RunE: runWait,
}

var freePortCmd = &cobra.Command{
	Use:   "freeport",
	Short: "Print an unused local TCP port",
	Long: `Prints a TCP port on 127.0.0.1 that nothing is listening on, for a
Firefox profile's marionette.port preference.

Examples:
  port=$(ffctl freeport)
  echo "user_pref(\"marionette.port\", $port);" >> "$profile/user.js"
  FF_PORT=$port ffctl wait`,
	Args: cobra.NoArgs,
	RunE: runFreePort,
}

var (
	waitAttempts int
	waitDelay    time.Duration
	waitTimeout  time.Duration
)

func init() {
	waitCmd.Flags().IntVar(&waitAttempts, "attempts", 4, "Connection attempts before giving up")
	waitCmd.Flags().DurationVar(&waitDelay, "delay", 2*time.Second, "Backoff step between attempts")
	waitCmd.Flags().DurationVarP(&waitTimeout, "timeout", "t", 0, "Overall deadline (0 = none)")
	rootCmd.AddCommand(waitCmd, freePortCmd)
}

func runWait(cmd *cobra.Command, args []string) error {
	cfg, err := loadSettings()
	if err != nil {
		return outputError(err.Error())
	}
	log := newLogger(logLevel(cfg.LogLevel))

	ctx := cmd.Context()
	if waitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, waitTimeout)
		defer cancel()
	}

	c, err := browser.WaitForMarionette(ctx, cfg.Port, cfg.Marionette(log), browser.WaitOptions{
		Attempts: waitAttempts,
		Delay:    waitDelay,
	})
	if err != nil {
		return outputError(err.Error())
	}
	defer c.Close()

	return outputSuccess(nil)
}

func runFreePort(cmd *cobra.Command, args []string) error {
	port, err := browser.FreePort()
	if err != nil {
		return outputError(err.Error())
	}
	return outputValue("port", port)
}
