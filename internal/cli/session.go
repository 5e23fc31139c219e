package cli

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/equalsraf/ffcli/internal/marionette"
)

var contextCmd = &cobra.Command{
	Use:   "context",
	Short: "Print the current context (content or chrome)",
	Long: `Prints the realm commands run in: "content" for web pages or "chrome" for
the browser UI. Use exec --chrome to run a script in the chrome context.`,
	Args: cobra.NoArgs,
	RunE: runContext,
}

var timeoutsCmd = &cobra.Command{
	Use:   "timeouts",
	Short: "Show or change the session timeouts",
	Long: `Prints the script, page load and implicit wait timeouts of the session.
Flags change them first. Persistent defaults belong in the [timeouts] table of
the config file, which is applied on every connection.`,
	Args: cobra.NoArgs,
	RunE: runTimeouts,
}

var installCmd = &cobra.Command{
	Use:   "install <xpi>",
	Short: "Install an addon",
	Long: `Installs the addon at the given path and prints its id. The path is made
absolute and must be readable by the browser. With --temporary the addon is
removed when the browser exits, and may be unsigned.`,
	Args: cobra.ExactArgs(1),
	RunE: runInstall,
}

var quitCmd = &cobra.Command{
	Use:   "quit",
	Short: "Ask the browser to exit",
	Args:  cobra.NoArgs,
	RunE:  runQuit,
}

var (
	timeoutScript   time.Duration
	timeoutPageLoad time.Duration
	timeoutImplicit time.Duration
	installTemp     bool
)

func init() {
	timeoutsCmd.Flags().DurationVar(&timeoutScript, "script", 0, "Script timeout")
	timeoutsCmd.Flags().DurationVar(&timeoutPageLoad, "page-load", 0, "Page load timeout")
	timeoutsCmd.Flags().DurationVar(&timeoutImplicit, "implicit", 0, "Implicit element wait")
	installCmd.Flags().BoolVar(&installTemp, "temporary", false, "Remove the addon when the browser exits")
	rootCmd.AddCommand(contextCmd, timeoutsCmd, installCmd, quitCmd)
}

func runContext(cmd *cobra.Command, args []string) error {
	s, err := connect(cmd)
	if err != nil {
		return outputError(err.Error())
	}
	defer s.Close()

	ctx, err := s.Context()
	if err != nil {
		return outputError(err.Error())
	}
	return outputValue("context", ctx.String())
}

func runTimeouts(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	changes := map[string]*uint64{}
	for _, f := range []struct {
		name string
		d    time.Duration
	}{
		{"script", timeoutScript},
		{"page-load", timeoutPageLoad},
		{"implicit", timeoutImplicit},
	} {
		if !flags.Changed(f.name) {
			continue
		}
		ms, err := millis(f.name, f.d)
		if err != nil {
			return outputError(err.Error())
		}
		changes[f.name] = &ms
	}

	s, err := connect(cmd)
	if err != nil {
		return outputError(err.Error())
	}
	defer s.Close()

	t := s.Timeouts()
	if len(changes) > 0 {
		if ms, ok := changes["script"]; ok {
			t.Script = *ms
		}
		if ms, ok := changes["page-load"]; ok {
			t.PageLoad = *ms
		}
		if ms, ok := changes["implicit"]; ok {
			t.Implicit = *ms
		}
		if err := s.SetTimeouts(t); err != nil {
			return outputError(err.Error())
		}
	}

	if JSONOutput {
		return outputSuccess(t)
	}
	return outputValue("timeouts", formatTimeouts(t))
}

// millis converts a duration flag to whole milliseconds.
func millis(flag string, d time.Duration) (uint64, error) {
	if d < 0 {
		return 0, fmt.Errorf("--%s must not be negative, got %s", flag, d)
	}
	return uint64(d.Milliseconds()), nil
}

func formatTimeouts(t marionette.Timeouts) string {
	return fmt.Sprintf("script=%dms page-load=%dms implicit=%dms", t.Script, t.PageLoad, t.Implicit)
}

func runInstall(cmd *cobra.Command, args []string) error {
	path, err := filepath.Abs(args[0])
	if err != nil {
		return outputError(err.Error())
	}

	s, err := connect(cmd)
	if err != nil {
		return outputError(err.Error())
	}
	defer s.Close()

	id, err := s.InstallAddon(path, installTemp)
	if err != nil {
		return outputError(err.Error())
	}
	return outputValue("id", id)
}

func runQuit(cmd *cobra.Command, args []string) error {
	s, err := connect(cmd)
	if err != nil {
		return outputError(err.Error())
	}
	defer s.Close()

	if err := s.Quit(); err != nil {
		return outputError(err.Error())
	}
	return outputSuccess(nil)
}
