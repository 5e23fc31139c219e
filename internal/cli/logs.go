package cli

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/equalsraf/ffcli/internal/cli/format"
	"github.com/equalsraf/ffcli/internal/marionette"
)

var logCmd = &cobra.Command{
	Use:   "log <message>",
	Short: "Store a message in the Marionette log",
	Long: `Appends a message to the browser's Marionette log buffer. Read it back with "logs".

Examples:
  log "starting checkout test"
  log --level warn "retrying login"`,
	Args: cobra.ExactArgs(1),
	RunE: runLog,
}

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Print the Marionette log",
	Long: `Prints the entries of the browser's Marionette log buffer, one per line:

  time LEVEL message`,
	Args: cobra.NoArgs,
	RunE: runLogs,
}

var logLevelName string

func init() {
	logCmd.Flags().StringVar(&logLevelName, "level", "info", "Log level (info, warn, error, debug, ...)")
	rootCmd.AddCommand(logCmd, logsCmd)
}

func runLog(cmd *cobra.Command, args []string) error {
	level := strings.ToUpper(strings.TrimSpace(logLevelName))
	if level == "" {
		return outputError("log level must not be empty")
	}

	s, err := connect(cmd)
	if err != nil {
		return outputError(err.Error())
	}
	defer s.Close()

	if err := s.Log(marionette.LogMsg{Value: args[0], Level: level}); err != nil {
		return outputError(err.Error())
	}
	return outputSuccess(nil)
}

func runLogs(cmd *cobra.Command, args []string) error {
	s, err := connect(cmd)
	if err != nil {
		return outputError(err.Error())
	}
	defer s.Close()

	entries, err := s.Logs()
	if err != nil {
		return outputError(err.Error())
	}
	if JSONOutput {
		return outputSuccess(entries)
	}
	return format.Logs(os.Stdout, entries, format.NewOutputOptions(JSONOutput, NoColor))
}
