package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var prefgetCmd = &cobra.Command{
	Use:   "prefget <name>",
	Short: "Print a browser preference",
	Long:  "Prints the value of a preference from about:config as JSON, or null when it is not set.",
	Args:  cobra.ExactArgs(1),
	RunE:  runPrefget,
}

var prefsetCmd = &cobra.Command{
	Use:   "prefset <name> <json>",
	Short: "Set a browser preference",
	Long: `Sets a string, integer or boolean preference. The value is JSON, so strings
need quotes:

  prefset browser.startup.homepage '"about:blank"'
  prefset dom.webdriver.enabled true
  prefset network.http.max-connections 64`,
	Args: cobra.ExactArgs(2),
	RunE: runPrefset,
}

func init() {
	rootCmd.AddCommand(prefgetCmd, prefsetCmd)
}

func runPrefget(cmd *cobra.Command, args []string) error {
	s, err := connect(cmd)
	if err != nil {
		return outputError(err.Error())
	}
	defer s.Close()

	value, err := s.Pref(args[0])
	if err != nil {
		return outputError(err.Error())
	}
	if JSONOutput {
		return outputSuccess(map[string]any{"value": value})
	}
	return outputValue("value", string(value))
}

func runPrefset(cmd *cobra.Command, args []string) error {
	if !json.Valid([]byte(args[1])) {
		return outputError(fmt.Sprintf("preference value %q is not valid JSON", args[1]))
	}

	s, err := connect(cmd)
	if err != nil {
		return outputError(err.Error())
	}
	defer s.Close()

	if err := s.SetPref(args[0], json.RawMessage(args[1])); err != nil {
		return outputError(err.Error())
	}
	return outputSuccess(nil)
}
