package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/equalsraf/ffcli/internal/cli"
)

// formatCobraError converts verbose Cobra errors to user-friendly messages.
func formatCobraError(err error) string {
	msg := err.Error()

	// "accepts 1 arg(s), received 0" -> "expected 1 argument(s), got 0"
	if strings.HasPrefix(msg, "accepts ") && strings.Contains(msg, ", received ") {
		msg = strings.Replace(msg, "accepts ", "expected ", 1)
		msg = strings.Replace(msg, "arg(s)", "argument(s)", 1)
		msg = strings.Replace(msg, ", received ", ", got ", 1)
	}

	return msg
}

func main() {
	if err := cli.Execute(); err != nil {
		// Print error if not already printed by command handler
		if !cli.IsPrintedError(err) {
			msg := formatCobraError(err)
			if cli.JSONOutput {
				resp := map[string]any{
					"ok":    false,
					"error": msg,
				}
				_ = json.NewEncoder(os.Stderr).Encode(resp)
			} else {
				fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
			}
		}
		os.Exit(1)
	}
}
