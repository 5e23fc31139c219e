package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/equalsraf/ffcli/internal/cli/format"
	"github.com/equalsraf/ffcli/internal/marionette"
	"github.com/equalsraf/ffcli/internal/traverse"
)

var execCmd = &cobra.Command{
	Use:   "exec <script|-> [arg...]",
	Short: "Run JavaScript in every frame of the page",
	Long: `Runs the script in the top-level document and in every nested frame, depth
first, printing each non-null result. A script of "-" is read from stdin.
Each ARG is a JSON value passed in the arguments array.

Script errors in one frame are logged and the remaining frames still run.

Examples:
  exec 'return document.title'
  exec 'return arguments[0] + arguments[1]' 1 2
  exec --chrome --sandbox system 'return Services.appinfo.version'
  echo 'return location.href' | exec -`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExec,
}

var (
	execAsync      bool
	execSandbox    string
	execTimeout    time.Duration
	execTop        bool
	execChrome     bool
	execFilterStrs bool
)

func init() {
	execCmd.Flags().BoolVar(&execAsync, "async", false, "Wait for the script to signal completion")
	execCmd.Flags().StringVar(&execSandbox, "sandbox", "", "Run in the named sandbox (\"system\" for chrome privileges)")
	execCmd.Flags().DurationVarP(&execTimeout, "timeout", "t", 0, "Script timeout (default: session script timeout)")
	execCmd.Flags().BoolVar(&execTop, "top", false, "Only run in the current frame")
	execCmd.Flags().BoolVar(&execChrome, "chrome", false, "Run in the chrome context instead of the page")
	execCmd.Flags().BoolVarP(&execFilterStrs, "filter-str", "S", false, "Only print string results")
	rootCmd.AddCommand(execCmd)
}

// buildScript reads the script source and parses the JSON arguments.
func buildScript(in io.Reader, args []string) (*marionette.Script, error) {
	source := args[0]
	if source == "-" {
		data, err := io.ReadAll(in)
		if err != nil {
			return nil, fmt.Errorf("failed to read script from stdin: %w", err)
		}
		source = string(data)
	}

	scriptArgs := make([]json.RawMessage, 0, len(args)-1)
	for _, arg := range args[1:] {
		if !json.Valid([]byte(arg)) {
			return nil, fmt.Errorf("script argument %q is not valid JSON", arg)
		}
		scriptArgs = append(scriptArgs, json.RawMessage(arg))
	}

	s := marionette.NewScript(source)
	if err := s.SetArguments(scriptArgs); err != nil {
		return nil, err
	}
	if execSandbox != "" {
		s.SetSandbox(execSandbox)
	}
	if execTimeout != 0 {
		ms, err := millis("timeout", execTimeout)
		if err != nil {
			return nil, err
		}
		s.SetTimeout(ms)
	}
	return s, nil
}

func runExec(cmd *cobra.Command, args []string) error {
	script, err := buildScript(cmd.InOrStdin(), args)
	if err != nil {
		return outputError(err.Error())
	}

	s, err := connect(cmd)
	if err != nil {
		return outputError(err.Error())
	}
	defer s.Close()

	var results []json.RawMessage
	run := func() error {
		var value json.RawMessage
		var err error
		if execAsync {
			value, err = s.ExecuteAsyncScript(script)
		} else {
			value, err = s.ExecuteScript(script)
		}
		if err != nil {
			if marionette.IsFatal(err) {
				return err
			}
			s.log.Error().Err(err).Msg("script failed")
			return nil
		}

		if JSONOutput {
			results = append(results, value)
			return nil
		}
		return format.JSONValue(os.Stdout, value, execFilterStrs)
	}

	switch {
	case execChrome:
		err = s.WithContext(marionette.Chrome, run)
	case execTop:
		err = run()
	default:
		err = traverse.AllFrames(s, run)
	}
	if err != nil {
		return outputError(err.Error())
	}

	if JSONOutput {
		if results == nil {
			results = []json.RawMessage{}
		}
		return outputSuccess(results)
	}
	return nil
}
