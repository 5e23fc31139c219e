package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/equalsraf/ffcli/internal/cli/format"
	"github.com/equalsraf/ffcli/internal/marionette"
)

var windowsCmd = &cobra.Command{
	Use:   "windows",
	Short: "List browser windows",
	Long: `Lists every window handle with the title of its page. The current window
is marked with "*" and is current again when the command returns.`,
	Args: cobra.NoArgs,
	RunE: runWindows,
}

var switchCmd = &cobra.Command{
	Use:   "switch <window>",
	Short: "Switch to another window",
	Long: `Makes the window with the given handle current. With --idx the argument is
a zero-based index into the handle list printed by "windows".`,
	Args: cobra.ExactArgs(1),
	RunE: runSwitch,
}

var switchByIndex bool

func init() {
	switchCmd.Flags().BoolVar(&switchByIndex, "idx", false, "Treat the argument as an index into the window list")
	rootCmd.AddCommand(windowsCmd, switchCmd)
}

func runWindows(cmd *cobra.Command, args []string) error {
	s, err := connect(cmd)
	if err != nil {
		return outputError(err.Error())
	}
	defer s.Close()

	current, err := s.WindowHandle()
	if err != nil {
		return outputError(err.Error())
	}
	handles, err := s.WindowHandles()
	if err != nil {
		return outputError(err.Error())
	}

	windows := make([]format.Window, 0, len(handles))
	for _, h := range handles {
		if err := s.SwitchToWindow(h); err != nil {
			return outputError(err.Error())
		}
		title, err := s.Title()
		if err != nil {
			return outputError(err.Error())
		}
		windows = append(windows, format.Window{Handle: h, Title: title, Current: h == current})
	}
	if err := s.SwitchToWindow(current); err != nil {
		return outputError(fmt.Sprintf("failed to return to window %s: %v", current, err))
	}

	if JSONOutput {
		return outputSuccess(windows)
	}
	return format.Windows(os.Stdout, windows, format.NewOutputOptions(JSONOutput, NoColor))
}

func runSwitch(cmd *cobra.Command, args []string) error {
	s, err := connect(cmd)
	if err != nil {
		return outputError(err.Error())
	}
	defer s.Close()

	target := marionette.WindowHandle(args[0])
	if switchByIndex {
		idx, err := strconv.Atoi(args[0])
		if err != nil {
			return outputError(fmt.Sprintf("invalid window index %q", args[0]))
		}
		handles, err := s.WindowHandles()
		if err != nil {
			return outputError(err.Error())
		}
		if idx < 0 || idx >= len(handles) {
			return outputError(fmt.Sprintf("window index %d out of range (%d windows)", idx, len(handles)))
		}
		target = handles[idx]
	}

	if err := s.SwitchToWindow(target); err != nil {
		return outputError(err.Error())
	}
	return outputSuccess(nil)
}
