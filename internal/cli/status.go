package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/equalsraf/ffcli/internal/cli/format"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the Marionette session",
	Long: `Connects to the browser and prints the negotiated session: its id and
command set, the current context, window and page, and the session timeouts.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadSettings()
	if err != nil {
		return outputError(err.Error())
	}
	s, err := connect(cmd)
	if err != nil {
		return outputError(err.Error())
	}
	defer s.Close()

	data := format.StatusData{
		Port:          cfg.Port,
		SessionID:     s.SessionID(),
		Compatibility: s.Compatibility().String(),
		Timeouts:      s.Timeouts(),
	}
	if err := s.ProbeErr(); err != nil {
		data.ProbeError = err.Error()
	}

	ctx, err := s.Context()
	if err != nil {
		return outputError(err.Error())
	}
	data.Context = ctx.String()

	// Page details are best effort; a hung page should not hide the session.
	if win, err := s.WindowHandle(); err == nil {
		data.Window = string(win)
	}
	if data.ProbeError == "" {
		if url, err := s.URL(); err == nil {
			data.URL = url
		}
		if title, err := s.Title(); err == nil {
			data.Title = title
		}
	}

	if JSONOutput {
		return outputSuccess(data)
	}
	return format.Status(os.Stdout, data, format.NewOutputOptions(JSONOutput, NoColor))
}
