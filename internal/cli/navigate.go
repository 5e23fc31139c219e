package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

var navigateCmd = &cobra.Command{
	Use:     "go <url>",
	Aliases: []string{"navigate"},
	Short:   "Navigate to URL",
	Long: `Loads the URL in the current window and waits for the page load strategy
of the session. A missing scheme defaults to https://, or http:// for
localhost, 127.0.0.1 and 0.0.0.0.`,
	Args: cobra.ExactArgs(1),
	RunE: runNavigate,
}

var backCmd = &cobra.Command{
	Use:   "back",
	Short: "Navigate to previous page",
	Args:  cobra.NoArgs,
	RunE: historyAction(func(s *session) error {
		return s.GoBack()
	}),
}

var forwardCmd = &cobra.Command{
	Use:   "forward",
	Short: "Navigate to next page",
	Args:  cobra.NoArgs,
	RunE: historyAction(func(s *session) error {
		return s.GoForward()
	}),
}

var reloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Reload current page",
	Args:  cobra.NoArgs,
	RunE: historyAction(func(s *session) error {
		return s.Refresh()
	}),
}

func init() {
	rootCmd.AddCommand(navigateCmd, backCmd, forwardCmd, reloadCmd)
}

// normalizeURL adds protocol to URL if missing.
// Uses http:// for localhost/127.0.0.1/0.0.0.0, https:// otherwise.
func normalizeURL(url string) string {
	if strings.Contains(url, "://") || strings.HasPrefix(url, "about:") {
		return url
	}

	lower := strings.ToLower(url)
	if strings.HasPrefix(lower, "localhost") ||
		strings.HasPrefix(lower, "127.0.0.1") ||
		strings.HasPrefix(lower, "0.0.0.0") {
		return "http://" + url
	}

	return "https://" + url
}

func runNavigate(cmd *cobra.Command, args []string) error {
	s, err := connect(cmd)
	if err != nil {
		return outputError(err.Error())
	}
	defer s.Close()

	url := normalizeURL(args[0])
	s.log.Debug().Str("url", url).Msg("navigate")
	if err := s.Navigate(url); err != nil {
		return outputError(err.Error())
	}

	// JSON mode: include the URL the browser ended up on
	if JSONOutput {
		current, err := s.URL()
		if err != nil {
			return outputError(err.Error())
		}
		return outputSuccess(map[string]any{"url": current})
	}
	return outputSuccess(nil)
}

// historyAction wraps a command that only changes the current page.
func historyAction(fn func(s *session) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, err := connect(cmd)
		if err != nil {
			return outputError(err.Error())
		}
		defer s.Close()

		if err := fn(s); err != nil {
			return outputError(err.Error())
		}
		return outputSuccess(nil)
	}
}
