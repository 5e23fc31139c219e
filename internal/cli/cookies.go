package cli

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/equalsraf/ffcli/internal/cli/format"
	"github.com/equalsraf/ffcli/internal/marionette"
)

var cookiesCmd = &cobra.Command{
	Use:   "cookies",
	Short: "List cookies of the current page",
	Long: `Lists the cookies visible to the current document, one per line:

  name=value; domain=...; path=...; secure; httponly; expires=YYYY-MM-DD

Cookie commands need a WebDriver session (Firefox 63 or later).`,
	Args: cobra.NoArgs,
	RunE: runCookies,
}

var cookiesSetCmd = &cobra.Command{
	Use:   "set <name> <value>",
	Short: "Set a cookie",
	Long: `Sets a cookie on the current document.

Without flags, creates a session cookie for the current page's domain.

Examples:
  cookies set session abc123
  cookies set remember_me yes --max-age 3600
  cookies set session abc123 --secure --httponly --path /api`,
	Args: cobra.ExactArgs(2),
	RunE: runCookiesSet,
}

var cookiesDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a cookie",
	Long:  "Deletes the named cookie from the current document. Deleting a cookie that does not exist succeeds.",
	Args:  cobra.ExactArgs(1),
	RunE:  runCookiesDelete,
}

var (
	cookieDomain   string
	cookiePath     string
	cookieSecure   bool
	cookieHTTPOnly bool
	cookieMaxAge   time.Duration
)

func init() {
	cookiesSetCmd.Flags().StringVar(&cookieDomain, "domain", "", "Cookie domain (defaults to current page domain)")
	cookiesSetCmd.Flags().StringVar(&cookiePath, "path", "", "Cookie path (defaults to \"/\")")
	cookiesSetCmd.Flags().BoolVar(&cookieSecure, "secure", false, "Require HTTPS connection")
	cookiesSetCmd.Flags().BoolVar(&cookieHTTPOnly, "httponly", false, "Prevent JavaScript access")
	cookiesSetCmd.Flags().DurationVar(&cookieMaxAge, "max-age", 0, "Lifetime from now (0 = session cookie)")

	cookiesCmd.AddCommand(cookiesSetCmd, cookiesDeleteCmd)
	rootCmd.AddCommand(cookiesCmd)
}

func runCookies(cmd *cobra.Command, args []string) error {
	s, err := connect(cmd)
	if err != nil {
		return outputError(err.Error())
	}
	defer s.Close()

	cookies, err := s.Cookies()
	if err != nil {
		return outputError(err.Error())
	}

	if JSONOutput {
		if cookies == nil {
			cookies = []marionette.Cookie{}
		}
		return outputSuccess(cookies)
	}
	return format.Cookies(os.Stdout, cookies, format.NewOutputOptions(JSONOutput, NoColor))
}

func runCookiesSet(cmd *cobra.Command, args []string) error {
	cookie := marionette.Cookie{
		Name:     args[0],
		Value:    args[1],
		Domain:   cookieDomain,
		Path:     cookiePath,
		Secure:   cookieSecure,
		HTTPOnly: cookieHTTPOnly,
	}
	if cookieMaxAge > 0 {
		cookie.Expiry = time.Now().Add(cookieMaxAge).Unix()
	}

	s, err := connect(cmd)
	if err != nil {
		return outputError(err.Error())
	}
	defer s.Close()

	if err := s.AddCookie(cookie); err != nil {
		return outputError(err.Error())
	}
	return outputSuccess(nil)
}

func runCookiesDelete(cmd *cobra.Command, args []string) error {
	s, err := connect(cmd)
	if err != nil {
		return outputError(err.Error())
	}
	defer s.Close()

	if err := s.DeleteCookie(args[0]); err != nil {
		return outputError(err.Error())
	}
	return outputSuccess(nil)
}
