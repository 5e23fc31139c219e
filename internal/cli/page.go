package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/equalsraf/ffcli/internal/pagesource"
)

var titleCmd = &cobra.Command{
	Use:   "title",
	Short: "Print the title of the current page",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return pageValue(cmd, "title", (*session).Title)
	},
}

var urlCmd = &cobra.Command{
	Use:   "url",
	Short: "Print the URL of the current page",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return pageValue(cmd, "url", (*session).URL)
	},
}

var sourceCmd = &cobra.Command{
	Use:   "source",
	Short: "Print the serialized DOM of the current page",
	Long: `Prints the page source as the browser serializes it.

With --pretty the document is re-indented one element per line. Contents of
pre, textarea, script and style are kept as they are.`,
	Args: cobra.NoArgs,
	RunE: runSource,
}

var (
	sourcePretty     bool
	sourceNoComments bool
)

func init() {
	sourceCmd.Flags().BoolVarP(&sourcePretty, "pretty", "p", false, "Indent the document")
	sourceCmd.Flags().BoolVar(&sourceNoComments, "no-comments", false, "Drop HTML comments (with --pretty)")
	rootCmd.AddCommand(titleCmd, urlCmd, sourceCmd)
}

func pageValue(cmd *cobra.Command, key string, get func(*session) (string, error)) error {
	s, err := connect(cmd)
	if err != nil {
		return outputError(err.Error())
	}
	defer s.Close()

	value, err := get(s)
	if err != nil {
		return outputError(err.Error())
	}
	return outputValue(key, value)
}

func runSource(cmd *cobra.Command, args []string) error {
	s, err := connect(cmd)
	if err != nil {
		return outputError(err.Error())
	}
	defer s.Close()

	src, err := s.PageSource()
	if err != nil {
		return outputError(err.Error())
	}

	if sourcePretty {
		src, err = pagesource.Format(src, pagesource.Options{DropComments: sourceNoComments})
		if err != nil {
			return outputError(fmt.Sprintf("failed to format page source: %v", err))
		}
	}

	if JSONOutput {
		return outputSuccess(map[string]any{"source": src})
	}
	_, err = fmt.Fprint(os.Stdout, src)
	if err == nil && len(src) > 0 && src[len(src)-1] != '\n' {
		_, err = fmt.Fprintln(os.Stdout)
	}
	return err
}
