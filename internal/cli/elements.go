package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/equalsraf/ffcli/internal/cli/format"
	"github.com/equalsraf/ffcli/internal/marionette"
	"github.com/equalsraf/ffcli/internal/traverse"
)

var attrCmd = &cobra.Command{
	Use:   "attr <selector> <name>",
	Short: "Print an attribute of matching elements",
	Long: `Prints the named attribute of every element matching the selector, in
the page and in all of its frames. Elements without the attribute, or with an
empty value, are skipped.

The selector is CSS unless --by names another strategy: id, name,
class-name, tag-name, link-text, partial-link-text or xpath.

Examples:
  attr a href
  attr --by id title class
  attr --by xpath "//img" src`,
	Args: cobra.ExactArgs(2),
	RunE: runAttr,
}

var propertyCmd = &cobra.Command{
	Use:     "property <selector> <name>",
	Aliases: []string{"prop"},
	Short:   "Print a DOM property of matching elements",
	Long: `Prints the named DOM property of every element matching the selector,
in the page and in all of its frames, as JSON. Null values are skipped.
With -S only string values are printed, without quotes. See attr for --by.`,
	Args: cobra.ExactArgs(2),
	RunE: runProperty,
}

var textCmd = &cobra.Command{
	Use:   "text <selector>",
	Short: "Print the text of matching elements",
	Long: `Prints the rendered text of every element matching the selector, in the
page and in all of its frames. Elements without text are skipped. See attr
for --by.`,
	Args: cobra.ExactArgs(1),
	RunE: runText,
}

var (
	propertyFilterStrs bool
	queryBy            string
)

func init() {
	propertyCmd.Flags().BoolVarP(&propertyFilterStrs, "filter-str", "S", false, "Only print string values")
	for _, c := range []*cobra.Command{attrCmd, propertyCmd, textCmd} {
		c.Flags().StringVar(&queryBy, "by", "css", "Selector strategy (css, id, name, class-name, tag-name, link-text, partial-link-text, xpath)")
	}
	rootCmd.AddCommand(attrCmd, propertyCmd, textCmd)
}

// eachMatch calls fn for every element matching selector in every frame and
// returns the number of matches.
func eachMatch(s *session, method marionette.QueryMethod, selector string, fn func(marionette.ElementRef) error) (int, error) {
	matched := 0
	err := traverse.AllFrames(s, func() error {
		return traverse.EachElement(s, method, selector, func(ref marionette.ElementRef) error {
			matched++
			return fn(ref)
		})
	})
	return matched, err
}

// queryElements runs a per-element query and prints what it collects. In
// text mode each value is printed as it arrives.
func queryElements(cmd *cobra.Command, selector string, query func(*session, marionette.ElementRef) (any, bool, error)) error {
	method, err := marionette.ParseQueryMethod(queryBy)
	if err != nil {
		return outputError(err.Error())
	}

	s, err := connect(cmd)
	if err != nil {
		return outputError(err.Error())
	}
	defer s.Close()

	values := []any{}
	matched, err := eachMatch(s, method, selector, func(ref marionette.ElementRef) error {
		v, ok, err := query(s, ref)
		if err != nil || !ok {
			return err
		}
		if JSONOutput {
			values = append(values, v)
			return nil
		}
		if raw, isJSON := v.(json.RawMessage); isJSON {
			return format.JSONValue(os.Stdout, raw, propertyFilterStrs)
		}
		_, err = fmt.Fprintln(os.Stdout, v)
		return err
	})
	if err != nil {
		return outputError(err.Error())
	}
	if matched == 0 {
		return outputNotice(ErrNoElements.Error())
	}

	if JSONOutput {
		return outputSuccess(values)
	}
	return nil
}

func runAttr(cmd *cobra.Command, args []string) error {
	name := args[1]
	return queryElements(cmd, args[0], func(s *session, ref marionette.ElementRef) (any, bool, error) {
		v, ok, err := s.ElementAttribute(ref, name)
		return v, ok && v != "", err
	})
}

func runProperty(cmd *cobra.Command, args []string) error {
	name := args[1]
	return queryElements(cmd, args[0], func(s *session, ref marionette.ElementRef) (any, bool, error) {
		v, err := s.ElementProperty(ref, name)
		if err != nil {
			return nil, false, err
		}
		if propertyFilterStrs {
			return v, len(v) > 0 && v[0] == '"', nil
		}
		return v, string(v) != "null", nil
	})
}

func runText(cmd *cobra.Command, args []string) error {
	return queryElements(cmd, args[0], func(s *session, ref marionette.ElementRef) (any, bool, error) {
		v, err := s.ElementText(ref)
		return v, v != "", err
	})
}
