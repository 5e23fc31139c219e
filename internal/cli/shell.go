package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Run commands interactively over one session",
	Long: `Opens one Marionette session and reads ffctl commands line by line, with
history and unique-prefix abbreviations. Session settings such as timeouts
stay in effect between lines.

Arguments are split like a shell does: quote scripts that contain spaces.

  ffctl [Example Domain]> go example.org
  ffctl [Example Domain]> exec 'return document.links.length'
  ffctl [Example Domain]> timeouts --implicit 2s

quit and install end the session and the shell. exit or Ctrl-D leave
without touching the browser.`,
	Args: cobra.NoArgs,
	RunE: runShell,
}

func init() {
	rootCmd.AddCommand(shellCmd)
}

// lineReader is the part of *liner.State the shell uses.
type lineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

// REPL runs ffctl commands over one shared session.
type REPL struct {
	s       *session
	in      lineReader
	history []string

	// Global flags given to "ffctl shell", restored before every line.
	jsonOutput bool
	noColor    bool
	debug      bool
	verbose    int
}

// newREPL returns a REPL over s reading lines from in.
func newREPL(s *session, in lineReader) *REPL {
	return &REPL{
		s:          s,
		in:         in,
		jsonOutput: JSONOutput,
		noColor:    NoColor,
		debug:      Debug,
		verbose:    Verbose,
	}
}

// IsStdinTTY returns true if stdin is a terminal.
func IsStdinTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

func runShell(cmd *cobra.Command, args []string) error {
	if shared != nil {
		return outputError("already in a shell")
	}

	s, err := connect(cmd)
	if err != nil {
		return outputError(err.Error())
	}
	defer s.Close()

	state := liner.NewLiner()
	defer state.Close()
	state.SetCtrlCAborts(true)

	if !IsStdinTTY() {
		s.log.Debug().Msg("stdin is not a terminal, reading commands without line editing")
	}
	return newREPL(s, state).Run()
}

// Run reads and executes lines until EOF, exit, or a command that ends
// the session.
func (r *REPL) Run() error {
	r.s.shared = true
	shared = r.s
	defer func() {
		shared = nil
		r.s.shared = false
	}()

	for {
		line, err := r.in.Prompt(r.prompt())
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		r.in.AppendHistory(line)
		r.history = append(r.history, line)

		if exit, handled := r.handleSpecialCommand(line); handled {
			if exit {
				return nil
			}
			continue
		}

		if r.executeCommand(line) {
			return nil
		}
	}
}

// prompt shows the title of the current page.
func (r *REPL) prompt() string {
	title, err := r.s.Title()
	title = strings.TrimSpace(title)
	if err != nil || title == "" {
		return "ffctl> "
	}
	if runes := []rune(title); len(runes) > 30 {
		title = string(runes[:27]) + "..."
	}
	return fmt.Sprintf("ffctl [%s]> ", title)
}

// handleSpecialCommand handles shell-only commands. exit is true when the
// shell should stop.
func (r *REPL) handleSpecialCommand(line string) (exit, handled bool) {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false, false
	}

	switch strings.ToLower(parts[0]) {
	case "exit":
		return true, true
	case "help", "?":
		r.printHelp()
		return false, true
	case "history":
		r.printHistory()
		return false, true
	case "shell":
		_ = outputError("already in a shell")
		return false, true
	}
	return false, false
}

// executeCommand runs one ffctl command line and reports whether it ended
// the session.
func (r *REPL) executeCommand(line string) bool {
	args, err := splitLine(line)
	if err != nil {
		_ = outputError(err.Error())
		return false
	}
	if expanded := tryExpandCommand(args[0]); expanded != "" {
		args[0] = expanded
	}

	JSONOutput, NoColor, Debug, Verbose = r.jsonOutput, r.noColor, r.debug, r.verbose
	recognized, err := ExecuteArgs(args)
	if !recognized {
		_ = outputError(fmt.Sprintf("unknown command: %s", args[0]))
		return false
	}
	// Cobra argument and flag errors are not printed by the command.
	if err != nil && !IsPrintedError(err) {
		_ = outputError(err.Error())
	}

	return r.s.Ended()
}

// splitLine splits a command line into words. Single quotes keep text
// literally; inside double quotes a backslash escapes the next character.
func splitLine(line string) ([]string, error) {
	var (
		words   []string
		word    strings.Builder
		inWord  bool
		quote   rune
		escaped bool
	)
	for _, r := range line {
		switch {
		case escaped:
			word.WriteRune(r)
			escaped = false
		case quote == '\'':
			if r == '\'' {
				quote = 0
			} else {
				word.WriteRune(r)
			}
		case quote == '"':
			switch r {
			case '"':
				quote = 0
			case '\\':
				escaped = true
			default:
				word.WriteRune(r)
			}
		case r == '\'' || r == '"':
			quote = r
			inWord = true
		case r == '\\':
			escaped = true
			inWord = true
		case r == ' ' || r == '\t':
			if inWord {
				words = append(words, word.String())
				word.Reset()
				inWord = false
			}
		default:
			word.WriteRune(r)
			inWord = true
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated %c quote", quote)
	}
	if escaped {
		return nil, errors.New("trailing backslash")
	}
	if inWord {
		words = append(words, word.String())
	}
	if len(words) == 0 {
		return nil, errors.New("empty command")
	}
	return words, nil
}

// printHelp lists the ffctl commands and the shell commands.
func (r *REPL) printHelp() {
	fmt.Fprintln(os.Stdout, "Commands (unique prefixes accepted):")
	for _, cmd := range rootCmd.Commands() {
		if cmd.Hidden || cmd.Name() == "shell" || cmd.Name() == "help" || cmd.Name() == "completion" {
			continue
		}
		fmt.Fprintf(os.Stdout, "  %-10s %s\n", cmd.Name(), cmd.Short)
	}
	fmt.Fprint(os.Stdout, `
Shell:
  help, ?     Show this help
  history     Show command history
  exit        Leave the shell (Ctrl-D also works)
`)
}

// printHistory displays command history.
func (r *REPL) printHistory() {
	for i, cmd := range r.history {
		fmt.Fprintf(os.Stdout, "  %d  %s\n", i+1, cmd)
	}
}
