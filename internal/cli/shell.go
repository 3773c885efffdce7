package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const shellPrompt = "pantry> "

const shellHelp = `Commands:
  add NAME QUANTITY   add a product
  find NAME           show products named NAME
  delete NAME         delete products named NAME
  clear               leave search results, show every product
  list                show every product
  metrics             print operation counters
  help                show this help
  quit                leave the shell
`

func newShellCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive session over the product list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer sess.Close()

			in := cmd.InOrStdin()
			sh := &shell{
				sess:        sess,
				cmd:         cmd,
				out:         cmd.OutOrStdout(),
				format:      opts.settings.Output,
				interactive: isTerminal(in),
			}
			return sh.run(in)
		},
	}
}

// shell mirrors a single screen: it shows the search slot while a search is
// active, otherwise the full list.
type shell struct {
	sess        *session
	cmd         *cobra.Command
	out         io.Writer
	format      string
	interactive bool // prompt only when reading from a terminal
	searching   bool
}

const maxShellLine = 1 << 20

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (sh *shell) run(in io.Reader) error {
	if err := sh.show(); err != nil {
		return err
	}
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxShellLine)
	for {
		if sh.interactive {
			fmt.Fprint(sh.out, shellPrompt)
		}
		if !scanner.Scan() {
			if sh.interactive {
				fmt.Fprintln(sh.out)
			}
			return scanner.Err()
		}
		quit, err := sh.exec(scanner.Text())
		if err != nil {
			return err
		}
		if quit {
			return nil
		}
	}
}

// exec runs one input line. Input mistakes are reported and the session
// continues; only storage waits that fail end it.
func (sh *shell) exec(line string) (bool, error) {
	verb, rest, _ := strings.Cut(strings.TrimLeft(line, " \t"), " ")
	repo := sh.sess.repo

	switch verb {
	case "":
		return false, nil
	case "quit", "exit":
		return true, nil
	case "help":
		fmt.Fprint(sh.out, shellHelp)
		return false, nil
	case "metrics":
		repo.WriteMetrics(sh.out)
		return false, nil
	case "list", "clear":
		sh.searching = false
	case "add":
		i := strings.LastIndex(rest, " ")
		if i <= 0 {
			fmt.Fprintln(sh.out, "usage: add NAME QUANTITY")
			return false, nil
		}
		if err := repo.InsertProduct(rest[:i], rest[i+1:]); err != nil {
			sh.reportError(err)
			return false, nil
		}
		sh.searching = false
	case "find":
		if rest == "" {
			fmt.Fprintln(sh.out, "usage: find NAME")
			return false, nil
		}
		if err := repo.FindProduct(rest); err != nil {
			sh.reportError(err)
			return false, nil
		}
		sh.searching = true
	case "delete":
		if rest == "" {
			fmt.Fprintln(sh.out, "usage: delete NAME")
			return false, nil
		}
		if err := repo.DeleteProduct(rest); err != nil {
			sh.reportError(err)
			return false, nil
		}
		sh.searching = false
	default:
		fmt.Fprintf(sh.out, "unknown command %q (try help)\n", verb)
		return false, nil
	}

	if err := sh.sess.flush(sh.cmd.Context()); err != nil {
		return false, err
	}
	return false, sh.show()
}

func (sh *shell) show() error {
	recs := sh.sess.repo.AllProducts().Value()
	if sh.searching {
		recs = sh.sess.repo.SearchResults().Value()
	}
	return renderRecords(sh.out, sh.format, recs)
}

func (sh *shell) reportError(err error) {
	fmt.Fprintf(sh.out, "Error: %v\n", err)
}
