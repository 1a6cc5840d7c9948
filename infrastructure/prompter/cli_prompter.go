package prompter

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/reglet-dev/hookguard/domain/ports"
	"golang.org/x/term"
)

// TTYPath is the controlling terminal, used so prompts do not mix with the
// monitored program's own standard streams.
const TTYPath = "/dev/tty"

// Ensure CliPrompter satisfies the Prompter port.
var _ ports.Prompter = (*CliPrompter)(nil)

// CliPrompter implements ports.Prompter for CLI environments.
type CliPrompter struct {
	in     io.Reader
	out    io.Writer
	reader *bufio.Reader
}

// NewCliPrompter creates a new CliPrompter.
func NewCliPrompter(in io.Reader, out io.Writer) *CliPrompter {
	return &CliPrompter{in: in, out: out, reader: bufio.NewReader(in)}
}

// OpenTerminal returns a prompter on the controlling terminal. Without one
// it falls back to stdin and stderr. The returned function releases the
// terminal.
func OpenTerminal() (*CliPrompter, func() error, error) {
	tty, err := os.OpenFile(TTYPath, os.O_RDWR, 0)
	if err != nil {
		return NewCliPrompter(os.Stdin, os.Stderr), func() error { return nil }, nil
	}
	return NewCliPrompter(tty, tty), tty.Close, nil
}

// IsInteractive checks if the input is a terminal.
func (p *CliPrompter) IsInteractive() bool {
	if f, ok := p.in.(*os.File); ok {
		return term.IsTerminal(int(f.Fd())) //nolint:gosec // descriptors fit in int
	}
	return false
}

// PromptForEvent asks the operator about one denied action. "i" prints the
// caller stack and asks again. Unrecognised input is asked again too.
func (p *CliPrompter) PromptForEvent(ctx context.Context, req ports.ReviewRequest) (ports.Answer, error) {
	_, _ = fmt.Fprintf(p.out, "%s\n", req.Summary)
	_, _ = fmt.Fprintf(p.out, "Risk: %s\n", req.RiskLevel)

	for {
		if err := ctx.Err(); err != nil {
			return ports.AnswerDeny, err
		}
		_, _ = fmt.Fprint(p.out, "Allow? [Y]es once / [s]ession / [a]lways / [n]o / [i]nspect: ")

		line, err := p.reader.ReadString('\n')
		if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
			_, _ = fmt.Fprintln(p.out)
			return ports.AnswerDeny, err
		}

		switch strings.ToLower(strings.TrimSpace(line)) {
		case "", "y", "yes":
			return ports.AnswerOnce, nil
		case "s", "session":
			return ports.AnswerSession, nil
		case "a", "always":
			return ports.AnswerPersist, nil
		case "n", "no":
			return ports.AnswerDeny, nil
		case "i", "inspect":
			p.printStack(req.Stack)
		default:
			_, _ = fmt.Fprintln(p.out, "Please answer y, s, a, n or i.")
		}

		if errors.Is(err, io.EOF) {
			// Partial last line was not an answer; nothing more will come.
			return ports.AnswerDeny, io.EOF
		}
	}
}

func (p *CliPrompter) printStack(stack []string) {
	if len(stack) == 0 {
		_, _ = fmt.Fprintln(p.out, "  (no stack available)")
		return
	}
	_, _ = fmt.Fprintln(p.out, "Call stack (most recent call last):")
	for _, frame := range stack {
		_, _ = fmt.Fprintf(p.out, "  %s\n", frame)
	}
}
