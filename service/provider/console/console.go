// Package console implements a decision provider that renders the approval
// request as a textual prompt and reads a single-character answer. Tests can
// substitute Reader/Writer to avoid interactive TTY requirements.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/starks-and-wolves/ai-browser-secure/model/action"
)

// DefaultTimeout bounds how long the prompt waits for input before resolving
// to deny.
const DefaultTimeout = 5 * time.Minute

// Provider prompts on out and reads the answer from in.
type Provider struct {
	in      io.Reader
	out     io.Writer
	timeout time.Duration
}

// New returns a Provider reading from stdin and writing to stdout.
func New() *Provider {
	return NewWithIO(os.Stdin, os.Stdout)
}

// NewWithIO lets callers override the input/output streams (handy for tests).
func NewWithIO(in io.Reader, out io.Writer) *Provider {
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}
	return &Provider{in: in, out: out, timeout: DefaultTimeout}
}

// WithTimeout overrides the input deadline and returns the provider.
func (p *Provider) WithTimeout(timeout time.Duration) *Provider {
	if timeout > 0 {
		p.timeout = timeout
	}
	return p
}

// Decide renders the prompt and maps the response: y approves, s approves for
// the session, d approves for the domain, anything else denies. No input
// within the deadline denies.
func (p *Provider) Decide(ctx context.Context, request *action.Request) (action.Decision, error) {
	fmt.Fprint(p.out, request.FormatPrompt())
	fmt.Fprintln(p.out, "\nOptions:")
	fmt.Fprintln(p.out, "  [y] Approve this action")
	fmt.Fprintln(p.out, "  [n] Deny this action")
	fmt.Fprintln(p.out, "  [s] Approve all similar actions for this session")
	fmt.Fprintln(p.out, "  [d] Approve all similar actions for this domain")
	fmt.Fprint(p.out, "\nYour choice [y/n/s/d]: ")

	type answer struct {
		text string
		err  error
	}
	// The reading goroutine may outlive a timed-out prompt; it parks on the
	// blocked reader and is reclaimed at process exit.
	responses := make(chan answer, 1)
	go func() {
		line, err := bufio.NewReader(p.in).ReadString('\n')
		responses <- answer{text: line, err: err}
	}()

	timer := time.NewTimer(p.timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return action.Deny, ctx.Err()
	case <-timer.C:
		log.Printf("approval prompt timed out after %v, denying action", p.timeout)
		return action.Deny, nil
	case response := <-responses:
		if response.err != nil && response.text == "" {
			return action.Deny, nil
		}
		switch strings.ToLower(strings.TrimSpace(response.text)) {
		case "y":
			return action.Approve, nil
		case "s":
			return action.ApproveAllSession, nil
		case "d":
			return action.ApproveAllDomain, nil
		default:
			return action.Deny, nil
		}
	}
}
