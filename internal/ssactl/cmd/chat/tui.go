package chat

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	v1 "github.com/kiosk404/sankhya-agent/internal/ssa/handler/v1"
	"github.com/kiosk404/sankhya-agent/internal/ssactl/client"
	"github.com/kiosk404/sankhya-agent/pkg/cli/genericclioptions"
	"github.com/kiosk404/sankhya-agent/pkg/version"
)

// Raw escape codes; no OSC queries or profile auto-detection.
const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
	colorOrange = "\033[38;5;208m"
	colorBlue   = "\033[38;5;39m"
	colorGreen  = "\033[38;5;42m"
	colorGray   = "\033[38;5;241m"
	colorRed    = "\033[38;5;196m"
	clearLine   = "\r\033[K"
)

// session is an interactive conversation. Output goes straight to the
// terminal instead of an alt-screen, so answers stay selectable.
type session struct {
	cli     *client.Client
	timeout time.Duration
	details bool
	history []v1.ChatMessage

	genericclioptions.IOStreams
	tty bool
}

func newSession(cli *client.Client, streams genericclioptions.IOStreams, timeout time.Duration, details bool) *session {
	s := &session{cli: cli, timeout: timeout, details: details, IOStreams: streams}
	if f, ok := streams.Out.(*os.File); ok {
		s.tty = term.IsTerminal(int(f.Fd()))
	}
	return s
}

// paint wraps text in escape codes when writing to a terminal.
func (s *session) paint(code, text string) string {
	if !s.tty {
		return text
	}
	return code + text + colorReset
}

func (s *session) width() int {
	if f, ok := s.Out.(*os.File); ok {
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
			return w
		}
	}
	return 80
}

func (s *session) printBanner() {
	sep := s.paint(colorOrange, strings.Repeat("-", s.width()))
	fmt.Fprintln(s.Out, sep)
	fmt.Fprintln(s.Out, s.paint(colorBold+colorOrange, "Sankhya Agent Chat "+version.Get().GitVersion))
	fmt.Fprintln(s.Out)
	fmt.Fprintf(s.Out, "  Model:   %s\n", s.cli.Model)
	fmt.Fprintf(s.Out, "  Server:  %s\n", s.cli.BaseURL)
	fmt.Fprintln(s.Out)
	fmt.Fprintln(s.Out, s.paint(colorBold+colorOrange, "Tips:"))
	fmt.Fprintln(s.Out, "  Type a message and press Enter to send")
	fmt.Fprintln(s.Out, "  /details - toggle turn details")
	fmt.Fprintln(s.Out, "  /clear   - reset conversation")
	fmt.Fprintln(s.Out, "  /quit    - exit")
	fmt.Fprintln(s.Out, sep)
	fmt.Fprintln(s.Out)
}

func (s *session) printLabel(name, color string) {
	n := s.width() - 2
	if n < 20 {
		n = 20
	}
	fmt.Fprintln(s.Out, s.paint(colorGray, strings.Repeat("-", n)))
	fmt.Fprintln(s.Out, s.paint(colorBold+color, name))
}

func (s *session) goodbye() {
	fmt.Fprintf(s.Out, "\n%s\n\n", s.paint(colorDim, "Goodbye!"))
}

// lines feeds input lines to a channel that closes on EOF.
func (s *session) lines(ctx context.Context) <-chan string {
	ch := make(chan string)
	go func() {
		defer close(ch)
		scanner := bufio.NewScanner(s.In)
		for scanner.Scan() {
			select {
			case ch <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

func (s *session) run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s.printBanner()
	input := s.lines(ctx)
	prompt := s.paint(colorOrange+colorBold, "> ")

	for {
		fmt.Fprint(s.Out, prompt)
		var line string
		select {
		case <-ctx.Done():
			s.goodbye()
			return nil
		case l, ok := <-input:
			if !ok {
				s.goodbye()
				return nil
			}
			line = strings.TrimSpace(l)
		}
		if line == "" {
			continue
		}

		switch line {
		case "/quit", "/exit":
			s.goodbye()
			return nil
		case "/clear":
			s.history = nil
			fmt.Fprintf(s.Out, "%s\n\n", s.paint(colorGray, "Conversation cleared."))
			continue
		case "/details":
			s.details = !s.details
			fmt.Fprintf(s.Out, "%s\n\n", s.paint(colorGray, fmt.Sprintf("Turn details: %t.", s.details)))
			continue
		}

		if s.tty {
			s.printLabel("you", colorBlue)
			fmt.Fprintln(s.Out, s.paint(colorBlue, line))
		}
		s.turn(ctx, line)
		fmt.Fprintln(s.Out)
	}
}

// turn sends one user message with the history and prints the answer.
func (s *session) turn(ctx context.Context, message string) {
	s.history = append(s.history, v1.ChatMessage{Role: "user", Content: message})
	s.printLabel("sankhya", colorGreen)
	if s.tty {
		fmt.Fprint(s.Out, s.paint(colorGray, "Thinking..."))
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	started := false
	reply, err := s.cli.ChatStream(ctx, s.history, func(delta string) {
		if !started && s.tty {
			fmt.Fprint(s.Out, clearLine)
		}
		started = true
		fmt.Fprint(s.Out, delta)
	})
	if !started && s.tty {
		fmt.Fprint(s.Out, clearLine)
	}

	if err != nil {
		// an unanswered message is dropped so roles keep alternating
		s.history = s.history[:len(s.history)-1]
		if started {
			fmt.Fprintln(s.Out)
		}
		fmt.Fprintln(s.Out, s.paint(colorBold+colorRed, "Error: "+err.Error()))
		return
	}
	s.history = append(s.history, v1.ChatMessage{Role: "assistant", Content: reply.Content})
	fmt.Fprintln(s.Out)

	if s.tty {
		// overwrite the raw stream with the rendered markdown
		rendered := renderMarkdown(reply.Content, s.width()-4)
		fmt.Fprint(s.Out, strings.Repeat("\033[A\033[K", strings.Count(reply.Content, "\n")+1))
		fmt.Fprintln(s.Out, rendered)
	}
	if s.details && reply.Turn != nil {
		fmt.Fprintln(s.Out, s.paint(colorGray, describeTurn(reply.Turn)))
	}
}

func renderMarkdown(content string, width int) string {
	if width <= 0 {
		width = 76
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithColorProfile(termenv.ANSI256),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return content
	}
	rendered, err := r.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(rendered, "\n")
}

// describeTurn summarizes turn metadata on one or more lines.
func describeTurn(t *v1.TurnInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s, %d round(s)", t.Outcome, t.Rounds)
	if t.Failure != "" {
		fmt.Fprintf(&b, ", provider failure: %s", t.Failure)
	}
	b.WriteString("]")
	for _, call := range t.Tools {
		var flags []string
		if call.Failed {
			flags = append(flags, "failed")
		}
		if call.Corrected {
			flags = append(flags, "corrected")
		}
		b.WriteString("\n  - " + call.Name)
		if len(flags) > 0 {
			b.WriteString(" (" + strings.Join(flags, ", ") + ")")
		}
		if call.Learned != "" {
			b.WriteString("\n    learned: " + call.Learned)
		}
	}
	return b.String()
}
