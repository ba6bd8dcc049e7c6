// Package console provides a line-oriented front-end for driving
// conversations from a terminal. It stands in for the graphical client,
// which talks to the same chat service.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/dgmulei/obi-slv2/internal/chat"
	"github.com/dgmulei/obi-slv2/internal/turn"
)

// Console reads commands and messages from an input stream and relays
// them to the chat service.
type Console struct {
	svc    *chat.Service
	in     io.Reader
	out    io.Writer
	logger *slog.Logger

	conversationID string
}

// New creates a console front-end.
func New(svc *chat.Service, in io.Reader, out io.Writer, logger *slog.Logger) *Console {
	if logger == nil {
		logger = slog.Default()
	}
	return &Console{
		svc:    svc,
		in:     in,
		out:    out,
		logger: logger.With("component", "console"),
	}
}

// Run reads lines until EOF, /quit, or context cancellation. Lines
// beginning with "/" are commands; anything else is sent as a user
// message in the current conversation. Input is read on a separate
// goroutine so cancellation is not stuck behind a blocked read.
func (c *Console) Run(ctx context.Context) error {
	fmt.Fprintln(c.out, "Commands: /start <user-id>, /level <0-100>, /audit, /end, /quit")

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(c.in)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		var line string
		var ok bool
		select {
		case <-ctx.Done():
			return nil
		case line, ok = <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					if err != nil && !errors.Is(err, context.Canceled) {
						return fmt.Errorf("console input failed: %w", err)
					}
				default:
				}
				return nil
			}
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			quit, err := c.handleCommand(ctx, line)
			if err != nil {
				fmt.Fprintf(c.out, "error: %v\n", err)
			}
			if quit {
				return nil
			}
			continue
		}

		if c.conversationID == "" {
			fmt.Fprintln(c.out, "no active conversation, use /start <user-id> first")
			continue
		}

		reply, err := c.svc.Message(ctx, c.conversationID, line, true)
		if err != nil {
			c.printMessageError(err)
			continue
		}
		fmt.Fprintln(c.out, reply)
	}
}

func (c *Console) handleCommand(ctx context.Context, line string) (quit bool, err error) {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "/quit":
		return true, nil

	case "/start":
		if len(args) != 1 {
			return false, fmt.Errorf("usage: /start <user-id>")
		}
		id, err := c.svc.StartConversation(ctx, args[0])
		if err != nil {
			return false, err
		}
		c.conversationID = id
		fmt.Fprintf(c.out, "conversation %s started for %s\n", id, args[0])
		return false, nil

	case "/level":
		if c.conversationID == "" {
			return false, fmt.Errorf("no active conversation")
		}
		if len(args) != 1 {
			return false, fmt.Errorf("usage: /level <0-100>")
		}
		n, convErr := strconv.Atoi(args[0])
		if convErr != nil {
			return false, fmt.Errorf("level must be a number: %w", convErr)
		}
		if err := c.svc.SetIntensity(ctx, c.conversationID, n); err != nil {
			return false, err
		}
		fmt.Fprintf(c.out, "calibration set to %d\n", n)
		return false, nil

	case "/audit":
		if c.conversationID == "" {
			return false, fmt.Errorf("no active conversation")
		}
		report, err := c.svc.Audit(ctx, c.conversationID)
		if err != nil {
			return false, err
		}
		fmt.Fprintf(c.out, "tier: %s\n", report.Tier)
		fmt.Fprintf(c.out, "last sequence: %d turns (%d context)\n",
			report.LastSequence.Length, report.LastSequence.ContextCount)
		fmt.Fprintln(c.out, report.InstructionText)
		return false, nil

	case "/end":
		if c.conversationID == "" {
			return false, fmt.Errorf("no active conversation")
		}
		if err := c.svc.EndConversation(ctx, c.conversationID); err != nil {
			return false, err
		}
		fmt.Fprintf(c.out, "conversation %s ended\n", c.conversationID)
		c.conversationID = ""
		return false, nil

	default:
		return false, fmt.Errorf("unknown command %s", cmd)
	}
}

func (c *Console) printMessageError(err error) {
	if errors.Is(err, turn.ErrGenerationFailed) {
		fmt.Fprintln(c.out, "the model is unavailable right now, please retry")
		return
	}
	fmt.Fprintf(c.out, "error: %v\n", err)
}
