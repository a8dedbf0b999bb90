package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/term"

	"github.com/heliohq/helio/internal/agent"
	"github.com/heliohq/helio/internal/memory"
)

const chatHelp = `Commands:
  /approve [token]   Run the pending action
  /deny [token]      Refuse the pending action
  /scope [paths...]  Search these documents or folders (no paths clears)
  /docs-only on|off  Restrict answers to the scoped documents
  /critique on|off   Add a self-critique to each answer
  /help              Show this help
  exit, quit         Leave the session`

// chatSession is the state a REPL carries between turns.
type chatSession struct {
	app    *app
	out    io.Writer
	convID string
	run    agent.RunConfig

	// history holds the session's turns when no durable store is wired.
	// With a store, earlier turns come back from memory on every run.
	history []memory.Message
	pending string // token of the action awaiting a decision
}

// runChat starts an interactive session on stdin. Prompts are printed
// only when stdin is a terminal so piped input produces clean output.
// -conversation resumes a conversation, including a pending action left
// by ask.
func runChat(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer, configPath string, args []string) error {
	convID := "chat-" + uuid.NewString()
	switch {
	case len(args) == 0:
	case len(args) == 2 && args[0] == "-conversation" && args[1] != "":
		convID = args[1]
	default:
		return errors.New("usage: helio chat [-conversation id]")
	}

	a, err := setup(configPath, stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	interactive := false
	if f, ok := stdin.(*os.File); ok {
		interactive = term.IsTerminal(int(f.Fd()))
	}

	s := &chatSession{
		app:    a,
		out:    stdout,
		convID: convID,
		run:    agent.DefaultRunConfig(a.cfg),
	}
	if p, err := a.loop.Pending().Peek(ctx, convID); err == nil && p != nil {
		s.pending = p.Token
	}
	if interactive {
		fmt.Fprintf(stdout, "Helio supervisor, conversation %s. Type /help for commands, exit to quit.\n", convID)
		if s.pending != "" {
			fmt.Fprintf(stdout, "An action is pending: /approve or /deny %s\n", s.pending)
		}
	}

	scanner := bufio.NewScanner(stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		if interactive {
			fmt.Fprint(stdout, "> ")
		}
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}
		if err := s.handle(ctx, line); err != nil {
			fmt.Fprintf(stdout, "Error: %v\n", err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return scanner.Err()
}

func (s *chatSession) handle(ctx context.Context, line string) error {
	if !strings.HasPrefix(line, "/") {
		return s.turn(ctx, line, nil)
	}

	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]
	switch cmd {
	case "/approve", "/deny":
		token := s.pending
		if len(args) > 0 {
			token = args[0]
		}
		if token == "" {
			return fmt.Errorf("no action is pending")
		}
		approve := cmd == "/approve"
		input := "Approved."
		if !approve {
			input = "Denied."
		}
		return s.turn(ctx, input, &agent.Decision{Token: token, Approve: approve})
	case "/scope":
		s.run.Scope = args
		if len(args) == 0 {
			fmt.Fprintln(s.out, "Scope cleared.")
		} else {
			fmt.Fprintf(s.out, "Scope: %s\n", strings.Join(args, ", "))
		}
	case "/docs-only":
		on, err := onOff(cmd, args)
		if err != nil {
			return err
		}
		s.run.DocumentsOnly = on
	case "/critique":
		on, err := onOff(cmd, args)
		if err != nil {
			return err
		}
		s.run.Critique = on
	case "/help":
		fmt.Fprintln(s.out, chatHelp)
	default:
		return fmt.Errorf("unknown command %s (try /help)", cmd)
	}
	return nil
}

// turn runs the agent once and records the exchange in the session
// history. Aborted runs are reported but do not end the session.
func (s *chatSession) turn(ctx context.Context, input string, decision *agent.Decision) error {
	res, err := s.app.loop.Run(ctx, &agent.Request{
		ConversationID: s.convID,
		Input:          input,
		History:        s.history,
		Run:            s.run,
		Decision:       decision,
	})
	if res == nil {
		return err
	}

	if s.app.memory == nil {
		now := time.Now()
		s.history = append(s.history,
			memory.Message{Role: "user", Content: input, Timestamp: now},
			memory.Message{Role: "assistant", Content: res.Output, Timestamp: now},
		)
		if n := s.app.cfg.Agent.MemoryRecentTurns; n > 0 && len(s.history) > n {
			s.history = slices.Clone(s.history[len(s.history)-n:])
		}
	}
	s.pending = ""
	if res.Pending != nil {
		s.pending = res.Pending.Token
	}
	printResult(s.out, res, func(token string) string {
		return fmt.Sprintf("/approve %s or /deny %s", token, token)
	})
	return nil
}

func onOff(cmd string, args []string) (bool, error) {
	if len(args) == 1 {
		switch strings.ToLower(args[0]) {
		case "on", "true", "yes":
			return true, nil
		case "off", "false", "no":
			return false, nil
		}
	}
	return false, fmt.Errorf("usage: %s on|off", cmd)
}
