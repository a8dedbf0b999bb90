package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/heliohq/helio/internal/agent"
)

// askOptions are the per-run overrides accepted by ask.
type askOptions struct {
	scope          []string
	docsOnly       bool
	critique       bool
	autoApprove    bool
	provider       string
	model          string
	budget         int
	conversationID string
	decision       *agent.Decision // answer to the conversation's pending action
	question       string
}

func parseAskArgs(args []string) (askOptions, error) {
	var o askOptions
	var words []string
	value := func(i int, name string) (string, error) {
		if i+1 >= len(args) {
			return "", fmt.Errorf("%s requires a value", name)
		}
		return args[i+1], nil
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch arg {
		case "-docs-only":
			o.docsOnly = true
		case "-critique":
			o.critique = true
		case "-auto-approve":
			o.autoApprove = true
		case "-scope", "-provider", "-model", "-budget", "-conversation", "-approve", "-deny":
			v, err := value(i, arg)
			if err != nil {
				return o, err
			}
			i++
			switch arg {
			case "-scope":
				o.scope = append(o.scope, v)
			case "-provider":
				o.provider = v
			case "-model":
				o.model = v
			case "-conversation":
				o.conversationID = v
			case "-approve", "-deny":
				if o.decision != nil {
					return o, errors.New("-approve and -deny are exclusive")
				}
				o.decision = &agent.Decision{Token: v, Approve: arg == "-approve"}
			case "-budget":
				n, err := strconv.Atoi(v)
				if err != nil {
					return o, fmt.Errorf("-budget: %w", err)
				}
				o.budget = n
			}
		case "--":
			words = append(words, args[i+1:]...)
			i = len(args)
		default:
			if strings.HasPrefix(arg, "-") && len(words) == 0 {
				return o, fmt.Errorf("unknown ask flag: %s", arg)
			}
			words = append(words, arg)
		}
	}

	o.question = strings.TrimSpace(strings.Join(words, " "))
	if o.question == "" && o.decision != nil {
		o.question = "Approved."
		if !o.decision.Approve {
			o.question = "Denied."
		}
	}
	if o.question == "" {
		return o, errors.New("usage: helio ask [flags] <question>")
	}
	return o, nil
}

// answerHint is the command that answers a pending action from ask.
func (o askOptions) answerHint(token string) string {
	conv := ""
	if o.conversationID != "" {
		conv = " -conversation " + o.conversationID
	}
	return fmt.Sprintf("helio ask%s -approve %s (or -deny %s)", conv, token, token)
}

// runAsk runs a single turn and prints the result. A run that ends
// pending approval prints the token; a later ask in the same
// conversation answers it with -approve or -deny.
func runAsk(ctx context.Context, stdout, stderr io.Writer, configPath, outputFmt string, args []string) error {
	opts, err := parseAskArgs(args)
	if err != nil {
		return err
	}

	a, err := setup(configPath, stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	runCfg := agent.DefaultRunConfig(a.cfg)
	runCfg.Scope = opts.scope
	runCfg.DocumentsOnly = opts.docsOnly
	runCfg.Critique = opts.critique
	if opts.autoApprove {
		runCfg.ApprovalRequired = false
	}
	if opts.budget != 0 {
		runCfg.StepBudget = opts.budget
	}

	res, err := a.loop.Run(ctx, &agent.Request{
		ConversationID: opts.conversationID,
		Input:          opts.question,
		Run:            runCfg,
		Provider:       opts.provider,
		Model:          opts.model,
		Decision:       opts.decision,
	})
	if res == nil {
		return err
	}

	if outputFmt == "json" {
		if encErr := writeResultJSON(stdout, res); encErr != nil {
			return encErr
		}
	} else {
		printResult(stdout, res, opts.answerHint)
	}
	return err
}

// resultJSON is the machine-readable form of a run outcome.
type resultJSON struct {
	RunID     string   `json:"run_id"`
	State     string   `json:"state"`
	Output    string   `json:"output"`
	ToolsUsed []string `json:"tools_used"`
	Steps     int      `json:"steps"`
	Tokens    struct {
		Input  int `json:"input"`
		Output int `json:"output"`
	} `json:"tokens"`
	Critique string `json:"critique,omitempty"`
	Pending  string `json:"pending_token,omitempty"`
	Error    string `json:"error,omitempty"`
}

func writeResultJSON(w io.Writer, res *agent.Result) error {
	out := resultJSON{
		RunID:     res.RunID,
		State:     res.State.String(),
		Output:    res.Output,
		ToolsUsed: res.ToolsUsed,
		Steps:     res.Steps,
		Critique:  res.Critique,
	}
	out.Tokens.Input, out.Tokens.Output = res.InputTokens, res.OutputTokens
	if out.ToolsUsed == nil {
		out.ToolsUsed = []string{}
	}
	if res.Pending != nil {
		out.Pending = res.Pending.Token
	}
	if res.Err != nil {
		out.Error = res.Err.Error()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
