package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// CodeRunner executes code snippets for code_exec.
type CodeRunner interface {
	Run(ctx context.Context, code string) (*ExecResult, error)
}

// ExecResult contains the result of a snippet execution.
type ExecResult struct {
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exitCode"`
	TimedOut bool   `json:"timedOut,omitempty"`
}

// PythonRunner runs snippets with a local Python interpreter. It offers
// no isolation and should only be enabled for trusted users.
type PythonRunner struct {
	Python         string // interpreter path; default "python3"
	WorkingDir     string
	MaxOutputBytes int
}

// Run executes code with "python -u -c". The deadline comes from ctx.
func (p *PythonRunner) Run(ctx context.Context, code string) (*ExecResult, error) {
	python := p.Python
	if python == "" {
		python = "python3"
	}
	limit := p.MaxOutputBytes
	if limit <= 0 {
		limit = 100 * 1024
	}

	// Unbuffered so print output is captured even when the process is killed.
	cmd := exec.CommandContext(ctx, python, "-u", "-c", code)
	cmd.Env = append(os.Environ(), "PYTHONUNBUFFERED=1")
	// Children that outlive a killed interpreter must not hold Run open.
	cmd.WaitDelay = time.Second
	if p.WorkingDir != "" {
		cmd.Dir = p.WorkingDir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	result := &ExecResult{
		Stdout: truncateOutput(stdout.String(), limit),
		Stderr: truncateOutput(stderr.String(), limit),
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		result.TimedOut = true
		result.ExitCode = -1
		return result, nil
	}

	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("start %s: %w", python, err)
		}
		result.ExitCode = exitErr.ExitCode()
	}
	return result, nil
}

// truncateOutput truncates output to maxBytes, adding a note if truncated.
func truncateOutput(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	return s[:maxBytes] + "\n\n[... output truncated ...]"
}

// RenderExec formats a result for the model.
func RenderExec(res *ExecResult) string {
	out := strings.TrimSpace(res.Stdout)
	errOut := strings.TrimSpace(res.Stderr)
	if res.ExitCode != 0 {
		return fmt.Sprintf("Non-zero return code %d. stderr:\n%s", res.ExitCode, errOut)
	}
	if errOut != "" {
		if out != "" {
			out = out + "\n[stderr]\n" + errOut
		} else {
			out = "[stderr]\n" + errOut
		}
	}
	if out == "" {
		return "Code ran successfully (exit 0) but produced no stdout. Use print(...) in the snippet to display results."
	}
	return out
}

func codeExecTool(deps Deps, opts Options) *Tool {
	return &Tool{
		Descriptor: Descriptor{
			Name: CodeExec,
			Description: "Execute short Python code snippets in a subprocess. " +
				"The snippet MUST use print() to display results; otherwise stdout will be empty.",
			SideEffect: RequiresApproval,
			Fields: []Field{
				{Name: "code", Type: String, Required: true, MaxLen: 20000, Description: "Short, safe Python code to execute. Must use print() to display results."},
			},
		},
		Timeout: opts.CodeExecTimeout,
		Handler: func(ctx context.Context, args Args) (string, error) {
			if deps.Code == nil {
				return "", unconfigured("code runner")
			}
			res, err := deps.Code.Run(ctx, args.String("code"))
			if err != nil {
				return "", err
			}
			if res.TimedOut {
				return "", fmt.Errorf("code execution: %w", context.DeadlineExceeded)
			}
			return RenderExec(res), nil
		},
	}
}
