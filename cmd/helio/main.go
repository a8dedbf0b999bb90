// Helio is a goal-oriented supervisor agent.
//
// It decides, turn by turn, which of a fixed set of tools (planning,
// web fetch, code execution, note writing, summarization, and scoped
// document retrieval) to call, under a step budget and with optional
// confirmation before side-effecting actions. Configuration is loaded
// from a single YAML file discovered automatically (see
// [config.DefaultSearchPaths]).
//
// Usage:
//
//	helio chat [-conversation id]  Start an interactive session
//	helio ask <question>           Ask a single question
//	helio docs [add <file>]        List documents, or add one to the library
//	helio usage [-days N]          Show token usage totals
//	helio init [dir]               Write a default config.yaml
//	helio version                  Print version and build information
//	helio -o json version          Output version information as JSON
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/heliohq/helio/internal/buildinfo"
	"github.com/heliohq/helio/internal/config"
)

// main constructs the OS-level environment and delegates to [run], which
// keeps os.Exit and os.Args out of the application logic so the whole
// command can be driven from tests.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Stdin, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		stop()
		os.Exit(1)
	}
}

// run is the real entry point. Arguments are parsed by hand because the
// flag package's globals make concurrent calls from tests impossible.
// Program output goes to stdout; logs go to stderr.
func run(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer, args []string) error {
	var configPath string
	var outputFmt string // "text" (default) or "json"
	var command string
	var cmdArgs []string

	for i := 0; i < len(args); i++ {
		switch {
		case command != "":
			cmdArgs = append(cmdArgs, args[i])
		case args[i] == "-config" && i+1 < len(args):
			configPath = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-config="):
			configPath = strings.TrimPrefix(args[i], "-config=")
		case (args[i] == "-o" || args[i] == "--output") && i+1 < len(args):
			outputFmt = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-o="):
			outputFmt = strings.TrimPrefix(args[i], "-o=")
		case strings.HasPrefix(args[i], "--output="):
			outputFmt = strings.TrimPrefix(args[i], "--output=")
		case args[i] == "-h" || args[i] == "-help" || args[i] == "--help":
			return printUsage(stdout)
		case !strings.HasPrefix(args[i], "-"):
			command = args[i]
		default:
			return fmt.Errorf("unknown flag: %s", args[i])
		}
	}

	if outputFmt == "" {
		outputFmt = "text"
	}
	if outputFmt != "text" && outputFmt != "json" {
		return fmt.Errorf("unknown output format: %q (expected text or json)", outputFmt)
	}

	switch command {
	case "chat":
		return runChat(ctx, stdin, stdout, stderr, configPath, cmdArgs)
	case "ask":
		return runAsk(ctx, stdout, stderr, configPath, outputFmt, cmdArgs)
	case "docs":
		return runDocs(stdout, stderr, configPath, outputFmt, cmdArgs)
	case "usage":
		return runUsage(ctx, stdout, configPath, outputFmt, cmdArgs)
	case "init":
		dir := "."
		if len(cmdArgs) > 0 {
			dir = cmdArgs[0]
		}
		return runInit(stdout, dir)
	case "version":
		return runVersion(stdout, outputFmt)
	case "":
		return printUsage(stdout)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

// runVersion prints build metadata in the requested output format.
func runVersion(w io.Writer, outputFmt string) error {
	info := buildinfo.BuildInfo()
	if outputFmt == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}
	fmt.Fprintln(w, buildinfo.String())
	for _, k := range []string{"version", "git_commit", "build_time", "go_version", "os", "arch"} {
		if v, ok := info[k]; ok {
			fmt.Fprintf(w, "  %-12s %s\n", k+":", v)
		}
	}
	return nil
}

// printUsage writes the top-level help text to w.
func printUsage(w io.Writer) error {
	fmt.Fprintln(w, "Helio - Goal-oriented supervisor agent")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: helio [flags] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  chat [-conversation id]  Start an interactive session")
	fmt.Fprintln(w, "  ask [flags] <q>          Ask a single question")
	fmt.Fprintln(w, "  docs [add <file>]        List documents, or copy a file into the library")
	fmt.Fprintln(w, "  usage [-days N]          Show token usage (default: last 30 days)")
	fmt.Fprintln(w, "  init [dir]               Write a default config.yaml (default: .)")
	fmt.Fprintln(w, "  version                  Show version information")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -config <path>    Path to config file (default: auto-discover)")
	fmt.Fprintln(w, "  -o, --output fmt  Output format: text (default) or json")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Ask flags:")
	fmt.Fprintln(w, "  -scope <path>     Document or folder to search (repeatable; . for all)")
	fmt.Fprintln(w, "  -docs-only        Answer only from the scoped documents, no web access")
	fmt.Fprintln(w, "  -critique         Add a self-critique of the answer")
	fmt.Fprintln(w, "  -auto-approve     Run side-effecting tools without confirmation")
	fmt.Fprintln(w, "  -provider <name>  ollama, openai, anthropic, google or perplexity")
	fmt.Fprintln(w, "  -model <name>     Model name for the provider")
	fmt.Fprintln(w, "  -budget <n>       Step budget for the run")
	fmt.Fprintln(w, "  -conversation id  Conversation to continue (default: default)")
	fmt.Fprintln(w, "  -approve <token>  Approve the conversation's pending action")
	fmt.Fprintln(w, "  -deny <token>     Deny the conversation's pending action")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Config search order:")
	fmt.Fprintln(w, "  "+strings.Join(config.DefaultSearchPaths(), ", "))
	return nil
}
