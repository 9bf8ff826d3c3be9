package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/asphodel42/amadeus/pkg/config"
	"github.com/asphodel42/amadeus/pkg/contracts"
	"github.com/asphodel42/amadeus/pkg/executor"
	"github.com/asphodel42/amadeus/pkg/pipeline"
	"github.com/asphodel42/amadeus/pkg/planner"
)

// runREPL is the interactive loop. Each line is one command; a pending
// confirmation keeps the loop in the same session, so the next line is
// routed to the suspended plan.
func runREPL(cfg *config.Config, stdin io.Reader, stdout, stderr io.Writer) int {
	p, err := buildPipeline(cfg)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	defer func() { _ = p.Ledger().Close() }()

	_, _ = fmt.Fprintln(stdout, "amadeus ready. Type a command, or \"exit\" to quit.")
	scanner := bufio.NewScanner(stdin)
	for {
		_, _ = fmt.Fprint(stdout, "amadeus> ")
		if !scanner.Scan() {
			_, _ = fmt.Fprintln(stdout)
			return 0
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return 0
		}

		result := p.ProcessText(context.Background(), line, pipeline.Options{})
		printResult(stdout, result)
	}
}

// printResult renders a pipeline result for an interactive reader.
func printResult(w io.Writer, result pipeline.Result) {
	if result.ConfirmationRequired {
		if result.Plan != nil {
			_, _ = fmt.Fprintln(w, planner.RenderPlan(*result.Plan))
		}
		switch result.ConfirmationType {
		case contracts.ConfirmationTyped:
			_, _ = fmt.Fprintf(w, "Type %q to confirm, or say no to cancel.\n", result.ConfirmationPhrase)
		case contracts.ConfirmationPasscode:
			_, _ = fmt.Fprintln(w, "Confirm with your passcode, or say no to cancel.")
		default:
			_, _ = fmt.Fprintln(w, "Say yes to confirm, or no to cancel.")
		}
		if result.Error != "" {
			_, _ = fmt.Fprintf(w, "(%s)\n", result.Error)
		}
		return
	}

	if len(result.Results) > 0 {
		_, _ = fmt.Fprintln(w, executor.RenderResults(result.Results))
	}
	if !result.Success {
		_, _ = fmt.Fprintf(w, "Error: %s\n", result.Error)
		return
	}
	if result.Error != "" {
		// Success with a message, e.g. a user-cancelled plan.
		_, _ = fmt.Fprintln(w, result.Error)
	} else if len(result.Results) == 0 {
		_, _ = fmt.Fprintln(w, "Done.")
	}
}

// runExecCmd processes a single command and exits.
//
// Exit codes: 0 = command succeeded, 1 = command failed or needs an
// interactive confirmation, 2 = runtime error.
func runExecCmd(cfg *config.Config, args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("exec", flag.ContinueOnError)
	cmd.SetOutput(stderr)
	dryRun := cmd.Bool("dry-run", false, "simulate the plan without dispatching")
	yes := cmd.Bool("yes", false, "skip the confirmation gate")
	passcode := cmd.String("passcode", "", "passcode for PASSCODE confirmations")
	if err := cmd.Parse(args); err != nil {
		return 2
	}
	text := strings.TrimSpace(strings.Join(cmd.Args(), " "))
	if text == "" {
		_, _ = fmt.Fprintln(stderr, "Usage: amadeus exec [flags] <command text>")
		return 2
	}

	p, err := buildPipeline(cfg)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	defer func() { _ = p.Ledger().Close() }()

	result := p.ProcessText(context.Background(), text, pipeline.Options{
		DryRun:           *dryRun,
		SkipConfirmation: *yes,
		Passcode:         *passcode,
	})
	printResult(stdout, result)
	if result.ConfirmationRequired {
		_, _ = fmt.Fprintln(stderr, "Confirmation needed; rerun with -yes to approve non-interactively.")
		return 1
	}
	if !result.Success {
		return 1
	}
	return 0
}
