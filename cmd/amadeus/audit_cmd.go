package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/asphodel42/amadeus/pkg/config"
	"github.com/asphodel42/amadeus/pkg/ledger"
)

// runAuditCmd dispatches the audit subcommands against the configured
// ledger. An in-memory ledger is always empty here, so a missing
// AMADEUS_LEDGER_PATH is rejected up front.
func runAuditCmd(cfg *config.Config, sub string, args []string, stdout, stderr io.Writer) int {
	if cfg.LedgerPath == "" {
		_, _ = fmt.Fprintln(stderr, "Error: audit commands need AMADEUS_LEDGER_PATH to point at a SQLite ledger")
		return 2
	}

	switch sub {
	case "list":
		return runAuditList(cfg, args, stdout, stderr)
	case "export":
		return runAuditExport(cfg, args, stdout, stderr)
	case "verify":
		return runAuditVerify(cfg, args, stdout, stderr)
	default:
		_, _ = fmt.Fprintf(stderr, "Unknown audit subcommand: %s\n", sub)
		return 2
	}
}

func runAuditList(cfg *config.Config, args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("audit list", flag.ContinueOnError)
	cmd.SetOutput(stderr)
	eventType := cmd.String("type", "", "filter by event type")
	actor := cmd.String("actor", "", "filter by actor")
	since := cmd.String("since", "", "RFC 3339 lower bound, inclusive")
	until := cmd.String("until", "", "RFC 3339 upper bound, exclusive")
	limit := cmd.Int("limit", 50, "maximum records to print")
	offset := cmd.Int("offset", 0, "records to skip")
	if err := cmd.Parse(args); err != nil {
		return 2
	}

	filter := ledger.Filter{
		EventType: *eventType,
		Actor:     *actor,
		Limit:     *limit,
		Offset:    *offset,
	}
	var err error
	if filter.Since, err = parseTimeFlag(*since); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: bad -since: %v\n", err)
		return 2
	}
	if filter.Until, err = parseTimeFlag(*until); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: bad -until: %v\n", err)
		return 2
	}

	led, err := ledger.OpenSQLite(cfg.LedgerPath)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	defer func() { _ = led.Close() }()

	entries, err := led.Events(context.Background(), filter)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	for _, e := range entries {
		_, _ = fmt.Fprintf(stdout, "%6d  %s  %-22s %-10s %s\n",
			e.Sequence,
			e.Timestamp.UTC().Format(time.RFC3339),
			e.EventType,
			e.Actor,
			shortHash(e.EventHash))
	}
	_, _ = fmt.Fprintf(stdout, "%d event(s)\n", len(entries))
	return 0
}

func runAuditExport(cfg *config.Config, args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("audit export", flag.ContinueOnError)
	cmd.SetOutput(stderr)
	out := cmd.String("out", "", "output file (default stdout)")
	limit := cmd.Int("limit", 0, "maximum records to export (0 = all)")
	if err := cmd.Parse(args); err != nil {
		return 2
	}

	led, err := ledger.OpenSQLite(cfg.LedgerPath)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	defer func() { _ = led.Close() }()

	w := stdout
	if *out != "" {
		f, ferr := os.Create(*out)
		if ferr != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", ferr)
			return 2
		}
		defer func() { _ = f.Close() }()
		w = f
	}

	n, err := led.ExportJSON(context.Background(), w, *limit)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	_, _ = fmt.Fprintf(stderr, "Exported %d event(s)\n", n)
	return 0
}

// runAuditVerify replays the hash chain.
//
// Exit codes: 0 = chain intact, 1 = chain broken, 2 = runtime error.
func runAuditVerify(cfg *config.Config, args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("audit verify", flag.ContinueOnError)
	cmd.SetOutput(stderr)
	if err := cmd.Parse(args); err != nil {
		return 2
	}

	led, err := ledger.OpenSQLite(cfg.LedgerPath)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	defer func() { _ = led.Close() }()

	ctx := context.Background()
	count, err := led.Count(ctx)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	if err := led.Verify(ctx); err != nil {
		_, _ = fmt.Fprintf(stdout, "FAIL: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintf(stdout, "OK: %d event(s), chain intact\n", count)
	return 0
}

func parseTimeFlag(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
