// Command amadeus is a local command assistant: free text in, policy-
// checked system actions out, every step written to a tamper-evident
// audit ledger.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/asphodel42/amadeus/pkg/config"
	"github.com/asphodel42/amadeus/pkg/contracts"
	"github.com/asphodel42/amadeus/pkg/executor"
	"github.com/asphodel42/amadeus/pkg/ledger"
	"github.com/asphodel42/amadeus/pkg/manifest"
	"github.com/asphodel42/amadeus/pkg/observability"
	"github.com/asphodel42/amadeus/pkg/pipeline"
	"github.com/asphodel42/amadeus/pkg/planner"
	"github.com/asphodel42/amadeus/pkg/policy"
	"github.com/asphodel42/amadeus/pkg/providers"
)

func main() {
	os.Exit(Run(os.Args, os.Stdin, os.Stdout, os.Stderr))
}

// Run is the dispatcher, split out for testing.
func Run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cfg := config.Load()
	setupLogging(cfg.LogLevel, stderr)

	if len(args) < 2 {
		return runREPL(cfg, stdin, stdout, stderr)
	}

	switch args[1] {
	case "run", "repl":
		return runREPL(cfg, stdin, stdout, stderr)
	case "exec":
		return runExecCmd(cfg, args[2:], stdout, stderr)
	case "audit":
		if len(args) < 3 {
			_, _ = fmt.Fprintln(stderr, "Usage: amadeus audit <list|export|verify>")
			return 2
		}
		return runAuditCmd(cfg, args[2], args[3:], stdout, stderr)
	case "passcode-digest":
		return runPasscodeDigestCmd(args[2:], stdout, stderr)
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	default:
		_, _ = fmt.Fprintf(stderr, "Unknown command: %s\n", args[1])
		printUsage(stderr)
		return 2
	}
}

func printUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, `Usage: amadeus [command]

Commands:
  run                  interactive command loop (default)
  exec <text>          process one command and exit
  audit list           list audit ledger events
  audit export         export audit events as JSON
  audit verify         verify the audit hash chain
  passcode-digest <p>  print the digest for a confirmation passcode

Environment:
  AMADEUS_LEDGER_PATH  SQLite ledger path (empty = in-memory)
  AMADEUS_PROFILE      assistant profile YAML
  AMADEUS_DRY_RUN      "true" simulates every plan
  AMADEUS_LOG_LEVEL    DEBUG | INFO | WARN | ERROR`)
}

func setupLogging(level string, w io.Writer) {
	var lvl slog.Level
	switch strings.ToUpper(level) {
	case "DEBUG":
		lvl = slog.LevelDebug
	case "WARN", "WARNING":
		lvl = slog.LevelWarn
	case "ERROR":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})))
}

// openLedger selects the ledger engine from configuration.
func openLedger(cfg *config.Config) (ledger.Ledger, error) {
	if cfg.LedgerPath == "" {
		return ledger.NewMemory(), nil
	}
	return ledger.OpenSQLite(cfg.LedgerPath)
}

// buildPipeline assembles the full pipeline from configuration.
func buildPipeline(cfg *config.Config) (*pipeline.Pipeline, error) {
	profile := config.DefaultProfile()
	if cfg.ProfilePath != "" {
		loaded, err := config.LoadProfile(cfg.ProfilePath)
		if err != nil {
			return nil, err
		}
		profile = loaded
	}

	engine, err := policy.NewEngine(profile.Rules())
	if err != nil {
		return nil, err
	}
	set := providers.NewLocal()
	set.FS = providers.NewConfinedFS(set.FS, profile.Planner.AllowedDirectories)
	registry, err := providers.NewRegistry(set)
	if err != nil {
		return nil, err
	}
	led, err := openLedger(cfg)
	if err != nil {
		return nil, err
	}

	pcfg := pipeline.DefaultConfig()
	pcfg.DryRunByDefault = cfg.DryRun
	pcfg.ConfirmationTimeout = time.Duration(profile.ConfirmationTimeoutSeconds) * time.Second
	pcfg.CommandTimeout = time.Duration(profile.CommandTimeoutSeconds) * time.Second
	pcfg.PasscodeDigest = profile.PasscodeDigest

	opts := []pipeline.Option{
		pipeline.WithConfig(pcfg),
		pipeline.WithPlanner(planner.New(profile.Planner)),
		pipeline.WithEngine(engine),
		pipeline.WithExecutor(executor.New(registry, executor.DefaultConfig())),
		pipeline.WithLedger(led),
	}
	if cfg.ManifestDir != "" {
		caps, err := loadGrantedCapabilities(cfg.ManifestDir)
		if err != nil {
			return nil, err
		}
		opts = append(opts, pipeline.WithCapabilities(caps))
	}
	if cfg.OTelEnabled {
		ocfg := observability.DefaultConfig()
		ocfg.Enabled = true
		ocfg.OTLPEndpoint = cfg.OTLPEndpoint
		obs, err := observability.New(context.Background(), ocfg)
		if err != nil {
			return nil, err
		}
		opts = append(opts, pipeline.WithObservability(obs))
	}
	return pipeline.New(opts...)
}

// loadGrantedCapabilities reads every skill manifest in dir and returns
// the union of their capability grants. A manifest dir switches the
// policy engine into plugin mode, so scopes no manifest declares are
// denied.
func loadGrantedCapabilities(dir string) ([]contracts.Capability, error) {
	loader, err := manifest.NewLoader()
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml", "*.json"} {
		matched, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		paths = append(paths, matched...)
	}
	sort.Strings(paths)
	var caps []contracts.Capability
	for _, path := range paths {
		m, err := loader.Load(path)
		if err != nil {
			return nil, fmt.Errorf("manifest %s: %w", filepath.Base(path), err)
		}
		caps = append(caps, m.Capabilities...)
	}
	return caps, nil
}

func runPasscodeDigestCmd(args []string, stdout, stderr io.Writer) int {
	if len(args) != 1 || args[0] == "" {
		_, _ = fmt.Fprintln(stderr, "Usage: amadeus passcode-digest <passcode>")
		return 2
	}
	_, _ = fmt.Fprintln(stdout, pipeline.PasscodeDigest(args[0]))
	return 0
}
