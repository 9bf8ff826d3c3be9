// Package config carries process configuration: environment variables
// for deployment knobs and YAML assistant profiles for behavior.
package config

import "os"

// Config holds process configuration.
type Config struct {
	LogLevel     string
	LedgerPath   string
	ProfilePath  string
	ManifestDir  string
	DryRun       bool
	OTelEnabled  bool
	OTLPEndpoint string
}

// Load loads configuration from environment variables.
func Load() *Config {
	logLevel := os.Getenv("AMADEUS_LOG_LEVEL")
	if logLevel == "" {
		logLevel = "INFO"
	}

	// Empty ledger path selects the in-memory engine.
	ledgerPath := os.Getenv("AMADEUS_LEDGER_PATH")

	otlpEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otlpEndpoint == "" {
		otlpEndpoint = "localhost:4317"
	}

	return &Config{
		LogLevel:     logLevel,
		LedgerPath:   ledgerPath,
		ProfilePath:  os.Getenv("AMADEUS_PROFILE"),
		ManifestDir:  os.Getenv("AMADEUS_MANIFEST_DIR"),
		DryRun:       os.Getenv("AMADEUS_DRY_RUN") == "true",
		OTelEnabled:  os.Getenv("AMADEUS_OTEL") == "true",
		OTLPEndpoint: otlpEndpoint,
	}
}
