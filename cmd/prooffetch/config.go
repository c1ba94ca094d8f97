package main

import (
	"flag"
	"fmt"
	"time"

	"ProofFetch/internal/orchestrator"
)

// Config holds the command configuration.
type Config struct {
	// URL is the request to fetch and attest.
	URL string

	// Backend is the proving backend address.
	Backend string

	// ProverKey is the hex BLS public key receipts must be sealed with.
	// When empty it is fetched from the backend.
	ProverKey string

	// HTTP3 talks to the backend over HTTP/3.
	HTTP3 bool

	// Poll holds the poll loop bounds.
	Poll orchestrator.Config

	// LogLevel is the minimum log level.
	LogLevel string
}

// parseFlags parses command-line flags into Config.
func parseFlags() (*Config, error) {
	cfg := &Config{}

	flag.StringVar(&cfg.URL, "url", "", "URL to fetch (required)")
	flag.StringVar(&cfg.Backend, "backend", "127.0.0.1:8090", "Proving backend address")
	flag.StringVar(&cfg.ProverKey, "prover-key", "", "Trusted prover public key, hex (fetched from the backend if empty)")
	flag.BoolVar(&cfg.HTTP3, "http3", false, "Use HTTP/3 to reach the backend")
	flag.DurationVar(&cfg.Poll.PollInterval, "poll", orchestrator.DefaultPollInterval, "Session status poll interval")
	flag.DurationVar(&cfg.Poll.MaxWait, "max-wait", orchestrator.DefaultMaxWait, "Maximum time to wait for the session (0 for no limit)")
	flag.IntVar(&cfg.Poll.MaxPolls, "max-polls", 0, "Maximum number of status polls (0 for no limit)")
	flag.StringVar(&cfg.LogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	if cfg.URL == "" {
		return nil, fmt.Errorf("-url is required")
	}

	if cfg.Poll.PollInterval <= 0 {
		return nil, fmt.Errorf("-poll must be positive, got %s", cfg.Poll.PollInterval)
	}

	if cfg.Poll.MaxWait < 0 || cfg.Poll.MaxPolls < 0 {
		return nil, fmt.Errorf("-max-wait and -max-polls must not be negative")
	}

	return cfg, nil
}

// minPollInterval is the shortest poll interval accepted without a warning.
const minPollInterval = time.Second
