package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ProofFetch/client"
	"ProofFetch/internal/engine"
	"ProofFetch/internal/guest"
	"ProofFetch/internal/logger"
	"ProofFetch/internal/orchestrator"
	"ProofFetch/internal/verifier"
)

// Exit codes.
const (
	exitFailure  = 1 // any pipeline failure
	exitMismatch = 2 // verified receipt for another URL
)

func main() {
	os.Exit(run())
}

// run executes one fetch and returns the exit code.
func run() int {
	cfg, err := parseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return exitFailure
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return exitFailure
	}
	logger.InitWith(os.Stderr, level)

	if cfg.Poll.PollInterval < minPollInterval {
		logger.Warn("short poll interval", "poll", cfg.Poll.PollInterval)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := fetchVerified(ctx, cfg)
	if res != nil {
		if perr := printResult(res); perr != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", perr)
			return exitFailure
		}
	}

	if errors.Is(err, orchestrator.ErrCommitmentMismatch) {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return exitMismatch
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error [%s]: %v\n", orchestrator.KindOf(err), err)
		return exitFailure
	}

	return 0
}

// fetchVerified runs cfg.URL through the backend.
func fetchVerified(ctx context.Context, cfg *Config) (*orchestrator.Result, error) {
	var opts []client.Option
	if cfg.HTTP3 {
		opts = append(opts, client.WithHTTP3())
	}

	backend := client.New(cfg.Backend, opts...)

	proverKey, err := resolveProverKey(ctx, cfg, backend)
	if err != nil {
		return nil, err
	}

	v, err := verifier.New(proverKey)
	if err != nil {
		return nil, fmt.Errorf("create verifier:\n%w", err)
	}

	o := orchestrator.New(backend, v, guest.Image, cfg.Poll)

	logger.Info("submitting request", "url", cfg.URL, "backend", backend.BaseURL(), "image", o.ProgramID().Short())

	return o.Run(ctx, cfg.URL)
}

// resolveProverKey returns the configured prover key, or asks the backend.
func resolveProverKey(ctx context.Context, cfg *Config, backend *client.Client) ([]byte, error) {
	if cfg.ProverKey != "" {
		return engine.ParseProverKey(cfg.ProverKey)
	}

	key, err := backend.ProverKey(ctx)
	if err != nil {
		return nil, fmt.Errorf("get prover key:\n%w", err)
	}

	logger.Warn("trusting prover key served by the backend; pass -prover-key to pin it", "proverKey", fmt.Sprintf("%x", key))

	return key, nil
}

// printResult prints the envelope and the commitment check.
func printResult(res *orchestrator.Result) error {
	out, err := json.MarshalIndent(res.Envelope, "", "  ")
	if err != nil {
		return fmt.Errorf("encode envelope:\n%w", err)
	}

	fmt.Printf("Verified Response: %s\n", out)
	fmt.Printf("Response validity: %t\n", res.Valid)

	return nil
}
