package main

import (
	"fmt"
	"os"

	"ProofFetch/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main entry point with error handling.
func run() error {
	cfg := parseFlags()

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger.InitWith(os.Stderr, level)

	cfg.PrivateKey, err = loadIdentity(cfg.KeyPath)
	if err != nil {
		return fmt.Errorf("load key:\n%w", err)
	}

	backend, err := NewBackend(cfg)
	if err != nil {
		return fmt.Errorf("create backend:\n%w", err)
	}

	return backend.Run()
}
