package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"ProofFetch/internal/engine"
	"ProofFetch/internal/fetch"
	"ProofFetch/internal/guest"
	"ProofFetch/internal/logger"
	"ProofFetch/internal/prover"
	"ProofFetch/internal/storage"
)

// Backend is a running proving backend.
type Backend struct {
	cfg      *Config
	storage  *storage.Storage
	executor *engine.Executor
	service  *prover.Service
	api      *prover.Server
	sealKey  *engine.SealKey
}

// NewBackend creates and initializes a backend.
func NewBackend(cfg *Config) (*Backend, error) {
	b := &Backend{cfg: cfg}

	if err := b.initStorage(); err != nil {
		return nil, err
	}

	if err := b.initProver(); err != nil {
		b.Close()
		return nil, err
	}

	return b, nil
}

// initStorage opens the Pebble store under the data directory.
func (b *Backend) initStorage() error {
	if err := os.MkdirAll(b.cfg.DataPath, 0755); err != nil {
		return fmt.Errorf("create data dir:\n%w", err)
	}

	db, err := storage.New(filepath.Join(b.cfg.DataPath, "db"))
	if err != nil {
		return fmt.Errorf("open storage:\n%w", err)
	}

	b.storage = db

	return nil
}

// initProver builds the executor, the seal key and the session service.
func (b *Backend) initProver() error {
	sealKey, err := engine.DeriveSealKey(b.cfg.PrivateKey)
	if err != nil {
		return fmt.Errorf("derive seal key:\n%w", err)
	}

	b.sealKey = sealKey
	b.executor = engine.NewExecutor(fetch.New(fetch.WithTimeout(b.cfg.FetchTimeout)))

	fetchID := guest.Register(b.executor)
	logger.Info("fetch program registered", "image", fetchID.String())

	b.service = prover.NewService(
		engine.NewProver(b.executor, sealKey),
		b.storage,
		prover.Config{SessionTimeout: b.cfg.SessionTimeout},
	)

	recovered, err := b.service.Recover()
	if err != nil {
		return fmt.Errorf("recover sessions:\n%w", err)
	}

	if recovered > 0 {
		logger.Warn("failed interrupted sessions", "count", recovered)
	}

	return nil
}

// Run starts the API and blocks until a shutdown signal.
func (b *Backend) Run() error {
	b.api = prover.NewServer(b.cfg.HTTPAddress, b.service)

	if b.cfg.QUICAddress != "" {
		b.api.EnableHTTP3(b.cfg.QUICAddress, b.cfg.PrivateKey)
	}

	if err := b.api.Start(); err != nil {
		b.Close()
		return fmt.Errorf("start api:\n%w", err)
	}

	logger.Info("starting proving backend",
		"proverKey", b.sealKey.PublicKeyHex(),
		"http", b.cfg.HTTPAddress,
		"quic", b.cfg.QUICAddress,
		"data", b.cfg.DataPath,
	)

	return b.waitForShutdown()
}

// waitForShutdown blocks until SIGINT or SIGTERM, then closes the backend.
func (b *Backend) waitForShutdown() error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", "signal", sig.String())

	return b.Close()
}

// Close stops the API, waits for running sessions and closes storage.
func (b *Backend) Close() error {
	if b.api != nil {
		b.api.Stop()
	}

	if b.service != nil {
		b.service.Close()
	}

	if b.executor != nil {
		b.executor.Close()
	}

	if b.storage != nil {
		return b.storage.Close()
	}

	return nil
}
