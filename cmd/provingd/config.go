package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"
)

// Config holds the backend configuration.
type Config struct {
	// DataPath is the directory for persistent storage.
	DataPath string

	// HTTPAddress is the HTTP API listen address.
	HTTPAddress string

	// QUICAddress is the HTTP/3 listen address, empty to disable.
	QUICAddress string

	// KeyPath is the file holding the backend's hex Ed25519 seed.
	KeyPath string

	// PrivateKey is the backend identity; the seal key is derived from it.
	PrivateKey ed25519.PrivateKey

	// SessionTimeout bounds a single program execution.
	SessionTimeout time.Duration

	// FetchTimeout bounds a single HTTP fetch made by a program.
	FetchTimeout time.Duration

	// LogLevel is the minimum log level.
	LogLevel string
}

// parseFlags parses command-line flags into Config.
func parseFlags() *Config {
	cfg := &Config{}

	flag.StringVar(&cfg.DataPath, "data", "./data", "Data directory path")
	flag.StringVar(&cfg.HTTPAddress, "http", ":8090", "HTTP API address")
	flag.StringVar(&cfg.QUICAddress, "quic", "", "HTTP/3 API address (disabled if empty)")
	flag.StringVar(&cfg.KeyPath, "key", "", "Identity seed file (created if missing, ephemeral if empty)")
	flag.DurationVar(&cfg.SessionTimeout, "session-timeout", 10*time.Minute, "Maximum duration of one proving session")
	flag.DurationVar(&cfg.FetchTimeout, "fetch-timeout", 30*time.Second, "Maximum duration of one HTTP fetch")
	flag.StringVar(&cfg.LogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	return cfg
}

// loadIdentity reads the backend identity from keyPath, creating the file
// with a fresh seed if it does not exist. The file holds the hex-encoded
// 32-byte Ed25519 seed. An empty path yields an ephemeral identity, so the
// prover key changes on every start.
func loadIdentity(keyPath string) (ed25519.PrivateKey, error) {
	if keyPath == "" {
		return newIdentity()
	}

	data, err := os.ReadFile(keyPath)
	if errors.Is(err, os.ErrNotExist) {
		return createIdentity(keyPath)
	}

	if err != nil {
		return nil, fmt.Errorf("read key file:\n%w", err)
	}

	seed, err := hex.DecodeString(strings.TrimSpace(string(data)))
	if err != nil || len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("key file %s: want %d hex-encoded bytes", keyPath, ed25519.SeedSize)
	}

	return ed25519.NewKeyFromSeed(seed), nil
}

// newIdentity creates a random identity.
func newIdentity() (ed25519.PrivateKey, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate key:\n%w", err)
	}

	return priv, nil
}

// createIdentity creates a random identity and writes its seed to path.
func createIdentity(path string) (ed25519.PrivateKey, error) {
	priv, err := newIdentity()
	if err != nil {
		return nil, err
	}

	encoded := hex.EncodeToString(priv.Seed()) + "\n"
	if err := os.WriteFile(path, []byte(encoded), 0600); err != nil {
		return nil, fmt.Errorf("save key to %s:\n%w", path, err)
	}

	return priv, nil
}
