// Package engine is the verifiable execution engine: it runs a program
// identified by the hash of its image, collects the journal the program
// commits, and seals the result into a receipt that can be checked without
// re-running the program.
package engine

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/zeebo/blake3"
)

// ProgramIDSize is the size of a program identity in bytes.
const ProgramIDSize = 32

// ProgramID identifies a program image.
type ProgramID [ProgramIDSize]byte

// ComputeProgramID returns the BLAKE3-256 hash of a program image.
func ComputeProgramID(image []byte) ProgramID {
	return blake3.Sum256(image)
}

// ParseProgramID decodes a hex program identity.
func ParseProgramID(s string) (ProgramID, error) {
	var id ProgramID

	b, err := hex.DecodeString(s)
	if err != nil || len(b) != ProgramIDSize {
		return id, fmt.Errorf("invalid program id: %q", s)
	}

	copy(id[:], b)

	return id, nil
}

// String returns the lowercase hex form used on the wire.
func (id ProgramID) String() string {
	return hex.EncodeToString(id[:])
}

// Short returns the first 8 bytes in hex, for logs.
func (id ProgramID) Short() string {
	return hex.EncodeToString(id[:8])
}

// Fetcher performs the HTTP GET exposed to programs.
type Fetcher interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// Env is what a program sees while it runs. Only data passed to Commit is
// covered by the receipt.
type Env interface {
	// Input returns the program input.
	Input() []byte

	// Fetch performs an HTTP GET through the host.
	Fetch(ctx context.Context, url string) ([]byte, error)

	// Commit writes the journal. It may be called once per run.
	Commit(journal []byte) error
}

// Program is a natively executed program.
// A run produces a receipt only if Run returns nil after committing.
type Program interface {
	Run(ctx context.Context, env Env) error
}

// ProgramFunc adapts a function to Program.
type ProgramFunc func(ctx context.Context, env Env) error

// Run calls f.
func (f ProgramFunc) Run(ctx context.Context, env Env) error {
	return f(ctx, env)
}

var (
	// ErrAlreadyCommitted is returned by Commit on a second call.
	ErrAlreadyCommitted = errors.New("journal already committed")

	// ErrNoFetcher is returned by Fetch when the host has no fetcher.
	ErrNoFetcher = errors.New("fetch not available")
)

// runEnv is the Env handed to a single execution.
type runEnv struct {
	input     []byte  // input is the program input
	fetcher   Fetcher // fetcher serves Fetch, may be nil
	journal   []byte  // journal is the committed output
	committed bool    // committed is set by the first Commit
}

func (e *runEnv) Input() []byte {
	return e.input
}

func (e *runEnv) Fetch(ctx context.Context, url string) ([]byte, error) {
	if e.fetcher == nil {
		return nil, ErrNoFetcher
	}

	return e.fetcher.Get(ctx, url)
}

func (e *runEnv) Commit(journal []byte) error {
	if e.committed {
		return ErrAlreadyCommitted
	}

	e.journal = make([]byte, len(journal))
	copy(e.journal, journal)
	e.committed = true

	return nil
}
