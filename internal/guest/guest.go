// Package guest is the verifiable fetch program. It runs inside the
// execution engine, fetches the URL it receives as input and commits the
// response together with the commitment of that URL.
package guest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"ProofFetch/internal/commitment"
	"ProofFetch/internal/engine"
	"ProofFetch/internal/journal"
)

// Image is the program image of the native fetch program. Its hash is the
// program identity receipts are pinned to; bump the version line whenever
// Run changes behavior.
var Image = []byte("prooffetch/guest/fetch\nversion: 2\ninput: journal.EncodeInput(url)\njournal: journal.EncodeEnvelope(response, sha256hex(url))\n")

// ErrNotJSON is returned when the fetched body is not a JSON document.
var ErrNotJSON = errors.New("guest: response is not JSON")

// ID returns the identity of Image.
func ID() engine.ProgramID {
	return engine.ComputeProgramID(Image)
}

// Program is the fetch program.
type Program struct{}

// Run fetches the input URL and commits the envelope.
// Every failure returns before the commit.
func (Program) Run(ctx context.Context, env engine.Env) error {
	url, err := journal.DecodeInput(env.Input())
	if err != nil {
		return fmt.Errorf("decode input:\n%w", err)
	}

	body, err := env.Fetch(ctx, url)
	if err != nil {
		return fmt.Errorf("fetch:\n%w", err)
	}

	response, err := compactJSON(body)
	if err != nil {
		return err
	}

	envelope := journal.Envelope{
		Response:    response,
		RequestHash: commitment.Compute(url),
	}

	return env.Commit(journal.EncodeEnvelope(envelope))
}

// Register installs the fetch program in ex and returns its identity.
func Register(ex *engine.Executor) engine.ProgramID {
	return ex.Register(Image, Program{})
}

// compactJSON validates and compacts the fetched body. It runs in the
// program whatever fetcher the host provides.
func compactJSON(body []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotJSON, err)
	}

	return buf.Bytes(), nil
}
