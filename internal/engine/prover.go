package engine

import (
	"context"
	"fmt"
)

// Prover executes programs and seals their journals into receipts.
type Prover struct {
	executor *Executor // executor runs the programs
	key      *SealKey  // key seals receipts
}

// NewProver creates a prover sealing with key.
func NewProver(executor *Executor, key *SealKey) *Prover {
	return &Prover{executor: executor, key: key}
}

// Executor returns the underlying executor.
func (p *Prover) Executor() *Executor {
	return p.executor
}

// PublicKey returns the compressed seal public key.
func (p *Prover) PublicKey() []byte {
	return p.key.PublicKey()
}

// Prove runs program id on input. No receipt exists for a failed run.
func (p *Prover) Prove(ctx context.Context, id ProgramID, input []byte) (*Receipt, error) {
	journal, err := p.executor.Execute(ctx, id, input)
	if err != nil {
		return nil, fmt.Errorf("execute %s:\n%w", id.Short(), err)
	}

	proverKey := p.key.PublicKey()
	body := encodeBody(id, journal, proverKey)

	return &Receipt{
		ImageID:   id,
		Journal:   journal,
		ProverKey: proverKey,
		Seal:      p.key.seal(body),
		body:      body,
	}, nil
}
