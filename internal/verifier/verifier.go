// Package verifier checks receipts produced by a proving backend.
//
// Verification has two independent layers. Verify/Check establish that an
// artifact was sealed by the trusted prover for the expected program.
// CheckCommitment establishes that the attested envelope belongs to the
// request the caller made. A caller needs both.
package verifier

import (
	"fmt"

	"ProofFetch/internal/commitment"
	"ProofFetch/internal/engine"
	"ProofFetch/internal/journal"
)

// Verifier checks receipts against a trusted prover key.
type Verifier struct {
	proverKey []byte // proverKey is the compressed BLS public key receipts must be sealed with
}

// New creates a verifier trusting proverKey.
func New(proverKey []byte) (*Verifier, error) {
	if len(proverKey) != engine.ProverKeySize {
		return nil, fmt.Errorf("prover key must be %d bytes, got %d", engine.ProverKeySize, len(proverKey))
	}

	return &Verifier{proverKey: append([]byte(nil), proverKey...)}, nil
}

// Verify reports whether artifact is a valid receipt for program id.
// Any corruption, identity mismatch or foreign seal yields false.
func (v *Verifier) Verify(artifact []byte, id engine.ProgramID) bool {
	return v.Check(artifact, id) == nil
}

// Check is Verify with the reason for rejection.
func (v *Verifier) Check(artifact []byte, id engine.ProgramID) error {
	if _, err := engine.VerifyReceipt(artifact, id, v.proverKey); err != nil {
		return fmt.Errorf("verify receipt:\n%w", err)
	}

	return nil
}

// Decode extracts the envelope from an artifact. It does not verify the
// seal; call it only after Verify succeeded.
func (v *Verifier) Decode(artifact []byte) (journal.Envelope, error) {
	r, err := engine.UnmarshalReceipt(artifact)
	if err != nil {
		return journal.Envelope{}, fmt.Errorf("parse receipt:\n%w", err)
	}

	env, err := journal.DecodeEnvelope(r.Journal)
	if err != nil {
		return journal.Envelope{}, fmt.Errorf("decode journal:\n%w", err)
	}

	return env, nil
}

// CheckCommitment reports whether env attests to a fetch of url.
func CheckCommitment(url string, env journal.Envelope) bool {
	return commitment.Matches(url, env.RequestHash)
}
