package engine

import (
	"bytes"
	"errors"
	"fmt"

	flatbuffers "github.com/google/flatbuffers/go"
)

var (
	// ErrMalformedReceipt is returned for artifacts that cannot be parsed.
	ErrMalformedReceipt = errors.New("malformed receipt")

	// ErrBadSeal is returned when the seal does not verify under the prover key.
	ErrBadSeal = errors.New("receipt seal verification failed")

	// ErrImageMismatch is returned when the receipt was produced by another program.
	ErrImageMismatch = errors.New("receipt image id mismatch")

	// ErrProverMismatch is returned when the receipt names another prover key.
	ErrProverMismatch = errors.New("receipt prover key mismatch")
)

// Receipt is the proof artifact: the journal of one execution, the program
// that produced it, and the prover's seal over both.
//
// Wire format: FlatBuffers ReceiptBody || 96-byte seal.
type Receipt struct {
	ImageID   ProgramID // ImageID identifies the executed program
	Journal   []byte    // Journal is the committed output
	ProverKey []byte    // ProverKey is the sealing key
	Seal      []byte    // Seal is the BLS signature over the body

	body []byte // body is the exact sealed encoding
}

// Marshal returns the artifact bytes.
func (r *Receipt) Marshal() []byte {
	body := r.body
	if body == nil {
		body = encodeBody(r.ImageID, r.Journal, r.ProverKey)
	}

	out := make([]byte, 0, len(body)+len(r.Seal))
	out = append(out, body...)

	return append(out, r.Seal...)
}

// UnmarshalReceipt parses an artifact without verifying it.
func UnmarshalReceipt(data []byte) (*Receipt, error) {
	if len(data) <= SealSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrMalformedReceipt, len(data))
	}

	split := len(data) - SealSize
	body := data[:split]

	r, err := decodeBody(body)
	if err != nil {
		return nil, err
	}

	r.Seal = append([]byte(nil), data[split:]...)

	return r, nil
}

// VerifyReceipt checks that artifact was sealed by proverKey for program id
// and returns the parsed receipt. It fails closed: any parse error, seal
// failure or mismatch is an error.
func VerifyReceipt(artifact []byte, id ProgramID, proverKey []byte) (*Receipt, error) {
	if len(artifact) <= SealSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrMalformedReceipt, len(artifact))
	}

	split := len(artifact) - SealSize
	body, seal := artifact[:split], artifact[split:]

	if !verifySeal(seal, body, proverKey) {
		return nil, ErrBadSeal
	}

	r, err := decodeBody(body)
	if err != nil {
		return nil, err
	}

	r.Seal = append([]byte(nil), seal...)

	if r.ImageID != id {
		return nil, fmt.Errorf("%w: got %s, want %s", ErrImageMismatch, r.ImageID.Short(), id.Short())
	}

	if !bytes.Equal(r.ProverKey, proverKey) {
		return nil, ErrProverMismatch
	}

	return r, nil
}

// encodeBody builds the FlatBuffers receipt body.
func encodeBody(id ProgramID, journal, proverKey []byte) []byte {
	builder := flatbuffers.NewBuilder(128 + len(journal))

	imageOffset := builder.CreateByteVector(id[:])
	journalOffset := builder.CreateByteVector(journal)
	keyOffset := builder.CreateByteVector(proverKey)

	ReceiptBodyStart(builder)
	ReceiptBodyAddImageId(builder, imageOffset)
	ReceiptBodyAddJournal(builder, journalOffset)
	ReceiptBodyAddProverKey(builder, keyOffset)
	builder.Finish(ReceiptBodyEnd(builder))

	return builder.FinishedBytes()
}

// decodeBody parses a receipt body, copying every field out of buf.
// FlatBuffers accessors index without bounds checks, so a corrupt buffer
// panics; that is reported as ErrMalformedReceipt.
func decodeBody(buf []byte) (r *Receipt, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r, err = nil, fmt.Errorf("%w: %v", ErrMalformedReceipt, rec)
		}
	}()

	if len(buf) < 8 {
		return nil, fmt.Errorf("%w: body too short", ErrMalformedReceipt)
	}

	fb := GetRootAsReceiptBody(buf, 0)

	imageID := fb.ImageIdBytes()
	if len(imageID) != ProgramIDSize {
		return nil, fmt.Errorf("%w: image id length %d", ErrMalformedReceipt, len(imageID))
	}

	proverKey := fb.ProverKeyBytes()
	if len(proverKey) != ProverKeySize {
		return nil, fmt.Errorf("%w: prover key length %d", ErrMalformedReceipt, len(proverKey))
	}

	journal := fb.JournalBytes()
	if journal == nil {
		return nil, fmt.Errorf("%w: missing journal", ErrMalformedReceipt)
	}

	r = &Receipt{
		Journal:   append([]byte{}, journal...),
		ProverKey: append([]byte(nil), proverKey...),
		body:      append([]byte(nil), buf...),
	}
	copy(r.ImageID[:], imageID)

	return r, nil
}
