// Package journal holds the engine-native encodings shared by the fetch
// program and the verifying side: the program input (a single URL) and the
// VerifiedEnvelope committed to the journal.
//
// Both use Borsh-style framing: every variable-length field is a u32
// little-endian length followed by the bytes. Decoders reject trailing data.
package journal

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
)

// maxFieldSize bounds a single length-prefixed field.
const maxFieldSize = 16 << 20 // 16 MB

var (
	// ErrTruncated is returned when a field extends past the buffer.
	ErrTruncated = errors.New("journal: truncated data")

	// ErrTrailingData is returned when bytes remain after the last field.
	ErrTrailingData = errors.New("journal: trailing data")

	// ErrFieldTooLarge is returned when a length prefix exceeds maxFieldSize.
	ErrFieldTooLarge = errors.New("journal: field too large")
)

// Envelope pairs a fetched payload with the commitment of the request that
// produced it. It is the only thing the fetch program commits.
type Envelope struct {
	Response    json.RawMessage `json:"response"`     // Response is the compacted JSON body
	RequestHash string          `json:"request_hash"` // RequestHash is commitment.Compute(url)
}

// DecodeResponse unmarshals the payload into v.
func (e Envelope) DecodeResponse(v any) error {
	if err := json.Unmarshal(e.Response, v); err != nil {
		return fmt.Errorf("decode response:\n%w", err)
	}

	return nil
}

// EncodeInput encodes a request identifier as program input.
// Format: u32 len + url bytes
func EncodeInput(url string) []byte {
	return appendField(make([]byte, 0, 4+len(url)), []byte(url))
}

// DecodeInput decodes program input produced by EncodeInput.
func DecodeInput(data []byte) (string, error) {
	url, rest, err := readField(data)
	if err != nil {
		return "", fmt.Errorf("read url:\n%w", err)
	}

	if len(rest) != 0 {
		return "", ErrTrailingData
	}

	return string(url), nil
}

// EncodeEnvelope encodes an envelope for the journal.
// Format: u32 len + response bytes + u32 len + request hash bytes
func EncodeEnvelope(env Envelope) []byte {
	buf := make([]byte, 0, 8+len(env.Response)+len(env.RequestHash))
	buf = appendField(buf, env.Response)
	buf = appendField(buf, []byte(env.RequestHash))

	return buf
}

// DecodeEnvelope decodes a journal produced by EncodeEnvelope.
func DecodeEnvelope(data []byte) (Envelope, error) {
	response, rest, err := readField(data)
	if err != nil {
		return Envelope{}, fmt.Errorf("read response:\n%w", err)
	}

	hash, rest, err := readField(rest)
	if err != nil {
		return Envelope{}, fmt.Errorf("read request hash:\n%w", err)
	}

	if len(rest) != 0 {
		return Envelope{}, ErrTrailingData
	}

	if !json.Valid(response) {
		return Envelope{}, fmt.Errorf("response is not valid JSON")
	}

	env := Envelope{
		Response:    make(json.RawMessage, len(response)),
		RequestHash: string(hash),
	}
	copy(env.Response, response)

	return env, nil
}

// appendField appends a u32 length prefix and the field bytes.
func appendField(buf, field []byte) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(field)))
	return append(buf, field...)
}

// readField reads one length-prefixed field and returns the remainder.
func readField(data []byte) (field, rest []byte, err error) {
	if len(data) < 4 {
		return nil, nil, ErrTruncated
	}

	n := binary.LittleEndian.Uint32(data[:4])
	if n > maxFieldSize {
		return nil, nil, ErrFieldTooLarge
	}

	if uint64(len(data)-4) < uint64(n) {
		return nil, nil, ErrTruncated
	}

	return data[4 : 4+n], data[4+n:], nil
}
