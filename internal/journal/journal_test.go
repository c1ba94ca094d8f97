package journal

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

func TestInputLayout(t *testing.T) {
	url := "https://api.example.com/x"
	data := EncodeInput(url)

	if len(data) != 4+len(url) {
		t.Fatalf("length = %d, want %d", len(data), 4+len(url))
	}

	if got := binary.LittleEndian.Uint32(data[:4]); got != uint32(len(url)) {
		t.Errorf("length prefix = %d, want %d", got, len(url))
	}

	decoded, err := DecodeInput(data)
	if err != nil {
		t.Fatalf("DecodeInput: %v", err)
	}

	if decoded != url {
		t.Errorf("DecodeInput = %q, want %q", decoded, url)
	}
}

func TestDecodeInputMalformed(t *testing.T) {
	valid := EncodeInput("https://api.example.com/x")

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, ErrTruncated},
		{"short prefix", []byte{1, 0}, ErrTruncated},
		{"truncated body", valid[:len(valid)-1], ErrTruncated},
		{"trailing", append(append([]byte{}, valid...), 0), ErrTrailingData},
		{"huge prefix", []byte{0xff, 0xff, 0xff, 0xff}, ErrFieldTooLarge},
	}

	for _, tt := range tests {
		_, err := DecodeInput(tt.data)
		if !errors.Is(err, tt.want) {
			t.Errorf("%s: got %v, want %v", tt.name, err, tt.want)
		}
	}
}

func TestEnvelopeEncodeDecode(t *testing.T) {
	env := Envelope{
		Response:    []byte(`{"some_response_param":"value"}`),
		RequestHash: "c5d178f6a6b376a7460ce097e37bfec8cf35e251bcf917eb14f583af0e69ad82",
	}

	data := EncodeEnvelope(env)

	decoded, err := DecodeEnvelope(data)
	if err != nil {
		t.Fatalf("DecodeEnvelope: %v", err)
	}

	if !bytes.Equal(decoded.Response, env.Response) {
		t.Errorf("response = %s, want %s", decoded.Response, env.Response)
	}

	if decoded.RequestHash != env.RequestHash {
		t.Errorf("request hash = %s, want %s", decoded.RequestHash, env.RequestHash)
	}

	var payload struct {
		SomeResponseParam string `json:"some_response_param"`
	}

	if err := decoded.DecodeResponse(&payload); err != nil {
		t.Fatalf("DecodeResponse: %v", err)
	}

	if payload.SomeResponseParam != "value" {
		t.Errorf("payload = %q, want %q", payload.SomeResponseParam, "value")
	}
}

func TestDecodeEnvelopeDoesNotAlias(t *testing.T) {
	data := EncodeEnvelope(Envelope{Response: []byte(`{"a":1}`), RequestHash: "h"})

	decoded, err := DecodeEnvelope(data)
	if err != nil {
		t.Fatalf("DecodeEnvelope: %v", err)
	}

	data[5] = 'X'

	if string(decoded.Response) != `{"a":1}` {
		t.Errorf("decoded response changed with source buffer: %s", decoded.Response)
	}
}

func TestDecodeEnvelopeMalformed(t *testing.T) {
	valid := EncodeEnvelope(Envelope{Response: []byte(`{"a":1}`), RequestHash: "abcd"})

	if _, err := DecodeEnvelope(valid[:len(valid)-2]); !errors.Is(err, ErrTruncated) {
		t.Errorf("truncated: got %v, want ErrTruncated", err)
	}

	if _, err := DecodeEnvelope(append(append([]byte{}, valid...), 1, 2)); !errors.Is(err, ErrTrailingData) {
		t.Errorf("trailing: got %v, want ErrTrailingData", err)
	}

	notJSON := EncodeEnvelope(Envelope{Response: []byte(`{not json`), RequestHash: "abcd"})
	if _, err := DecodeEnvelope(notJSON); err == nil {
		t.Error("non-JSON response should be rejected")
	}
}
