package engine

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// maxArtifactSize bounds a decompressed receipt.
const maxArtifactSize = 64 << 20 // 64 MB

// CompressArtifact compresses a receipt artifact for transport using zstd.
func CompressArtifact(data []byte) ([]byte, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create encoder:\n%w", err)
	}
	defer encoder.Close()

	return encoder.EncodeAll(data, nil), nil
}

// DecompressArtifact decompresses a zstd-compressed receipt artifact.
func DecompressArtifact(data []byte) ([]byte, error) {
	decoder, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxArtifactSize))
	if err != nil {
		return nil, fmt.Errorf("create decoder:\n%w", err)
	}
	defer decoder.Close()

	out, err := decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedReceipt, err)
	}

	return out, nil
}
