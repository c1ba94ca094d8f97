// Package cidutil derives content identifiers for inputs and receipts.
package cidutil

import (
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// Sum returns the CIDv1 (raw codec, sha2-256 multihash) of data.
func Sum(data []byte) (cid.Cid, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}

	return cid.NewCidV1(cid.Raw, sum), nil
}

// String returns the CIDv1 string of data, or "" if hashing fails.
func String(data []byte) string {
	id, err := Sum(data)
	if err != nil {
		return ""
	}

	return id.String()
}

// Parse decodes s and checks it is a raw sha2-256 CIDv1.
func Parse(s string) (cid.Cid, error) {
	id, err := cid.Decode(s)
	if err != nil {
		return cid.Undef, fmt.Errorf("decode cid %q:\n%w", s, err)
	}

	if id.Version() != 1 || id.Type() != cid.Raw || id.Prefix().MhType != multihash.SHA2_256 {
		return cid.Undef, fmt.Errorf("unsupported cid %q", s)
	}

	return id, nil
}

// Check reports whether data hashes to id.
func Check(id cid.Cid, data []byte) bool {
	got, err := Sum(data)
	if err != nil {
		return false
	}

	return got.Equals(id)
}
