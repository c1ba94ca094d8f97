package engine

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	blst "github.com/supranational/blst/bindings/go"
	"github.com/zeebo/blake3"
)

const (
	// ProverKeySize is the size of a compressed BLS public key in bytes.
	ProverKeySize = 48

	// SealSize is the size of a compressed BLS signature in bytes.
	SealSize = 96
)

// sealDST is the domain separation tag for receipt seals.
var sealDST = []byte("BLS_SIG_BLS12381G2_XMD:SHA-256_SSWU_RO_NUL_")

// ReceiptVersion names the receipt format and domain-separates seals.
const ReceiptVersion = "prooffetch-receipt-v1"

// sealDomain prefixes the receipt body before hashing.
var sealDomain = []byte(ReceiptVersion)

// SealKey is the prover's BLS key pair.
type SealKey struct {
	secret *blst.SecretKey // secret is the private key
	public *blst.P1Affine  // public is the public key
}

// DeriveSealKey derives a deterministic seal key from an ed25519 private key.
// The key is bound to the prover identity via BLAKE3("prooffetch-seal-keygen" || seed).
func DeriveSealKey(privKey ed25519.PrivateKey) (*SealKey, error) {
	h := blake3.New()
	h.Write([]byte("prooffetch-seal-keygen"))
	h.Write(privKey.Seed())

	var derived [32]byte
	h.Sum(derived[:0])

	return SealKeyFromSeed(derived[:])
}

// GenerateSealKey creates a seal key from a random seed.
func GenerateSealKey() (*SealKey, error) {
	var ikm [32]byte
	if _, err := rand.Read(ikm[:]); err != nil {
		return nil, fmt.Errorf("generate random seed:\n%w", err)
	}

	return SealKeyFromSeed(ikm[:])
}

// SealKeyFromSeed creates a seal key from a seed of at least 32 bytes.
func SealKeyFromSeed(seed []byte) (*SealKey, error) {
	if len(seed) < 32 {
		return nil, fmt.Errorf("seed must be at least 32 bytes")
	}

	secret := blst.KeyGen(seed)
	if secret == nil {
		return nil, fmt.Errorf("failed to generate BLS key")
	}

	return &SealKey{
		secret: secret,
		public: new(blst.P1Affine).From(secret),
	}, nil
}

// PublicKey returns the compressed public key.
func (k *SealKey) PublicKey() []byte {
	return k.public.Compress()
}

// PublicKeyHex returns the compressed public key in hex.
func (k *SealKey) PublicKeyHex() string {
	return hex.EncodeToString(k.PublicKey())
}

// seal signs a receipt body.
func (k *SealKey) seal(body []byte) []byte {
	digest := sealDigest(body)
	return new(blst.P2Affine).Sign(k.secret, digest[:], sealDST).Compress()
}

// ParseProverKey decodes and validates a hex compressed BLS public key.
func ParseProverKey(s string) ([]byte, error) {
	key, err := hex.DecodeString(s)
	if err != nil || len(key) != ProverKeySize {
		return nil, fmt.Errorf("invalid prover key: %q", s)
	}

	if pk := new(blst.P1Affine).Uncompress(key); pk == nil || !pk.KeyValidate() {
		return nil, fmt.Errorf("prover key is not a valid BLS public key")
	}

	return key, nil
}

// verifySeal checks seal over body against the prover public key.
func verifySeal(seal, body, proverKey []byte) bool {
	if len(seal) != SealSize || len(proverKey) != ProverKeySize {
		return false
	}

	sig := new(blst.P2Affine).Uncompress(seal)
	if sig == nil {
		return false
	}

	pk := new(blst.P1Affine).Uncompress(proverKey)
	if pk == nil {
		return false
	}

	digest := sealDigest(body)

	return sig.Verify(true, pk, true, digest[:], sealDST)
}

// sealDigest is the message signed for a receipt body.
func sealDigest(body []byte) [32]byte {
	h := blake3.New()
	h.Write(sealDomain)
	h.Write(body)

	var out [32]byte
	h.Sum(out[:0])

	return out
}
