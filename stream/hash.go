package stream

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"hash"
	"hash/crc32"

	"github.com/zeebo/blake3"
)

// Algorithm selects the digest computed over each value.
type Algorithm uint8

const (
	DigestNone   Algorithm = 0
	DigestCRC32  Algorithm = 1 // IEEE CRC-32, 4 bytes
	DigestSHA1   Algorithm = 2 // BitTorrent v1 piece and info hashes
	DigestSHA256 Algorithm = 3 // BitTorrent v2
	DigestBLAKE3 Algorithm = 4
)

// String returns the algorithm name.
func (a Algorithm) String() string {
	switch a {
	case DigestNone:
		return "none"
	case DigestCRC32:
		return "crc32"
	case DigestSHA1:
		return "sha1"
	case DigestSHA256:
		return "sha256"
	case DigestBLAKE3:
		return "blake3"
	default:
		return fmt.Sprintf("unknown(%d)", a)
	}
}

// ParseAlgorithm parses an algorithm name.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch name {
	case "none", "":
		return DigestNone, nil
	case "crc32":
		return DigestCRC32, nil
	case "sha1":
		return DigestSHA1, nil
	case "sha256":
		return DigestSHA256, nil
	case "blake3":
		return DigestBLAKE3, nil
	default:
		return 0, fmt.Errorf("unknown digest algorithm: %q", name)
	}
}

// New returns a fresh hash for a.
func (a Algorithm) New() (hash.Hash, error) {
	switch a {
	case DigestCRC32:
		return crc32.NewIEEE(), nil
	case DigestSHA1:
		return sha1.New(), nil
	case DigestSHA256:
		return sha256.New(), nil
	case DigestBLAKE3:
		return blake3.New(), nil
	default:
		return nil, fmt.Errorf("no hash for digest algorithm %s", a)
	}
}

// Sum computes the digest of data.
func Sum(a Algorithm, data []byte) ([]byte, error) {
	h, err := a.New()
	if err != nil {
		return nil, err
	}
	h.Write(data)
	return h.Sum(nil), nil
}

// VerifyDigest reports whether two digests are equal, in constant time.
func VerifyDigest(got, expected []byte) bool {
	return len(got) == len(expected) && subtle.ConstantTimeCompare(got, expected) == 1
}

// HashToHex converts a digest to a lowercase hex string.
func HashToHex(h []byte) string {
	return hex.EncodeToString(h)
}

// HexToHash parses a hex digest of the given size in bytes.
func HexToHash(s string, size int) ([]byte, bool) {
	if len(s) != size*2 {
		return nil, false
	}
	h, err := hex.DecodeString(s)
	if err != nil {
		return nil, false
	}
	return h, true
}
