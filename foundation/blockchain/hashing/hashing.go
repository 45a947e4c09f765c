// Package hashing provides the canonical block digest and the proof of work
// difficulty predicate used by the ledger.
package hashing

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// DefaultTarget is the default difficulty: the first two bits of the digest
// must be zero.
const DefaultTarget Target = "00"

// ErrMalformedHash is returned when a hash string is not hex encoded or
// is not 32 bytes long.
var ErrMalformedHash = errors.New("malformed hash")

// =============================================================================

// Target represents the bit-string prefix a digest must start with to be
// considered solved.
type Target string

// ParseTarget validates the string form of a target.
func ParseTarget(s string) (Target, error) {
	if len(s) > chainhash.HashSize*8 {
		return "", fmt.Errorf("target %q longer than %d bits", s, chainhash.HashSize*8)
	}

	for i, c := range s {
		if c != '0' && c != '1' {
			return "", fmt.Errorf("target %q has invalid bit %q at position %d", s, c, i)
		}
	}

	return Target(s), nil
}

// Bits returns the number of bits the target pins.
func (t Target) Bits() int {
	return len(t)
}

// =============================================================================

// record is the canonical form of the fields that make up a block hash. The
// fields are declared in lexical order of their json names so the encoding
// is stable.
type record struct {
	Data         string `json:"data"`
	ID           uint64 `json:"id"`
	Nonce        uint64 `json:"nonce"`
	PreviousData string `json:"previous_data"`
	TimeStamp    int64  `json:"timestamp"`
}

// Encode returns the canonical bytes that are hashed for a block.
func Encode(id uint64, timestamp int64, previousHash string, data string, nonce uint64) []byte {
	rec := record{
		Data:         data,
		ID:           id,
		Nonce:        nonce,
		PreviousData: previousHash,
		TimeStamp:    timestamp,
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	// A struct of strings and integers can't fail to encode.
	enc.Encode(rec)

	return bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
}

// Digest returns the SHA-256 digest of the canonical encoding of the block
// fields.
func Digest(id uint64, timestamp int64, previousHash string, data string, nonce uint64) [32]byte {
	return chainhash.HashH(Encode(id, timestamp, previousHash, data, nonce))
}

// DigestHex returns the lowercase hex form of Digest.
func DigestHex(id uint64, timestamp int64, previousHash string, data string, nonce uint64) string {
	hash := Digest(id, timestamp, previousHash, data, nonce)
	return hex.EncodeToString(hash[:])
}

// =============================================================================

// BitString expands every byte of the hash into its 8 bit binary form and
// concatenates them.
func BitString(hash []byte) string {
	var b strings.Builder
	b.Grow(len(hash) * 8)

	for _, c := range hash {
		fmt.Fprintf(&b, "%08b", c)
	}

	return b.String()
}

// IsSolved checks the hash satisfies the difficulty target.
func IsSolved(hash []byte, target Target) bool {
	return strings.HasPrefix(BitString(hash), string(target))
}

// IsSolvedHex decodes the hex form of a hash and checks it against the
// difficulty target.
func IsSolvedHex(hash string, target Target) (bool, error) {
	raw, err := Decode(hash)
	if err != nil {
		return false, err
	}

	return IsSolved(raw, target), nil
}

// Decode converts the hex form of a hash back into bytes.
func Decode(hash string) ([]byte, error) {
	raw, err := hex.DecodeString(hash)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedHash, err)
	}

	if len(raw) != chainhash.HashSize {
		return nil, fmt.Errorf("%w: got %d bytes, exp %d", ErrMalformedHash, len(raw), chainhash.HashSize)
	}

	return raw, nil
}
