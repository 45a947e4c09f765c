package database

import (
	"fmt"

	"github.com/ardanlabs/ledger/foundation/blockchain/hashing"
)

// Block represents a single record in the ledger. A block is immutable once
// its hash has been found.
type Block struct {
	ID           uint64 `json:"id"`            // Position in the chain, genesis is 0.
	Hash         string `json:"hash"`          // Hex digest of the other fields.
	PreviousHash string `json:"previous_hash"` // Hash of the previous block in the chain.
	TimeStamp    int64  `json:"timestamp"`     // Time the block was mined, as given by the miner.
	Data         string `json:"data"`          // Opaque payload.
	Nonce        uint64 `json:"nonce"`         // Value identified to solve the hash solution.
}

// ComputeHash recalculates the hash from the block fields. The Hash field
// itself is never trusted.
func (b Block) ComputeHash() string {
	return hashing.DigestHex(b.ID, b.TimeStamp, b.PreviousHash, b.Data, b.Nonce)
}

// String implements the Stringer interface for logging.
func (b Block) String() string {
	return fmt.Sprintf("blk[%d:%s]", b.ID, b.Hash)
}

// ValidateBlock takes a block and validates it can follow the previous block
// in the chain.
func (b Block) ValidateBlock(previousBlock Block, target hashing.Target, evHandler func(v string, args ...any)) error {
	ev := evSafe(evHandler)

	ev("database: ValidateBlock: validate: blk[%d]: check: previous hash does match previous block", b.ID)

	if b.PreviousHash != previousBlock.Hash {
		return fmt.Errorf("%w: got %s, exp %s", ErrPreviousHash, b.PreviousHash, previousBlock.Hash)
	}

	ev("database: ValidateBlock: validate: blk[%d]: check: block hash has been solved", b.ID)

	solved, err := hashing.IsSolvedHex(b.Hash, target)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDifficulty, err)
	}
	if !solved {
		return fmt.Errorf("%w: hash %s, target %s", ErrDifficulty, b.Hash, target)
	}

	ev("database: ValidateBlock: validate: blk[%d]: check: block id is the next id", b.ID)

	nextID := previousBlock.ID + 1
	if b.ID != nextID {
		return fmt.Errorf("%w: got %d, exp %d", ErrBlockID, b.ID, nextID)
	}

	ev("database: ValidateBlock: validate: blk[%d]: check: block hash matches contents", b.ID)

	if hash := b.ComputeHash(); hash != b.Hash {
		return fmt.Errorf("%w: got %s, exp %s", ErrHashMismatch, b.Hash, hash)
	}

	return nil
}

// IsBlockValid is the boolean form of ValidateBlock.
func IsBlockValid(block Block, previousBlock Block, target hashing.Target) bool {
	return block.ValidateBlock(previousBlock, target, nil) == nil
}
