package database

import (
	"context"
	"encoding/hex"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/hashing"
)

// MineArgs represents the set of fields that are searched over to find a
// nonce.
type MineArgs struct {
	ID           uint64
	TimeStamp    int64
	PreviousHash string
	Data         string
	Target       hashing.Target
	EvHandler    func(v string, args ...any)
}

// Mine performs a sequential search starting at nonce 0 until a digest that
// satisfies the target is found. The context is checked between attempts so
// the search can be abandoned when another node wins the race.
func Mine(ctx context.Context, args MineArgs) (nonce uint64, hash string, err error) {
	ev := evSafe(args.EvHandler)

	ev("database: Mine: MINING: started: blk[%d]", args.ID)
	defer ev("database: Mine: MINING: completed: blk[%d]", args.ID)

	for nonce = 0; ; nonce++ {
		if nonce%100_000 == 0 {
			ev("database: Mine: MINING: attempts[%d]", nonce)
		}

		if ctx.Err() != nil {
			ev("database: Mine: MINING: CANCELLED")
			return 0, "", ctx.Err()
		}

		digest := hashing.Digest(args.ID, args.TimeStamp, args.PreviousHash, args.Data, nonce)
		if !hashing.IsSolved(digest[:], args.Target) {
			continue
		}

		hash = hex.EncodeToString(digest[:])

		ev("database: Mine: MINING: SOLVED: nonce[%d]: hash[%s]: bits[%s]", nonce, hash, hashing.BitString(digest[:])[:args.Target.Bits()])

		return nonce, hash, nil
	}
}

// =============================================================================

// POWArgs represents the set of arguments required to run POW.
type POWArgs struct {
	PrevBlock Block
	Data      string
	Target    hashing.Target
	EvHandler func(v string, args ...any)
}

// POW constructs a new Block that follows the previous block and performs
// the work to find a nonce that solves the cryptographic POW puzzle.
func POW(ctx context.Context, args POWArgs) (Block, error) {
	nb := Block{
		ID:           args.PrevBlock.ID + 1,
		PreviousHash: args.PrevBlock.Hash,
		TimeStamp:    time.Now().UTC().Unix(),
		Data:         args.Data,
	}

	nonce, hash, err := Mine(ctx, MineArgs{
		ID:           nb.ID,
		TimeStamp:    nb.TimeStamp,
		PreviousHash: nb.PreviousHash,
		Data:         nb.Data,
		Target:       args.Target,
		EvHandler:    args.EvHandler,
	})
	if err != nil {
		return Block{}, err
	}

	nb.Nonce = nonce
	nb.Hash = hash

	return nb, nil
}
