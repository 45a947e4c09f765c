// Package database defines the block and chain data model together with the
// proof of work, validation and fork-choice rules that operate on them.
package database

import "errors"

// Set of rejection reasons produced by ValidateBlock. A block is checked in
// this order and the first failure is reported.
var (
	ErrPreviousHash = errors.New("previous hash does not match previous block")
	ErrDifficulty   = errors.New("hash does not satisfy difficulty")
	ErrBlockID      = errors.New("block id is not the next id")
	ErrHashMismatch = errors.New("hash does not match block contents")
)

// ErrChainsInvalid is returned by ChooseChain when neither the local nor the
// remote chain is valid. Local chains are only ever built from validated
// blocks, so this means the node's own state is corrupted.
var ErrChainsInvalid = errors.New("local and remote chains are both invalid")

// ErrGenesis is returned when the first block of a chain is not the pinned
// genesis block.
var ErrGenesis = errors.New("first block is not the genesis block")

// evSafe returns an event handler that can always be called.
func evSafe(ev func(v string, args ...any)) func(v string, args ...any) {
	if ev == nil {
		return func(v string, args ...any) {}
	}
	return ev
}
