package database

import (
	"fmt"

	"github.com/ardanlabs/ledger/foundation/blockchain/hashing"
)

// Chain represents an ordered sequence of blocks starting at genesis.
type Chain []Block

// NewChain constructs a chain holding only the genesis block.
func NewChain() Chain {
	return Chain{Genesis()}
}

// Len returns the number of blocks in the chain.
func (c Chain) Len() int {
	return len(c)
}

// Latest returns the tip of the chain. An empty chain returns a zero block.
func (c Chain) Latest() Block {
	if len(c) == 0 {
		return Block{}
	}
	return c[len(c)-1]
}

// Copy returns a copy of the chain that doesn't share the backing array.
func (c Chain) Copy() Chain {
	if c == nil {
		return nil
	}

	cpy := make(Chain, len(c))
	copy(cpy, c)
	return cpy
}

// =============================================================================

// ValidateChain checks every adjacent pair of blocks from index 1 onward. An
// empty chain or a chain holding only genesis is valid. The genesis block is
// never validated against a predecessor, it only has to be the pinned one.
func ValidateChain(chain Chain, target hashing.Target, evHandler func(v string, args ...any)) error {
	if len(chain) == 0 {
		return nil
	}

	if !IsGenesis(chain[0]) {
		return fmt.Errorf("%w: got %s", ErrGenesis, chain[0])
	}

	for i := 1; i < len(chain); i++ {
		if err := chain[i].ValidateBlock(chain[i-1], target, evHandler); err != nil {
			return fmt.Errorf("index %d: %w", i, err)
		}
	}

	return nil
}

// IsChainValid is the boolean form of ValidateChain.
func IsChainValid(chain Chain, target hashing.Target) bool {
	return ValidateChain(chain, target, nil) == nil
}

// ChooseChain implements the fork-choice rule between the local chain and a
// chain received from a peer. Length is the only measure of work. On a tie
// the local chain is kept so equal forks don't cause churn.
func ChooseChain(local Chain, remote Chain, target hashing.Target, evHandler func(v string, args ...any)) (Chain, error) {
	ev := evSafe(evHandler)

	localErr := ValidateChain(local, target, nil)
	remoteErr := ValidateChain(remote, target, nil)

	switch {
	case localErr == nil && remoteErr == nil:
		if remote.Len() > local.Len() {
			ev("database: ChooseChain: remote chain is longer: local[%d]: remote[%d]", local.Len(), remote.Len())
			return remote, nil
		}
		ev("database: ChooseChain: keeping local chain: local[%d]: remote[%d]", local.Len(), remote.Len())
		return local, nil

	case localErr == nil:
		ev("database: ChooseChain: remote chain invalid: %s", remoteErr)
		return local, nil

	case remoteErr == nil:
		ev("database: ChooseChain: local chain invalid: %s", localErr)
		return remote, nil
	}

	return nil, fmt.Errorf("%w: local: %w: remote: %w", ErrChainsInvalid, localErr, remoteErr)
}
