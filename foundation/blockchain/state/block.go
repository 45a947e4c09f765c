package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/mempool"
)

// ErrStaleBlock is returned when a locally mined block no longer follows the
// tip because another block was accepted while mining.
var ErrStaleBlock = errors.New("mined block is stale")

// =============================================================================

// MineNewBlock mines the entry's data over the current tip and adds the block
// to the chain. The entry leaves the mempool only when its block is accepted.
func (s *State) MineNewBlock(ctx context.Context, entry mempool.Entry) (database.Block, error) {
	s.evHandler("state: MineNewBlock: MINING: perform POW: entry[%s]", entry.ID)

	// Attempt to create a new block by solving the POW puzzle. This can be cancelled.
	block, err := database.POW(ctx, database.POWArgs{
		PrevBlock: s.RetrieveLatestBlock(),
		Data:      entry.Data,
		Target:    s.target,
		EvHandler: s.evHandler,
	})
	if err != nil {
		return database.Block{}, err
	}

	// Just check one more time we were not cancelled.
	if ctx.Err() != nil {
		return database.Block{}, ctx.Err()
	}

	s.evHandler("state: MineNewBlock: MINING: validate and update chain")

	if err := s.validateUpdateChain(block); err != nil {
		return database.Block{}, fmt.Errorf("%w: %w", ErrStaleBlock, err)
	}

	s.mempool.Delete(entry)

	return block, nil
}

// ProcessProposedBlock takes a block received from a peer, validates it
// against the tip and if that passes, appends it to the chain. A rejected
// block leaves the chain untouched.
func (s *State) ProcessProposedBlock(block database.Block) error {
	s.evHandler("state: ProcessProposedBlock: started: prevBlk[%s]: newBlk[%s]", block.PreviousHash, block.Hash)
	defer s.evHandler("state: ProcessProposedBlock: completed: newBlk[%s]", block.Hash)

	if err := s.validateUpdateChain(block); err != nil {
		s.evHandler("state: ProcessProposedBlock: WARNING: block rejected: %s", err)
		return err
	}

	// If the runMiningOperation function is being executed it is now mining
	// over a stale tip and needs to stop.
	s.cancelMining()

	return nil
}

// =============================================================================

// validateUpdateChain takes the block and validates it against the current
// tip. If the block passes, it is appended to the chain.
func (s *State) validateUpdateChain(block database.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evHandler("state: validateUpdateChain: validate block")

	if err := block.ValidateBlock(s.chain.Latest(), s.target, s.evHandler); err != nil {
		return err
	}

	s.evHandler("state: validateUpdateChain: append block[%d]", block.ID)

	s.chain = append(s.chain, block)

	// Send an event about this new block.
	s.blockEvent(block)

	return nil
}

// blockEvent provides a specific event about a new block in the chain for
// application specific support.
func (s *State) blockEvent(block database.Block) {
	blockJSON, err := json.Marshal(block)
	if err != nil {
		blockJSON = []byte(fmt.Sprintf("%q", err.Error()))
	}

	s.evHandler(`viewer: block: %s`, string(blockJSON))
}
