package state

import (
	"fmt"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
)

// ResolveChain runs the fork-choice rule between the local chain and a chain
// received from a peer and keeps the winner. The only error returned wraps
// database.ErrChainsInvalid, which means the local state can't be trusted.
func (s *State) ResolveChain(remote database.Chain) error {
	s.evHandler("state: ResolveChain: started: remote[%d]", remote.Len())
	defer s.evHandler("state: ResolveChain: completed")

	replaced, err := s.resolveChain(remote)
	if err != nil {
		return err
	}

	if replaced {
		s.cancelMining()
	}

	return nil
}

// ReplaceChain swaps the local chain for the specified chain. The chain must
// be valid.
func (s *State) ReplaceChain(chain database.Chain) error {
	if err := database.ValidateChain(chain, s.target, nil); err != nil {
		return fmt.Errorf("replace chain: %w", err)
	}

	s.mu.Lock()
	s.replaceChain(chain)
	s.mu.Unlock()

	s.cancelMining()

	return nil
}

// =============================================================================

func (s *State) resolveChain(remote database.Chain) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	local := s.chain

	winner, err := database.ChooseChain(local, remote, s.target, s.evHandler)
	if err != nil {
		s.evHandler("state: ResolveChain: ERROR: %s", err)
		return false, err
	}

	if winner.Len() == local.Len() && winner.Latest() == local.Latest() {
		s.evHandler("state: ResolveChain: keeping local chain: len[%d]", local.Len())
		return false, nil
	}

	s.replaceChain(winner)

	return true, nil
}

// replaceChain must be called with the lock held.
func (s *State) replaceChain(chain database.Chain) {
	s.chain = chain.Copy()

	s.evHandler("state: replaceChain: chain replaced: len[%d]: tip[%s]", s.chain.Len(), s.chain.Latest())
	s.evHandler(`viewer: chain: {"len":%d,"tip":%q}`, s.chain.Len(), s.chain.Latest().Hash)
}
