package state

import (
	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/hashing"
	"github.com/ardanlabs/ledger/foundation/blockchain/mempool"
	"github.com/ardanlabs/ledger/foundation/blockchain/peer"
)

// RetrieveNodeID returns the identity of this node.
func (s *State) RetrieveNodeID() string {
	return s.nodeID
}

// RetrieveHost returns a copy of host information.
func (s *State) RetrieveHost() string {
	return s.host
}

// RetrieveTarget returns the difficulty target blocks must satisfy.
func (s *State) RetrieveTarget() hashing.Target {
	return s.target
}

// RetrieveChain returns a snapshot of the chain.
func (s *State) RetrieveChain() database.Chain {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.chain.Copy()
}

// RetrieveLatestBlock returns a copy the current latest block.
func (s *State) RetrieveLatestBlock() database.Block {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.chain.Latest()
}

// RetrieveMempool returns a copy of the mempool in submission order.
func (s *State) RetrieveMempool() []mempool.Entry {
	return s.mempool.Copy()
}

// RetrieveKnownPeers retrieves a copy of the broadcast view.
func (s *State) RetrieveKnownPeers() []peer.Peer {
	return s.knownPeers.Copy(s.host)
}

// RetrieveKnownPeerInfos retrieves what is known about every peer in the view.
func (s *State) RetrieveKnownPeerInfos() []peer.Info {
	return s.knownPeers.Infos(s.host)
}

// RetrieveStatus returns the status of this node for peers.
func (s *State) RetrieveStatus() peer.Status {
	latest := s.RetrieveLatestBlock()

	return peer.Status{
		NodeID:          s.nodeID,
		LatestBlockID:   latest.ID,
		LatestBlockHash: latest.Hash,
		KnownPeers:      s.RetrieveKnownPeers(),
	}
}

// QueryMempoolLength returns the current length of the mempool.
func (s *State) QueryMempoolLength() int {
	return s.mempool.Count()
}

// QueryOldestEntry returns the entry that should be mined next.
func (s *State) QueryOldestEntry() (mempool.Entry, bool) {
	return s.mempool.PickOldest()
}

// QueryPeerByNodeID locates the peer in the view with the specified identity.
func (s *State) QueryPeerByNodeID(nodeID string) (peer.Peer, bool) {
	for _, info := range s.knownPeers.Infos(s.host) {
		if info.NodeID == nodeID {
			return info.Peer, true
		}
	}
	return peer.Peer{}, false
}
