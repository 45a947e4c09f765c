package state

import (
	"github.com/ardanlabs/ledger/foundation/blockchain/mempool"
	"github.com/ardanlabs/ledger/foundation/blockchain/peer"
)

// SubmitData adds new operator data to the mempool and signals mining.
func (s *State) SubmitData(data string) (mempool.Entry, error) {
	entry := mempool.NewEntry(data)

	n, err := s.mempool.Upsert(entry)
	if err != nil {
		return mempool.Entry{}, err
	}

	s.evHandler("state: SubmitData: entry[%s]: pending[%d]", entry.ID, n)

	if s.Worker != nil {
		s.Worker.SignalStartMining()
	}

	return entry, nil
}

// PeerJoined adds the peer to the broadcast view on behalf of a source.
func (s *State) PeerJoined(pr peer.Peer, source string) bool {
	if pr.Match(s.host) {
		return false
	}

	added := s.knownPeers.Joined(pr, source)
	if added {
		s.evHandler("state: PeerJoined: peer[%s]: source[%s]", pr, source)
	}
	return added
}

// PeerLeft removes the peer from the broadcast view unless another source
// still reports it.
func (s *State) PeerLeft(pr peer.Peer, source string) bool {
	removed := s.knownPeers.Left(pr, source)
	if removed {
		s.evHandler("state: PeerLeft: peer[%s]: source[%s]", pr, source)
	}
	return removed
}

// SetPeerNodeID records the identity a peer reported for itself.
func (s *State) SetPeerNodeID(pr peer.Peer, nodeID string) {
	s.knownPeers.SetNodeID(pr, nodeID)
}
