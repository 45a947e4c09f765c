// Package peer maintains the peer related information such as the set
// of peers in the broadcast view and their status.
package peer

import (
	"sort"
	"sync"
)

// Set of sources that can report a peer as present.
const (
	SourceSeed   = "seed"
	SourceStatus = "status"
	SourceMDNS   = "mdns"
)

// Peer represents information about a Node in the network.
type Peer struct {
	Host string `json:"host"`
}

// New contructs a new peer value.
func New(host string) Peer {
	return Peer{
		Host: host,
	}
}

// Match validates if the specified host matches this node.
func (p Peer) Match(host string) bool {
	return p.Host == host
}

// String implements the Stringer interface.
func (p Peer) String() string {
	return p.Host
}

// =============================================================================

// Status represents information about the status of any given peer.
type Status struct {
	NodeID          string `json:"node_id"`
	LatestBlockID   uint64 `json:"latest_block_id"`
	LatestBlockHash string `json:"latest_block_hash"`
	KnownPeers      []Peer `json:"known_peers"`
}

// Info represents what the set knows about a single peer.
type Info struct {
	Peer    Peer     `json:"peer"`
	NodeID  string   `json:"node_id"`
	Sources []string `json:"sources"`
}

// =============================================================================

type entry struct {
	nodeID  string
	sources map[string]struct{}
}

// PeerSet represents the data representation to maintain a set of peers. A
// peer stays in the set for as long as at least one source reports it.
type PeerSet struct {
	mu  sync.RWMutex
	set map[Peer]*entry
}

// NewPeerSet constructs a new info set to manage node peer information.
func NewPeerSet() *PeerSet {
	return &PeerSet{
		set: make(map[Peer]*entry),
	}
}

// Add adds a peer to the set as a seed.
func (ps *PeerSet) Add(peer Peer) bool {
	return ps.Joined(peer, SourceSeed)
}

// Joined records the source reports the peer as present. It returns true
// if the peer was not in the set before.
func (ps *PeerSet) Joined(peer Peer, source string) bool {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	e, exists := ps.set[peer]
	if !exists {
		e = &entry{sources: make(map[string]struct{})}
		ps.set[peer] = e
	}
	e.sources[source] = struct{}{}

	return !exists
}

// Left records the source no longer reports the peer. The peer is removed
// only when no other source still knows it is present. It returns true if
// the peer was removed.
func (ps *PeerSet) Left(peer Peer, source string) bool {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	e, exists := ps.set[peer]
	if !exists {
		return false
	}

	delete(e.sources, source)
	if len(e.sources) > 0 {
		return false
	}

	delete(ps.set, peer)
	return true
}

// Remove removes a peer from the set regardless of its sources.
func (ps *PeerSet) Remove(peer Peer) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	delete(ps.set, peer)
}

// Contains reports if the peer is in the set.
func (ps *PeerSet) Contains(peer Peer) bool {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	_, exists := ps.set[peer]
	return exists
}

// SetNodeID records the node identity a peer reported.
func (ps *PeerSet) SetNodeID(peer Peer, nodeID string) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if e, exists := ps.set[peer]; exists {
		e.nodeID = nodeID
	}
}

// NodeID returns the node identity known for the peer.
func (ps *PeerSet) NodeID(peer Peer) string {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	if e, exists := ps.set[peer]; exists {
		return e.nodeID
	}
	return ""
}

// Copy returns a list of the known peers, excluding the specified host.
func (ps *PeerSet) Copy(host string) []Peer {
	ps.mu.RLock()
	var peers []Peer
	for peer := range ps.set {
		if !peer.Match(host) {
			peers = append(peers, peer)
		}
	}
	ps.mu.RUnlock()

	sort.Slice(peers, func(i, j int) bool { return peers[i].Host < peers[j].Host })

	return peers
}

// Infos returns what is known about every peer, excluding the specified host.
func (ps *PeerSet) Infos(host string) []Info {
	ps.mu.RLock()
	infos := make([]Info, 0, len(ps.set))
	for peer, e := range ps.set {
		if peer.Match(host) {
			continue
		}

		sources := make([]string, 0, len(e.sources))
		for source := range e.sources {
			sources = append(sources, source)
		}
		sort.Strings(sources)

		infos = append(infos, Info{Peer: peer, NodeID: e.nodeID, Sources: sources})
	}
	ps.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool { return infos[i].Peer.Host < infos[j].Peer.Host })

	return infos
}
