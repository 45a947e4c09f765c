// Package state is the core API for the ledger node. It owns the canonical
// chain and serializes every change made to it.
package state

import (
	"errors"
	"sync"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/hashing"
	"github.com/ardanlabs/ledger/foundation/blockchain/mempool"
	"github.com/ardanlabs/ledger/foundation/blockchain/peer"
)

// EventHandler defines a function that is called when events
// occur in the processing of blocks.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by any
// package providing support for mining, peer updates, and chain sync.
type Worker interface {
	Shutdown()
	SignalStartMining()
	SignalCancelMining() (done func())
	SignalSync()
}

// =============================================================================

// Config represents the configuration required to start
// the ledger node.
type Config struct {
	NodeID     string
	Host       string
	Target     hashing.Target
	KnownPeers *peer.PeerSet
	EvHandler  EventHandler
}

// State manages the ledger.
type State struct {
	mu sync.RWMutex

	nodeID    string
	host      string
	target    hashing.Target
	evHandler EventHandler

	chain      database.Chain
	knownPeers *peer.PeerSet
	mempool    *mempool.Mempool

	Worker Worker
}

// New constructs a new ledger holding only the genesis block.
func New(cfg Config) (*State, error) {
	if cfg.NodeID == "" {
		return nil, errors.New("node id is required")
	}

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	target := cfg.Target
	if target == "" {
		target = hashing.DefaultTarget
	}

	knownPeers := cfg.KnownPeers
	if knownPeers == nil {
		knownPeers = peer.NewPeerSet()
	}

	// Create the State to provide support for managing the ledger.
	state := State{
		nodeID:    cfg.NodeID,
		host:      cfg.Host,
		target:    target,
		evHandler: ev,

		chain:      database.NewChain(),
		knownPeers: knownPeers,
		mempool:    mempool.New(),
	}

	// The Worker is not set here. The call to worker.Run will assign itself
	// and start everything up and running for the node.

	return &state, nil
}

// Shutdown cleanly brings the node down.
func (s *State) Shutdown() error {
	s.evHandler("state: shutdown: started")
	defer s.evHandler("state: shutdown: completed")

	// Stop all ledger writing activity.
	if s.Worker != nil {
		s.Worker.Shutdown()
	}

	return nil
}

// Resync asks the worker to request the chain from a peer.
func (s *State) Resync() {
	if s.Worker != nil {
		s.Worker.SignalSync()
	}
}

// cancelMining stops an in-flight mining operation once the chain changed
// under it. The mining goroutine waits for done before it starts over.
func (s *State) cancelMining() {
	if s.Worker == nil {
		return
	}

	done := s.Worker.SignalCancelMining()
	s.evHandler("state: signal runMiningOperation to terminate")
	done()
}
