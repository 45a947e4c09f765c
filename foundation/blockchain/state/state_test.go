package state_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/hashing"
	"github.com/ardanlabs/ledger/foundation/blockchain/peer"
	"github.com/ardanlabs/ledger/foundation/blockchain/state"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

const host = "http://localhost:9080"

type fakeWorker struct {
	mu      sync.Mutex
	mining  int
	cancels int
	syncs   int
}

func (w *fakeWorker) Shutdown() {}

func (w *fakeWorker) SignalStartMining() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.mining++
}

func (w *fakeWorker) SignalCancelMining() func() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cancels++
	return func() {}
}

func (w *fakeWorker) SignalSync() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.syncs++
}

func newState(t *testing.T) (*state.State, *fakeWorker) {
	st, err := state.New(state.Config{
		NodeID:     "node-a",
		Host:       host,
		Target:     hashing.DefaultTarget,
		KnownPeers: peer.NewPeerSet(),
	})
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct the state: %v", failed, err)
	}

	w := fakeWorker{}
	st.Worker = &w

	return st, &w
}

func mine(t *testing.T, prev database.Block, data string) database.Block {
	block, err := database.POW(context.Background(), database.POWArgs{
		PrevBlock: prev,
		Data:      data,
		Target:    hashing.DefaultTarget,
	})
	if err != nil {
		t.Fatalf("\t%s\tShould be able to mine %q: %v", failed, data, err)
	}
	return block
}

// =============================================================================

func Test_ProposedBlock(t *testing.T) {
	t.Log("Given the need to append blocks proposed by peers.")
	{
		st, w := newState(t)
		block := mine(t, database.Genesis(), "hello")

		t.Logf("\tTest 0:\tWhen the block follows the tip.")
		{
			if err := st.ProcessProposedBlock(block); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould accept the block: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould accept the block.", success)

			if n := st.RetrieveChain().Len(); n != 2 {
				t.Fatalf("\t%s\tTest 0:\tShould have a chain of length 2, got %d.", failed, n)
			}
			t.Logf("\t%s\tTest 0:\tShould have a chain of length 2.", success)

			if w.cancels != 1 {
				t.Fatalf("\t%s\tTest 0:\tShould cancel mining on the stale tip.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould cancel mining on the stale tip.", success)
		}

		t.Logf("\tTest 1:\tWhen the same block is proposed again.")
		{
			if err := st.ProcessProposedBlock(block); !errors.Is(err, database.ErrPreviousHash) {
				t.Fatalf("\t%s\tTest 1:\tShould reject the duplicate: %v", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould reject the duplicate.", success)

			if n := st.RetrieveChain().Len(); n != 2 {
				t.Fatalf("\t%s\tTest 1:\tShould leave the chain unchanged, got %d.", failed, n)
			}
			t.Logf("\t%s\tTest 1:\tShould leave the chain unchanged.", success)
		}

		t.Logf("\tTest 2:\tWhen a tampered block is proposed.")
		{
			next := mine(t, block, "world")
			next.Data = "tampered"

			if err := st.ProcessProposedBlock(next); !errors.Is(err, database.ErrHashMismatch) {
				t.Fatalf("\t%s\tTest 2:\tShould reject the block: %v", failed, err)
			}
			t.Logf("\t%s\tTest 2:\tShould reject the block.", success)
		}
	}
}

func Test_MineNewBlock(t *testing.T) {
	t.Log("Given the need to mine submitted data.")
	{
		st, w := newState(t)

		t.Logf("\tTest 0:\tWhen data is submitted and mined.")
		{
			entry, err := st.SubmitData("hello")
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to submit data: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to submit data.", success)

			if w.mining != 1 {
				t.Fatalf("\t%s\tTest 0:\tShould signal mining.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould signal mining.", success)

			block, err := st.MineNewBlock(context.Background(), entry)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to mine: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to mine: %s", success, block)

			if st.RetrieveLatestBlock() != block || st.QueryMempoolLength() != 0 {
				t.Fatalf("\t%s\tTest 0:\tShould append the block and drain the mempool.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould append the block and drain the mempool.", success)

			if err := database.ValidateChain(st.RetrieveChain(), st.RetrieveTarget(), nil); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould hold a valid chain: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould hold a valid chain.", success)
		}

		t.Logf("\tTest 1:\tWhen empty data is submitted.")
		{
			if _, err := st.SubmitData(""); err == nil {
				t.Fatalf("\t%s\tTest 1:\tShould reject empty data.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould reject empty data.", success)
		}
	}
}

func Test_ResolveChain(t *testing.T) {
	g := database.Genesis()

	localBlock := mine(t, g, "A")
	remoteBlock := mine(t, g, "B")

	tie := database.Chain{g, remoteBlock}
	longer := database.Chain{g, remoteBlock, mine(t, remoteBlock, "C")}

	broken := longer.Copy()
	broken[1].Data = "forged"

	t.Log("Given the need to converge on the longest valid chain.")
	{
		st, w := newState(t)
		if err := st.ProcessProposedBlock(localBlock); err != nil {
			t.Fatalf("\t%s\tShould accept the local block: %v", failed, err)
		}
		cancels := w.cancels

		t.Logf("\tTest 0:\tWhen the remote chain has the same length.")
		{
			if err := st.ResolveChain(tie); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould resolve: %v", failed, err)
			}

			if st.RetrieveLatestBlock() != localBlock || w.cancels != cancels {
				t.Fatalf("\t%s\tTest 0:\tShould keep the local chain.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould keep the local chain.", success)
		}

		t.Logf("\tTest 1:\tWhen the remote chain is invalid.")
		{
			if err := st.ResolveChain(broken); err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould resolve: %v", failed, err)
			}

			if st.RetrieveLatestBlock() != localBlock {
				t.Fatalf("\t%s\tTest 1:\tShould keep the local chain.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould keep the local chain.", success)
		}

		t.Logf("\tTest 2:\tWhen the remote chain is longer.")
		{
			if err := st.ResolveChain(longer); err != nil {
				t.Fatalf("\t%s\tTest 2:\tShould resolve: %v", failed, err)
			}

			got := st.RetrieveChain()
			if got.Len() != 3 || got.Latest() != longer.Latest() {
				t.Fatalf("\t%s\tTest 2:\tShould adopt the remote chain.", failed)
			}
			t.Logf("\t%s\tTest 2:\tShould adopt the remote chain.", success)

			if w.cancels != cancels+1 {
				t.Fatalf("\t%s\tTest 2:\tShould cancel mining after the switch.", failed)
			}
			t.Logf("\t%s\tTest 2:\tShould cancel mining after the switch.", success)

			longer[2].Data = "mutated"
			if st.RetrieveLatestBlock().Data != "C" {
				t.Fatalf("\t%s\tTest 2:\tShould not share memory with the remote chain.", failed)
			}
			t.Logf("\t%s\tTest 2:\tShould not share memory with the remote chain.", success)
		}
	}
}

func Test_Peers(t *testing.T) {
	t.Log("Given the need to track the broadcast view.")
	{
		st, _ := newState(t)
		pr := peer.New("http://localhost:9180")

		t.Logf("\tTest 0:\tWhen a peer joins from two sources and leaves one.")
		{
			if st.PeerJoined(peer.New(host), peer.SourceMDNS) {
				t.Fatalf("\t%s\tTest 0:\tShould never add itself.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould never add itself.", success)

			st.PeerJoined(pr, peer.SourceMDNS)
			st.PeerJoined(pr, peer.SourceSeed)
			st.SetPeerNodeID(pr, "node-b")

			if st.PeerLeft(pr, peer.SourceMDNS) {
				t.Fatalf("\t%s\tTest 0:\tShould keep a peer still known by another source.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould keep a peer still known by another source.", success)

			if got, ok := st.QueryPeerByNodeID("node-b"); !ok || got != pr {
				t.Fatalf("\t%s\tTest 0:\tShould locate the peer by node id.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould locate the peer by node id.", success)

			if !st.PeerLeft(pr, peer.SourceSeed) || len(st.RetrieveKnownPeers()) != 0 {
				t.Fatalf("\t%s\tTest 0:\tShould remove the peer once no source knows it.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould remove the peer once no source knows it.", success)
		}
	}
}
