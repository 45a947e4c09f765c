package peer_test

import (
	"testing"

	"github.com/ardanlabs/ledger/foundation/blockchain/peer"
)

func Test_CRUD(t *testing.T) {
	type table struct {
		name  string
		peers []peer.Peer
	}

	tt := []table{
		{
			name:  "basic",
			peers: []peer.Peer{{Host: "host1"}, {Host: "host2"}, {Host: "host3"}},
		},
	}

	for _, tst := range tt {
		f := func(t *testing.T) {
			ps := peer.NewPeerSet()

			for _, peer := range tst.peers {
				if !ps.Add(peer) {
					t.Fatalf("Test %s:\tShould add a new peer %s.", tst.name, peer)
				}
			}

			peers := ps.Copy("")
			if len(peers) != len(tst.peers) {
				t.Logf("Test %s:\tgot: %d", tst.name, len(peers))
				t.Logf("Test %s:\texp: %d", tst.name, len(tst.peers))
				t.Fatalf("Test %s:\tShould get back the right peers.", tst.name)
			}

			peers = ps.Copy("host2")
			if len(peers) != len(tst.peers)-1 {
				t.Logf("Test %s:\tgot: %d", tst.name, len(peers))
				t.Logf("Test %s:\texp: %d", tst.name, len(tst.peers)-1)
				t.Fatalf("Test %s:\tShould get back the right peers.", tst.name)
			}

			ps.Remove(tst.peers[0])
			if ps.Contains(tst.peers[0]) {
				t.Fatalf("Test %s:\tShould be able to remove a peer.", tst.name)
			}
		}

		t.Run(tst.name, f)
	}
}

func Test_Sources(t *testing.T) {
	ps := peer.NewPeerSet()
	pr := peer.New("host1")

	if !ps.Joined(pr, peer.SourceMDNS) {
		t.Fatalf("Should report a new peer joining the view.")
	}

	if ps.Joined(pr, peer.SourceStatus) {
		t.Fatalf("Should not report a known peer as new.")
	}

	ps.SetNodeID(pr, "0xabc")
	if id := ps.NodeID(pr); id != "0xabc" {
		t.Fatalf("Should remember the node id, got %q.", id)
	}

	if ps.Left(pr, peer.SourceMDNS) {
		t.Fatalf("Should keep a peer another source still reports.")
	}

	infos := ps.Infos("")
	if len(infos) != 1 || len(infos[0].Sources) != 1 || infos[0].Sources[0] != peer.SourceStatus {
		t.Fatalf("Should list the remaining source, got %+v.", infos)
	}

	if !ps.Left(pr, peer.SourceStatus) {
		t.Fatalf("Should remove a peer once no source reports it.")
	}

	if ps.Contains(pr) || ps.Left(pr, peer.SourceStatus) {
		t.Fatalf("Should not know the peer anymore.")
	}
}
