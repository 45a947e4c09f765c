package network_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/ardanlabs/ledger/foundation/blockchain/network"
	"github.com/ardanlabs/ledger/foundation/blockchain/peer"
	"go.uber.org/multierr"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

type received struct {
	path   string
	nodeID string
	body   string
}

type node struct {
	mu       sync.Mutex
	received []received
	failures int
}

func (n *node) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.failures > 0 {
		n.failures--
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	if r.URL.Path == "/v1/node/status" {
		json.NewEncoder(w).Encode(peer.Status{NodeID: "node-b", LatestBlockID: 3})
		return
	}

	body, _ := io.ReadAll(r.Body)
	n.received = append(n.received, received{path: r.URL.Path, nodeID: r.Header.Get(network.HeaderNodeID), body: string(body)})
	w.WriteHeader(http.StatusNoContent)
}

func (n *node) snapshot() []received {
	n.mu.Lock()
	defer n.mu.Unlock()

	return append([]received(nil), n.received...)
}

func host(srv *httptest.Server) peer.Peer {
	return peer.New(strings.TrimPrefix(srv.URL, "http://"))
}

// =============================================================================

func Test_Broadcast(t *testing.T) {
	t.Log("Given the need to send gossip to every peer.")
	{
		var good, flaky node
		flaky.failures = 1

		goodSrv := httptest.NewServer(&good)
		defer goodSrv.Close()

		flakySrv := httptest.NewServer(&flaky)
		defer flakySrv.Close()

		deadSrv := httptest.NewServer(http.NotFoundHandler())
		deadSrv.Close()

		peers := peer.NewPeerSet()
		peers.Add(host(goodSrv))
		peers.Add(host(flakySrv))

		net := network.New(network.Config{
			NodeID:     "node-a",
			Host:       "localhost:9080",
			KnownPeers: peers,
			MaxRetries: 2,
		})

		t.Logf("\tTest 0:\tWhen every peer is reachable.")
		{
			if err := net.Broadcast(context.Background(), "blocks", []byte(`{"kind":"block"}`)); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould deliver to every peer: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould deliver to every peer.", success)

			for _, n := range []*node{&good, &flaky} {
				rcv := n.snapshot()
				if len(rcv) != 1 {
					t.Fatalf("\t%s\tTest 0:\tShould deliver exactly once, got %d.", failed, len(rcv))
				}

				got := rcv[0]
				if got.path != "/v1/node/gossip/blocks" || got.nodeID != "node-a" || got.body != `{"kind":"block"}` {
					t.Fatalf("\t%s\tTest 0:\tShould post to the topic with the sender id: %+v", failed, got)
				}
			}
			t.Logf("\t%s\tTest 0:\tShould post to the topic with the sender id after retrying.", success)
		}

		t.Logf("\tTest 1:\tWhen a peer is down.")
		{
			peers.Add(host(deadSrv))

			err := net.Broadcast(context.Background(), "chains", []byte(`{}`))
			if n := len(multierr.Errors(err)); n != 1 {
				t.Fatalf("\t%s\tTest 1:\tShould report one failed peer, got %d: %v", failed, n, err)
			}
			t.Logf("\t%s\tTest 1:\tShould report one failed peer.", success)

			if len(good.snapshot()) != 2 {
				t.Fatalf("\t%s\tTest 1:\tShould still deliver to the reachable peers.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould still deliver to the reachable peers.", success)
		}
	}
}

func Test_QueryStatus(t *testing.T) {
	t.Log("Given the need to ask a peer for its status.")
	{
		var n node
		srv := httptest.NewServer(&n)
		defer srv.Close()

		net := network.New(network.Config{NodeID: "node-a", KnownPeers: peer.NewPeerSet()})

		t.Logf("\tTest 0:\tWhen the peer answers.")
		{
			status, err := net.QueryStatus(context.Background(), host(srv))
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould get the status: %v", failed, err)
			}

			if status.NodeID != "node-b" || status.LatestBlockID != 3 {
				t.Fatalf("\t%s\tTest 0:\tShould decode the status: %+v", failed, status)
			}
			t.Logf("\t%s\tTest 0:\tShould decode the status.", success)
		}
	}
}
