package gossip_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/gossip"
	"github.com/ardanlabs/ledger/foundation/blockchain/hashing"
	"github.com/ardanlabs/ledger/foundation/blockchain/state"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

const self = "node-a"

type sent struct {
	topic string
	data  []byte
}

type fakeTransport struct {
	mu   sync.Mutex
	sent []sent
}

func (ft *fakeTransport) Broadcast(ctx context.Context, topic string, data []byte) error {
	ft.mu.Lock()
	defer ft.mu.Unlock()

	ft.sent = append(ft.sent, sent{topic: topic, data: data})
	return nil
}

type events struct {
	mu   sync.Mutex
	msgs []string
}

func (e *events) handler(v string, args ...any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.msgs = append(e.msgs, v)
}

func (e *events) contains(prefix string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, msg := range e.msgs {
		if strings.HasPrefix(msg, prefix) {
			return true
		}
	}
	return false
}

func newProtocol(t *testing.T, queue int) (*gossip.Protocol, *state.State, *fakeTransport, *events) {
	evts := events{}

	st, err := state.New(state.Config{
		NodeID:    self,
		Host:      "localhost:9080",
		Target:    hashing.DefaultTarget,
		EvHandler: evts.handler,
	})
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct the state: %v", failed, err)
	}

	ft := fakeTransport{}

	p, err := gossip.New(gossip.Config{
		Ledger:        st,
		Transport:     &ft,
		ResponseQueue: queue,
		EvHandler:     evts.handler,
	})
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct the protocol: %v", failed, err)
	}

	return p, st, &ft, &evts
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

func encode(t *testing.T, msg any) []byte {
	data, err := gossip.Encode(msg)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to encode %T: %v", failed, msg, err)
	}
	return data
}

// =============================================================================

func Test_Classify(t *testing.T) {
	block := mine(t, database.Genesis(), "hello")

	type table struct {
		name string
		data string
		exp  any
	}

	tt := []table{
		{name: "legacy-response", data: `{"blocks":[],"receiver":"node-b"}`, exp: gossip.ChainResponse{Blocks: database.Chain{}, Receiver: "node-b"}},
		{name: "legacy-request", data: `{"from_peer_id":"node-b"}`, exp: gossip.ChainRequest{FromPeerID: "node-b"}},
		{name: "legacy-response-wins", data: `{"blocks":[],"receiver":"x","from_peer_id":"y"}`, exp: gossip.ChainResponse{Blocks: database.Chain{}, Receiver: "x"}},
		{name: "legacy-zero-block", data: `{"id":0,"hash":"","previous_hash":"","timestamp":0,"data":"","nonce":0}`, exp: database.Block{}},
		{name: "tagged-block", data: string(encode(t, block)), exp: block},
		{name: "tagged-request", data: string(encode(t, gossip.ChainRequest{FromPeerID: "node-c"})), exp: gossip.ChainRequest{FromPeerID: "node-c"}},
	}

	t.Log("Given the need to classify inbound payloads.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling %s.", testID, tst.name)
			{
				f := func(t *testing.T) {
					got, err := gossip.Decode([]byte(tst.data))
					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to classify the payload: %v", failed, testID, err)
					}

					gotJSON, _ := json.Marshal(got)
					expJSON, _ := json.Marshal(tst.exp)
					if string(gotJSON) != string(expJSON) {
						t.Logf("\t%s\tTest %d:\tgot: %T %s", failed, testID, got, gotJSON)
						t.Logf("\t%s\tTest %d:\texp: %T %s", failed, testID, tst.exp, expJSON)
						t.Fatalf("\t%s\tTest %d:\tShould classify the payload.", failed, testID)
					}

					if _, ok := tst.exp.(database.Block); ok {
						if _, ok := got.(database.Block); !ok {
							t.Fatalf("\t%s\tTest %d:\tShould classify as a block, got %T.", failed, testID, got)
						}
					}
					t.Logf("\t%s\tTest %d:\tShould classify the payload.", success, testID)
				}

				t.Run(tst.name, f)
			}
		}

		t.Logf("\tTest %d:\tWhen handling garbage.", len(tt))
		{
			for _, data := range []string{`not json`, `{}`, `{"id":1}`, `{"kind":"block","payload":{"id":1}}`} {
				if _, err := gossip.Decode([]byte(data)); err == nil {
					t.Fatalf("\t%s\tTest %d:\tShould fail to classify %s.", failed, len(tt), data)
				}
			}
			t.Logf("\t%s\tTest %d:\tShould fail to classify garbage.", success, len(tt))
		}
	}
}

func Test_DeliverChainRequest(t *testing.T) {
	t.Log("Given the need to answer chain requests.")
	{
		p, _, _, _ := newProtocol(t, 1)

		t.Logf("\tTest 0:\tWhen the request targets this node.")
		{
			if err := p.Deliver(gossip.TopicChains, encode(t, gossip.ChainRequest{FromPeerID: self}), "node-b"); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould deliver the message: %v", failed, err)
			}

			select {
			case resp := <-p.Responses():
				if resp.Receiver != "node-b" || resp.Blocks.Len() != 1 {
					t.Fatalf("\t%s\tTest 0:\tShould address the local chain to the sender: %+v", failed, resp)
				}
				t.Logf("\t%s\tTest 0:\tShould address the local chain to the sender.", success)
			default:
				t.Fatalf("\t%s\tTest 0:\tShould queue a response.", failed)
			}
		}

		t.Logf("\tTest 1:\tWhen the request targets another node.")
		{
			p.Deliver(gossip.TopicChains, []byte(`{"from_peer_id":"node-c"}`), "node-b")

			select {
			case resp := <-p.Responses():
				t.Fatalf("\t%s\tTest 1:\tShould not queue a response: %+v", failed, resp)
			default:
				t.Logf("\t%s\tTest 1:\tShould not queue a response.", success)
			}
		}

		t.Logf("\tTest 2:\tWhen the response queue is full.")
		{
			req := encode(t, gossip.ChainRequest{FromPeerID: self})
			for i := 0; i < 3; i++ {
				if err := p.Deliver(gossip.TopicChains, req, "node-b"); err != nil {
					t.Fatalf("\t%s\tTest 2:\tShould not block or fail: %v", failed, err)
				}
			}

			if n := len(p.Responses()); n != 1 {
				t.Fatalf("\t%s\tTest 2:\tShould drop responses beyond capacity, got %d.", failed, n)
			}
			t.Logf("\t%s\tTest 2:\tShould drop responses beyond capacity.", success)
		}
	}
}

func Test_DeliverChainResponse(t *testing.T) {
	g := database.Genesis()
	b1 := mine(t, g, "one")
	longer := database.Chain{g, b1, mine(t, b1, "two")}

	t.Log("Given the need to resolve chains sent by peers.")
	{
		p, st, _, evts := newProtocol(t, 10)

		t.Logf("\tTest 0:\tWhen the response is addressed to another node.")
		{
			resp := gossip.ChainResponse{Blocks: longer, Receiver: "node-c"}
			if err := p.Deliver(gossip.TopicChains, encode(t, resp), "node-b"); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould deliver the message: %v", failed, err)
			}

			if st.RetrieveChain().Len() != 1 || evts.contains("state: ResolveChain") {
				t.Fatalf("\t%s\tTest 0:\tShould ignore the response.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould ignore the response.", success)
		}

		t.Logf("\tTest 1:\tWhen the longer response is addressed to this node.")
		{
			resp := gossip.ChainResponse{Blocks: longer, Receiver: self}
			if err := p.Deliver(gossip.TopicChains, encode(t, resp), "node-b"); err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould deliver the message: %v", failed, err)
			}

			if got := st.RetrieveChain(); got.Len() != 3 || got.Latest() != longer.Latest() {
				t.Fatalf("\t%s\tTest 1:\tShould adopt the longer chain.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould adopt the longer chain.", success)
		}
	}
}

func Test_DeliverBlock(t *testing.T) {
	t.Log("Given the need to append blocks sent by peers.")
	{
		p, st, _, _ := newProtocol(t, 10)
		block := mine(t, database.Genesis(), "hello")

		t.Logf("\tTest 0:\tWhen a valid block arrives in legacy form.")
		{
			data, _ := json.Marshal(block)
			if err := p.Deliver(gossip.TopicBlocks, data, "node-b"); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould deliver the message: %v", failed, err)
			}

			if st.RetrieveLatestBlock() != block {
				t.Fatalf("\t%s\tTest 0:\tShould append the block.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould append the block.", success)
		}

		t.Logf("\tTest 1:\tWhen garbage or a stale block arrives.")
		{
			if err := p.Deliver(gossip.TopicBlocks, []byte("garbage"), "node-b"); err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould drop garbage silently: %v", failed, err)
			}
			if err := p.Deliver(gossip.TopicBlocks, encode(t, block), "node-b"); err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould drop the stale block silently: %v", failed, err)
			}

			if st.RetrieveChain().Len() != 2 {
				t.Fatalf("\t%s\tTest 1:\tShould leave the chain unchanged.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould leave the chain unchanged.", success)
		}

		t.Logf("\tTest 2:\tWhen a message arrives on an unknown topic.")
		{
			if err := p.Deliver("other", encode(t, block), "node-b"); !errors.Is(err, gossip.ErrUnknownTopic) {
				t.Fatalf("\t%s\tTest 2:\tShould reject the topic: %v", failed, err)
			}
			t.Logf("\t%s\tTest 2:\tShould reject the topic.", success)
		}
	}
}

func Test_Publish(t *testing.T) {
	t.Log("Given the need to publish messages to peers.")
	{
		p, _, ft, _ := newProtocol(t, 10)

		t.Logf("\tTest 0:\tWhen requesting a chain and sending a block.")
		{
			if err := p.RequestChain(context.Background(), "node-b"); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould publish the request: %v", failed, err)
			}
			if err := p.SendBlock(context.Background(), database.Genesis()); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould publish the block: %v", failed, err)
			}

			if len(ft.sent) != 2 || ft.sent[0].topic != gossip.TopicChains || ft.sent[1].topic != gossip.TopicBlocks {
				t.Fatalf("\t%s\tTest 0:\tShould publish on the right topics.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould publish on the right topics.", success)

			msg, err := gossip.Decode(ft.sent[0].data)
			if err != nil || msg != (gossip.ChainRequest{FromPeerID: "node-b"}) {
				t.Fatalf("\t%s\tTest 0:\tShould round trip the request: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould round trip the request.", success)
		}
	}
}
