// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"errors"
	"net/http"
	"time"

	v1 "github.com/ardanlabs/ledger/business/web/v1"
	"github.com/ardanlabs/ledger/foundation/blockchain/gossip"
	"github.com/ardanlabs/ledger/foundation/blockchain/state"
	"github.com/ardanlabs/ledger/foundation/events"
	"github.com/ardanlabs/ledger/foundation/nameservice"
	"github.com/ardanlabs/ledger/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of operator endpoints.
type Handlers struct {
	Log    *zap.SugaredLogger
	State  *state.State
	Gossip *gossip.Protocol
	NS     *nameservice.NameService
	WS     websocket.Upgrader
	Evts   *events.Events
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return err
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// Peers returns the broadcast view of this node.
func (h Handlers) Peers(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	infos := h.State.RetrieveKnownPeerInfos()

	peers := make([]peerInfo, len(infos))
	for i, info := range infos {
		var name string
		if info.NodeID != "" {
			name = h.NS.Lookup(info.NodeID)
		}
		peers[i] = toPeerInfo(info, name)
	}

	return web.Respond(ctx, w, peers, http.StatusOK)
}

// Chain returns the local chain.
func (h Handlers) Chain(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.RetrieveChain(), http.StatusOK)
}

// SubmitBlock adds the data to the mempool so a block gets mined for it.
func (h Handlers) SubmitBlock(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var sb submitBlock
	if err := web.Decode(r, &sb); err != nil {
		return v1.NewRequestError(err, http.StatusBadRequest)
	}

	entry, err := h.State.SubmitData(sb.Data)
	if err != nil {
		return v1.NewRequestError(err, http.StatusBadRequest)
	}

	h.Log.Infow("submit block", "traceid", v.TraceID, "entry", entry.ID)

	return web.Respond(ctx, w, entry, http.StatusAccepted)
}

// SyncChain asks a peer for its chain. Without a peer id the first
// reachable peer is asked.
func (h Handlers) SyncChain(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var sc syncChain
	if err := web.Decode(r, &sc); err != nil {
		return v1.NewRequestError(err, http.StatusBadRequest)
	}

	if sc.PeerID == "" {
		h.State.Resync()
		return web.Respond(ctx, w, status{Status: "sync signaled"}, http.StatusAccepted)
	}

	if sc.PeerID == h.State.RetrieveNodeID() {
		return v1.NewRequestError(errors.New("can't sync with this node"), http.StatusBadRequest)
	}

	if _, found := h.State.QueryPeerByNodeID(sc.PeerID); !found {
		return v1.NewRequestError(errors.New("peer not in the broadcast view"), http.StatusNotFound)
	}

	if err := h.Gossip.RequestChain(ctx, sc.PeerID); err != nil {
		return v1.NewRequestError(err, http.StatusBadGateway)
	}

	return web.Respond(ctx, w, status{Status: "chain requested"}, http.StatusAccepted)
}

// Mempool returns the data waiting to be mined.
func (h Handlers) Mempool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.RetrieveMempool(), http.StatusOK)
}
