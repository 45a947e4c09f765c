// Package private maintains the group of handlers for node to node access.
package private

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	v1 "github.com/ardanlabs/ledger/business/web/v1"
	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/gossip"
	"github.com/ardanlabs/ledger/foundation/blockchain/network"
	"github.com/ardanlabs/ledger/foundation/blockchain/state"
	"github.com/ardanlabs/ledger/foundation/web"
	"go.uber.org/zap"
)

// maxMessageSize bounds the size of a gossip message.
const maxMessageSize = 16 << 20

// Handlers manages the set of node to node endpoints.
type Handlers struct {
	Log    *zap.SugaredLogger
	State  *state.State
	Gossip *gossip.Protocol
}

// ReceiveGossip takes a message published by a peer on a topic and hands it to the
// protocol. Messages the node can't use are dropped by the protocol, so a
// peer only gets an error back for a topic that doesn't exist.
func (h Handlers) ReceiveGossip(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	topic := web.Param(r, "topic")
	source := r.Header.Get(network.HeaderNodeID)

	data, err := io.ReadAll(io.LimitReader(r.Body, maxMessageSize))
	if err != nil {
		return fmt.Errorf("unable to read payload: %w", err)
	}

	h.Log.Infow("gossip", "traceid", v.TraceID, "topic", topic, "source", source, "size", len(data))

	if err := h.Gossip.Deliver(topic, data, source); err != nil {
		switch {
		case errors.Is(err, gossip.ErrUnknownTopic):
			return v1.NewRequestError(err, http.StatusNotFound)

		case errors.Is(err, database.ErrChainsInvalid):
			return web.NewShutdownError(err.Error())
		}

		return err
	}

	return web.Respond(ctx, w, nil, http.StatusNoContent)
}

// Status returns the current status of the node.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.RetrieveStatus(), http.StatusOK)
}
