// Package network provides the HTTP transport nodes use to gossip with
// their peers.
package network

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/peer"
	"github.com/cenkalti/backoff"
	"go.uber.org/multierr"
)

// HeaderNodeID carries the identity of the sending node.
const HeaderNodeID = "X-Node-ID"

const baseURL = "http://%s/v1/node"

// Config represents the configuration required to construct the network.
type Config struct {
	NodeID     string
	Host       string
	KnownPeers *peer.PeerSet
	Client     *http.Client
	MaxRetries uint64
	EvHandler  func(v string, args ...any)
}

// Network sends messages to the peers in the broadcast view.
type Network struct {
	nodeID     string
	host       string
	knownPeers *peer.PeerSet
	client     *http.Client
	maxRetries uint64
	evHandler  func(v string, args ...any)
}

// New constructs a network for the specified view.
func New(cfg Config) *Network {
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	return &Network{
		nodeID:     cfg.NodeID,
		host:       cfg.Host,
		knownPeers: cfg.KnownPeers,
		client:     client,
		maxRetries: cfg.MaxRetries,
		evHandler:  ev,
	}
}

// Broadcast sends the data on the topic to every peer in the view. Every
// peer is tried and the failures are reported together.
func (n *Network) Broadcast(ctx context.Context, topic string, data []byte) error {
	peers := n.knownPeers.Copy(n.host)

	n.evHandler("network: Broadcast: started: topic[%s]: peers[%d]", topic, len(peers))
	defer n.evHandler("network: Broadcast: completed: topic[%s]", topic)

	var mu sync.Mutex
	var errs error

	var wg sync.WaitGroup
	wg.Add(len(peers))

	for _, pr := range peers {
		go func(pr peer.Peer) {
			defer wg.Done()

			url := fmt.Sprintf("%s/gossip/%s", fmt.Sprintf(baseURL, pr.Host), topic)
			if err := n.send(ctx, http.MethodPost, url, data, nil); err != nil {
				n.evHandler("network: Broadcast: peer[%s]: WARNING: %s", pr, err)

				mu.Lock()
				errs = multierr.Append(errs, fmt.Errorf("peer %s: %w", pr, err))
				mu.Unlock()
			}
		}(pr)
	}

	wg.Wait()

	return errs
}

// QueryStatus asks the peer for its current status.
func (n *Network) QueryStatus(ctx context.Context, pr peer.Peer) (peer.Status, error) {
	n.evHandler("network: QueryStatus: started: %s", pr)
	defer n.evHandler("network: QueryStatus: completed: %s", pr)

	url := fmt.Sprintf("%s/status", fmt.Sprintf(baseURL, pr.Host))

	var status peer.Status
	if err := n.send(ctx, http.MethodGet, url, nil, &status); err != nil {
		return peer.Status{}, err
	}

	n.evHandler("network: QueryStatus: peer-node[%s]: node[%s]: latest-blk[%d]: peer-list[%s]", pr, status.NodeID, status.LatestBlockID, status.KnownPeers)

	return status, nil
}

// =============================================================================

// send is a helper function to send an HTTP request to a node. Transient
// failures are retried with an exponential backoff.
func (n *Network) send(ctx context.Context, method string, url string, dataSend []byte, dataRecv any) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxElapsedTime = 5 * time.Second

	var policy backoff.BackOff = b
	if n.maxRetries > 0 {
		policy = backoff.WithMaxRetries(b, n.maxRetries)
	}

	op := func() error {
		return n.do(ctx, method, url, dataSend, dataRecv)
	}

	return backoff.Retry(op, backoff.WithContext(policy, ctx))
}

func (n *Network) do(ctx context.Context, method string, url string, dataSend []byte, dataRecv any) error {
	var body io.Reader
	if dataSend != nil {
		body = bytes.NewReader(dataSend)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderNodeID, n.nodeID)

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if resp.StatusCode != http.StatusOK {
		msg, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		err = fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
		if resp.StatusCode < http.StatusInternalServerError {
			return backoff.Permanent(err)
		}
		return err
	}

	if dataRecv != nil {
		if err := json.NewDecoder(resp.Body).Decode(dataRecv); err != nil {
			return backoff.Permanent(fmt.Errorf("decode response: %w", err))
		}
	}

	return nil
}
