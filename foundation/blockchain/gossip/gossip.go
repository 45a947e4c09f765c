// Package gossip implements the message protocol nodes use to share blocks
// and converge on a single chain.
package gossip

import (
	"context"
	"errors"
	"fmt"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
)

// ErrUnknownTopic is returned when a message arrives on a topic the node
// doesn't subscribe to.
var ErrUnknownTopic = errors.New("unknown topic")

// Transport publishes a message to every peer subscribed to the topic.
type Transport interface {
	Broadcast(ctx context.Context, topic string, data []byte) error
}

// Ledger is the behavior the protocol needs from the node state.
type Ledger interface {
	RetrieveNodeID() string
	RetrieveChain() database.Chain
	ProcessProposedBlock(block database.Block) error
	ResolveChain(remote database.Chain) error
}

// Config represents the configuration required to construct the protocol.
type Config struct {
	Ledger        Ledger
	Transport     Transport
	ResponseQueue int
	EvHandler     func(v string, args ...any)
}

// Protocol handles inbound gossip and publishes outbound messages.
type Protocol struct {
	ledger    Ledger
	transport Transport
	responses chan ChainResponse
	evHandler func(v string, args ...any)
}

// New constructs a protocol for the specified ledger.
func New(cfg Config) (*Protocol, error) {
	if cfg.Ledger == nil || cfg.Transport == nil {
		return nil, errors.New("ledger and transport are required")
	}

	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	queue := cfg.ResponseQueue
	if queue <= 0 {
		queue = 100
	}

	p := Protocol{
		ledger:    cfg.Ledger,
		transport: cfg.Transport,
		responses: make(chan ChainResponse, queue),
		evHandler: ev,
	}

	return &p, nil
}

// Responses returns the channel of chain responses waiting to be sent.
func (p *Protocol) Responses() <-chan ChainResponse {
	return p.responses
}

// Deliver processes a message received on the topic from the node identified
// by source. Malformed or unwanted messages are logged and dropped. The only
// error returned, besides an unknown topic, wraps database.ErrChainsInvalid.
func (p *Protocol) Deliver(topic string, data []byte, source string) error {
	switch topic {
	case TopicChains, TopicBlocks:
	default:
		return fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
	}

	msg, err := Decode(data)
	if err != nil {
		p.evHandler("gossip: Deliver: WARNING: topic[%s]: source[%s]: unable to classify message: %s", topic, source, err)
		return nil
	}

	switch msg := msg.(type) {
	case ChainResponse:
		return p.deliverChainResponse(msg, source)

	case ChainRequest:
		p.deliverChainRequest(msg, source)

	case database.Block:
		p.deliverBlock(msg, source)
	}

	return nil
}

// RequestChain asks the specified peer to send its chain.
func (p *Protocol) RequestChain(ctx context.Context, peerID string) error {
	p.evHandler("gossip: RequestChain: peer[%s]", peerID)
	return p.publish(ctx, TopicChains, ChainRequest{FromPeerID: peerID})
}

// SendBlock publishes a newly mined block to all peers.
func (p *Protocol) SendBlock(ctx context.Context, block database.Block) error {
	p.evHandler("gossip: SendBlock: %s", block)
	return p.publish(ctx, TopicBlocks, block)
}

// SendChainResponse publishes a chain addressed to a single receiver.
func (p *Protocol) SendChainResponse(ctx context.Context, resp ChainResponse) error {
	p.evHandler("gossip: SendChainResponse: receiver[%s]: len[%d]", resp.Receiver, resp.Blocks.Len())
	return p.publish(ctx, TopicChains, resp)
}

// =============================================================================

func (p *Protocol) publish(ctx context.Context, topic string, msg any) error {
	data, err := Encode(msg)
	if err != nil {
		return err
	}

	if err := p.transport.Broadcast(ctx, topic, data); err != nil {
		return fmt.Errorf("broadcast %s: %w", topic, err)
	}

	return nil
}

func (p *Protocol) deliverChainResponse(resp ChainResponse, source string) error {
	self := p.ledger.RetrieveNodeID()
	if resp.Receiver != self {
		return nil
	}

	p.evHandler("gossip: Deliver: chain response: source[%s]: len[%d]", source, resp.Blocks.Len())

	if err := p.ledger.ResolveChain(resp.Blocks); err != nil {
		if errors.Is(err, database.ErrChainsInvalid) {
			return err
		}
		p.evHandler("gossip: Deliver: WARNING: chain response: %s", err)
	}

	return nil
}

func (p *Protocol) deliverChainRequest(req ChainRequest, source string) {
	self := p.ledger.RetrieveNodeID()
	if req.FromPeerID != self {
		return
	}

	if source == "" {
		p.evHandler("gossip: Deliver: WARNING: chain request without a source")
		return
	}

	resp := ChainResponse{
		Blocks:   p.ledger.RetrieveChain(),
		Receiver: source,
	}

	select {
	case p.responses <- resp:
		p.evHandler("gossip: Deliver: chain request: response queued: receiver[%s]", source)
	default:
		p.evHandler("gossip: Deliver: WARNING: chain request: response queue full: receiver[%s]", source)
	}
}

func (p *Protocol) deliverBlock(block database.Block, source string) {
	p.evHandler("gossip: Deliver: block: source[%s]: %s", source, block)

	// Rejections are already logged by the ledger.
	p.ledger.ProcessProposedBlock(block)
}
