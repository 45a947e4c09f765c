package gossip

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/validate"
)

// Set of topics messages are published on.
const (
	TopicChains = "chains"
	TopicBlocks = "blocks"
)

// Set of kinds carried by the message envelope.
const (
	KindChainRequest  = "chain_request"
	KindChainResponse = "chain_response"
	KindBlock         = "block"
)

// ErrUnknownMessage is returned when a payload can't be classified.
var ErrUnknownMessage = errors.New("unknown message")

// ChainRequest asks the peer identified by FromPeerID to disclose its chain.
type ChainRequest struct {
	FromPeerID string `json:"from_peer_id" validate:"required"`
}

// ChainResponse carries a full chain to the peer identified by Receiver.
type ChainResponse struct {
	Blocks   database.Chain `json:"blocks" validate:"required"`
	Receiver string         `json:"receiver" validate:"required"`
}

// envelope is the tagged form every message is sent in.
type envelope struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// Encode wraps the message in an envelope tagged with its kind.
func Encode(msg any) ([]byte, error) {
	var kind string
	switch msg.(type) {
	case ChainRequest:
		kind = KindChainRequest
	case ChainResponse:
		kind = KindChainResponse
	case database.Block:
		kind = KindBlock
	default:
		return nil, fmt.Errorf("encode %T: %w", msg, ErrUnknownMessage)
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", kind, err)
	}

	return json.Marshal(envelope{Kind: kind, Payload: payload})
}

// Decode classifies the payload and returns a ChainRequest, ChainResponse or
// database.Block value. Payloads without a known kind are classified the
// legacy way, see decodeLegacy.
func Decode(data []byte) (any, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err == nil {
		switch env.Kind {
		case KindChainRequest:
			return decodeAs[ChainRequest](env.Payload)
		case KindChainResponse:
			return decodeAs[ChainResponse](env.Payload)
		case KindBlock:
			return decodeBlock(env.Payload)
		}
	}

	return decodeLegacy(data)
}

func decodeAs[T any](data []byte) (T, error) {
	var msg T
	if err := json.Unmarshal(data, &msg); err != nil {
		return msg, fmt.Errorf("decode %T: %w", msg, err)
	}

	if err := validate.Check(msg); err != nil {
		return msg, fmt.Errorf("decode %T: %w", msg, err)
	}

	return msg, nil
}

func decodeBlock(data []byte) (database.Block, error) {
	lb, err := decodeAs[legacyBlock](data)
	if err != nil {
		return database.Block{}, err
	}
	return lb.toBlock(), nil
}

// =============================================================================

// The legacy structs use pointers so a field that is absent can be told apart
// from a field holding its zero value.

type legacyChainResponse struct {
	Blocks   *database.Chain `json:"blocks" validate:"required"`
	Receiver *string         `json:"receiver" validate:"required"`
}

type legacyChainRequest struct {
	FromPeerID *string `json:"from_peer_id" validate:"required"`
}

type legacyBlock struct {
	ID           *uint64 `json:"id" validate:"required"`
	Hash         *string `json:"hash" validate:"required"`
	PreviousHash *string `json:"previous_hash" validate:"required"`
	TimeStamp    *int64  `json:"timestamp" validate:"required"`
	Data         *string `json:"data" validate:"required"`
	Nonce        *uint64 `json:"nonce" validate:"required"`
}

func (lb legacyBlock) toBlock() database.Block {
	return database.Block{
		ID:           *lb.ID,
		Hash:         *lb.Hash,
		PreviousHash: *lb.PreviousHash,
		TimeStamp:    *lb.TimeStamp,
		Data:         *lb.Data,
		Nonce:        *lb.Nonce,
	}
}

// decodeLegacy classifies an untagged payload by trying each message shape
// in the order ChainResponse, ChainRequest, Block. The first shape with every
// field present wins.
func decodeLegacy(data []byte) (any, error) {
	if resp, err := decodeAs[legacyChainResponse](data); err == nil {
		return ChainResponse{Blocks: *resp.Blocks, Receiver: *resp.Receiver}, nil
	}

	if req, err := decodeAs[legacyChainRequest](data); err == nil {
		return ChainRequest{FromPeerID: *req.FromPeerID}, nil
	}

	if lb, err := decodeAs[legacyBlock](data); err == nil {
		return lb.toBlock(), nil
	}

	return nil, ErrUnknownMessage
}
