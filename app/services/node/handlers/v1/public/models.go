package public

import (
	"github.com/ardanlabs/ledger/foundation/blockchain/peer"
)

type submitBlock struct {
	Data string `json:"data" validate:"required"`
}

type syncChain struct {
	PeerID string `json:"peer_id"`
}

type peerInfo struct {
	Host    string   `json:"host"`
	NodeID  string   `json:"node_id,omitempty"`
	Name    string   `json:"name,omitempty"`
	Sources []string `json:"sources"`
}

func toPeerInfo(info peer.Info, name string) peerInfo {
	return peerInfo{
		Host:    info.Peer.Host,
		NodeID:  info.NodeID,
		Name:    name,
		Sources: info.Sources,
	}
}

type status struct {
	Status string `json:"status"`
}
