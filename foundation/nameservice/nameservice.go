// Package nameservice reads the node key folder and creates a name service
// lookup for node identities.
package nameservice

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

const keyExt = ".ecdsa"

// NodeID returns the identity of the node that owns the key. It's the
// checksummed hex address of the public key.
func NodeID(privateKey *ecdsa.PrivateKey) string {
	return crypto.PubkeyToAddress(privateKey.PublicKey).Hex()
}

// LoadOrGenerateKey loads the private key for the named node from the folder.
// If the key file doesn't exist a new key is generated and saved.
func LoadOrGenerateKey(folder string, name string) (*ecdsa.PrivateKey, error) {
	fileName := filepath.Join(folder, name+keyExt)

	privateKey, err := crypto.LoadECDSA(fileName)
	if err == nil {
		return privateKey, nil
	}

	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load key %s: %w", fileName, err)
	}

	privateKey, err = crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}

	if err := os.MkdirAll(folder, 0755); err != nil {
		return nil, fmt.Errorf("create key folder: %w", err)
	}

	if err := crypto.SaveECDSA(fileName, privateKey); err != nil {
		return nil, fmt.Errorf("save key %s: %w", fileName, err)
	}

	return privateKey, nil
}

// =============================================================================

// NameService maintains a map of node ids for name lookup.
type NameService struct {
	nodes map[string]string
}

// New constructs a name service with the node keys found in the folder.
func New(root string) (*NameService, error) {
	ns := NameService{
		nodes: make(map[string]string),
	}

	fn := func(fileName string, info fs.FileInfo, err error) error {
		if err != nil {
			return fmt.Errorf("walkdir failure: %w", err)
		}

		if path.Ext(fileName) != keyExt {
			return nil
		}

		privateKey, err := crypto.LoadECDSA(fileName)
		if err != nil {
			return err
		}

		ns.nodes[NodeID(privateKey)] = strings.TrimSuffix(path.Base(fileName), keyExt)

		return nil
	}

	if err := filepath.Walk(root, fn); err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}

	return &ns, nil
}

// Lookup returns the name for the specified node id.
func (ns *NameService) Lookup(nodeID string) string {
	name, exists := ns.nodes[nodeID]
	if !exists {
		return nodeID
	}
	return name
}

// Copy returns a copy of the map of node ids and names.
func (ns *NameService) Copy() map[string]string {
	cpy := make(map[string]string, len(ns.nodes))
	for nodeID, name := range ns.nodes {
		cpy[nodeID] = name
	}
	return cpy
}
