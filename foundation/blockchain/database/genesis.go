package database

// GenesisPreviousHash is the sentinel stored as the previous hash of the
// genesis block.
const GenesisPreviousHash = "genesis"

// The genesis block is trusted by construction. The hash is the digest the
// pinned nonce produces for these fields and must never be recomputed.
const (
	genesisTimeStamp = 1640995200
	genesisData      = "genesis!"
	genesisNonce     = 91
	genesisHash      = "0000689cec01d81f4e1c44dca6d95c0b4972eabf5480ef18e959567119b33e97"
)

// Genesis returns the hardcoded first block of every chain.
func Genesis() Block {
	return Block{
		ID:           0,
		Hash:         genesisHash,
		PreviousHash: GenesisPreviousHash,
		TimeStamp:    genesisTimeStamp,
		Data:         genesisData,
		Nonce:        genesisNonce,
	}
}

// IsGenesis reports whether the block is byte for byte the genesis block.
func IsGenesis(block Block) bool {
	return block == Genesis()
}
