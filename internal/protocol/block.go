package protocol

import (
	"crypto/sha256"
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
)

// Block seals the receipts accepted since the previous block together with
// the state root they produced.
type Block struct {
	Height    uint64        `json:"height"`
	PrevHash  common.Hash   `json:"prev_hash"`
	Timestamp uint64        `json:"timestamp"`
	StateRoot common.Hash   `json:"state_root"`
	Receipts  []common.Hash `json:"receipts"`
}

func (b *Block) Hash() common.Hash {
	data, _ := json.Marshal(b)
	return sha256.Sum256(data)
}
