package token

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// Event topics, keccak of the Solidity event signatures.
var (
	TopicTransfer             = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))
	TopicApproval             = crypto.Keccak256Hash([]byte("Approval(address,address,uint256)"))
	TopicMint                 = crypto.Keccak256Hash([]byte("Mint(address,uint256)"))
	TopicMintFinished         = crypto.Keccak256Hash([]byte("MintFinished()"))
	TopicBurn                 = crypto.Keccak256Hash([]byte("Burn(address,uint256)"))
	TopicFreeze               = crypto.Keccak256Hash([]byte("Freeze(address)"))
	TopicUnfreeze             = crypto.Keccak256Hash([]byte("Unfreeze(address)"))
	TopicPaused               = crypto.Keccak256Hash([]byte("Paused(address)"))
	TopicUnpaused             = crypto.Keccak256Hash([]byte("Unpaused(address)"))
	TopicOwnershipTransferred = crypto.Keccak256Hash([]byte("OwnershipTransferred(address,address)"))
	TopicLock                 = crypto.Keccak256Hash([]byte("Lock(address,uint256,uint256)"))
	TopicUnlock               = crypto.Keccak256Hash([]byte("Unlock(address,uint256)"))
)

func addressTopic(a common.Address) common.Hash {
	return common.BytesToHash(a.Bytes())
}

// emit appends a log to the journal of the running call. Indexed addresses
// become topics, amounts are packed as 32-byte words.
func (t *Token) emit(topic common.Hash, indexed []common.Address, words ...*uint256.Int) {
	topics := make([]common.Hash, 0, 1+len(indexed))
	topics = append(topics, topic)
	for _, a := range indexed {
		topics = append(topics, addressTopic(a))
	}
	data := make([]byte, 0, 32*len(words))
	for _, w := range words {
		b := w.Bytes32()
		data = append(data, b[:]...)
	}
	t.logs = append(t.logs, &types.Log{
		Address: Address,
		Topics:  topics,
		Data:    data,
		Index:   uint(len(t.logs)),
	})
}

func (t *Token) emitTransfer(from, to common.Address, amount *uint256.Int) {
	t.emit(TopicTransfer, []common.Address{from, to}, amount)
}

// EmitLock and EmitUnlock let the lock components log through the token.

func (t *Token) EmitLock(holder common.Address, amount *uint256.Int, due uint64) {
	t.emit(TopicLock, []common.Address{holder}, amount, uint256.NewInt(due))
}

func (t *Token) EmitUnlock(holder common.Address, amount *uint256.Int) {
	t.emit(TopicUnlock, []common.Address{holder}, amount)
}
