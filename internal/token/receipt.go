package token

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
)

const ReceiptStatusSuccessful = 1

// Receipt records an accepted call and the logs it emitted
type Receipt struct {
	TxHash      common.Hash     `json:"transactionHash"`
	BlockHash   common.Hash     `json:"blockHash"`
	BlockNumber *hexutil.Uint64 `json:"blockNumber"` // nil until sealed
	Op          string          `json:"op"`
	From        common.Address  `json:"from"`
	Timestamp   hexutil.Uint64  `json:"timestamp"`
	Logs        []*types.Log    `json:"logs"`
	Status      hexutil.Uint64  `json:"status"`
}

func newTxHash() common.Hash {
	id := uuid.New()
	return crypto.Keccak256Hash(id[:])
}

// ReceiptStore manages receipts in memory
type ReceiptStore struct {
	receipts map[common.Hash]*Receipt
	mu       sync.RWMutex
}

func NewReceiptStore() *ReceiptStore {
	return &ReceiptStore{
		receipts: make(map[common.Hash]*Receipt),
	}
}

func (s *ReceiptStore) AddReceipt(r *Receipt) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Store a copy to avoid aliasing caller's data
	s.receipts[r.TxHash] = r.DeepCopy()
}

func (s *ReceiptStore) GetReceipt(hash common.Hash) *Receipt {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.receipts[hash].DeepCopy()
}

// Seal stamps the block number and hash onto the given receipts and their
// logs.
func (s *ReceiptStore) Seal(hashes []common.Hash, number uint64, blockHash common.Hash) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, h := range hashes {
		r := s.receipts[h]
		if r == nil {
			continue
		}
		n := hexutil.Uint64(number)
		r.BlockNumber = &n
		r.BlockHash = blockHash
		for _, l := range r.Logs {
			l.BlockNumber = number
			l.BlockHash = blockHash
			l.TxHash = h
			l.TxIndex = uint(i)
		}
	}
}

// DeepCopy creates a deep copy of the Receipt
func (r *Receipt) DeepCopy() *Receipt {
	if r == nil {
		return nil
	}

	result := &Receipt{
		TxHash:    r.TxHash,
		BlockHash: r.BlockHash,
		Op:        r.Op,
		From:      r.From,
		Timestamp: r.Timestamp,
		Status:    r.Status,
	}
	if r.BlockNumber != nil {
		bn := *r.BlockNumber
		result.BlockNumber = &bn
	}
	if r.Logs != nil {
		result.Logs = make([]*types.Log, len(r.Logs))
		for i, log := range r.Logs {
			if log == nil {
				continue
			}
			logCopy := *log
			if log.Topics != nil {
				logCopy.Topics = make([]common.Hash, len(log.Topics))
				copy(logCopy.Topics, log.Topics)
			}
			if log.Data != nil {
				logCopy.Data = make([]byte, len(log.Data))
				copy(logCopy.Data, log.Data)
			}
			result.Logs[i] = &logCopy
		}
	}
	return result
}
