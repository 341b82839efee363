package token

import (
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/metaconcert/meco/internal/protocol"
)

// Chain orders accepted receipts into blocks and supplies the ledger clock.
type Chain struct {
	mu      sync.RWMutex
	blocks  []*protocol.Block
	pending []common.Hash
	clock   func() time.Time
}

// NewChain starts a chain at a genesis block stamped with clock. A nil clock
// uses the wall clock.
func NewChain(clock func() time.Time) *Chain {
	if clock == nil {
		clock = time.Now
	}
	genesis := &protocol.Block{
		Height:    0,
		Timestamp: uint64(clock().Unix()),
		Receipts:  []common.Hash{},
	}
	return &Chain{
		blocks: []*protocol.Block{genesis},
		clock:  clock,
	}
}

// Now is the timestamp of the pending block in unix seconds. It never goes
// below the head block's timestamp, so it does not run backwards when the
// wall clock does.
func (c *Chain) Now() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now()
}

func (c *Chain) now() uint64 {
	ts := uint64(c.clock().Unix())
	if head := c.blocks[len(c.blocks)-1].Timestamp; ts < head {
		return head
	}
	return ts
}

// AddTx queues a receipt hash for the next block
func (c *Chain) AddTx(hash common.Hash) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = append(c.pending, hash)
}

// ProduceBlock seals the pending receipts. commit persists the state for the
// new height and returns its root; on error the chain is left unchanged.
func (c *Chain) ProduceBlock(commit func(height uint64) (common.Hash, error)) (*protocol.Block, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	head := c.blocks[len(c.blocks)-1]
	height := head.Height + 1
	root, err := commit(height)
	if err != nil {
		return nil, err
	}

	receipts := c.pending
	if receipts == nil {
		receipts = []common.Hash{}
	}
	block := &protocol.Block{
		Height:    height,
		PrevHash:  head.Hash(),
		Timestamp: c.now(),
		StateRoot: root,
		Receipts:  receipts,
	}
	c.blocks = append(c.blocks, block)
	c.pending = nil
	return block, nil
}

func (c *Chain) Head() *protocol.Block {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.blocks[len(c.blocks)-1]
}

// Block returns the block at height, or nil.
func (c *Chain) Block(height uint64) *protocol.Block {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if height >= uint64(len(c.blocks)) {
		return nil
	}
	return c.blocks[height]
}

func (c *Chain) Pending() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.pending)
}
