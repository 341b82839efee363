package token

import (
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChain(t *testing.T) {
	clk := &testClock{now: time.Unix(genesisTime, 0)}
	chain := NewChain(clk.Now)

	head := chain.Head()
	assert.Equal(t, uint64(0), head.Height)
	assert.Equal(t, uint64(genesisTime), head.Timestamp)
	assert.Equal(t, uint64(genesisTime), chain.Now())
	assert.Nil(t, chain.Block(1))
}

func TestChain_ProduceBlock(t *testing.T) {
	clk := &testClock{now: time.Unix(genesisTime, 0)}
	chain := NewChain(clk.Now)
	tx1, tx2 := common.HexToHash("0x01"), common.HexToHash("0x02")
	chain.AddTx(tx1)
	chain.AddTx(tx2)
	clk.advance(3 * time.Second)

	var committed uint64
	root := common.HexToHash("0xbeef")
	block, err := chain.ProduceBlock(func(height uint64) (common.Hash, error) {
		committed = height
		return root, nil
	})
	require.NoError(t, err)

	assert.Equal(t, uint64(1), committed)
	assert.Equal(t, uint64(1), block.Height)
	assert.Equal(t, chain.Block(0).Hash(), block.PrevHash)
	assert.Equal(t, root, block.StateRoot)
	assert.Equal(t, []common.Hash{tx1, tx2}, block.Receipts)
	assert.Equal(t, uint64(genesisTime+3), block.Timestamp)
	assert.Zero(t, chain.Pending())

	empty, err := chain.ProduceBlock(func(uint64) (common.Hash, error) { return root, nil })
	require.NoError(t, err)
	assert.NotNil(t, empty.Receipts)
	assert.Empty(t, empty.Receipts)
}

func TestChain_ProduceBlockCommitError(t *testing.T) {
	chain := NewChain(nil)
	chain.AddTx(common.HexToHash("0x01"))

	_, err := chain.ProduceBlock(func(uint64) (common.Hash, error) {
		return common.Hash{}, errors.New("disk full")
	})
	require.Error(t, err)
	assert.Equal(t, uint64(0), chain.Head().Height)
	assert.Equal(t, 1, chain.Pending(), "pending receipts wait for the next block")
}

func TestChain_NowNeverGoesBackwards(t *testing.T) {
	clk := &testClock{now: time.Unix(genesisTime, 0)}
	chain := NewChain(clk.Now)
	clk.advance(50 * time.Second)
	_, err := chain.ProduceBlock(func(uint64) (common.Hash, error) { return common.Hash{}, nil })
	require.NoError(t, err)

	clk.set(time.Unix(genesisTime-100, 0))
	assert.Equal(t, uint64(genesisTime+50), chain.Now())
}
