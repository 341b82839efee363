package token

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metaconcert/meco/internal/lockable"
)

// =============================================================================
// Genesis and ERC-20
// =============================================================================

func TestGenesis(t *testing.T) {
	st, err := NewMemoryState()
	require.NoError(t, err)
	tok, err := New(Metadata{Name: "META CONCERT", Symbol: "MECO", Decimals: 18}, st, NewChain(nil))
	require.NoError(t, err)
	defer tok.Close()
	require.False(t, tok.Initialized())

	r, err := tok.Genesis(owner, amt(genesisSupply))
	require.NoError(t, err)
	assert.Equal(t, []common.Hash{TopicOwnershipTransferred, TopicMint, TopicTransfer}, topics(r))

	assert.True(t, tok.Initialized())
	assert.Equal(t, owner, tok.Owner())
	assert.Equal(t, genesisSupply, tok.TotalSupply().Uint64())
	assert.Equal(t, genesisSupply, tok.BalanceOf(owner).Uint64())
	assert.Equal(t, "META CONCERT", tok.Name())
	assert.Equal(t, "MECO", tok.Symbol())
	assert.Equal(t, uint8(18), tok.Decimals())

	_, err = tok.Genesis(alice, amt(1))
	assert.ErrorIs(t, err, ErrAlreadyInitialized)
}

func TestTransfer(t *testing.T) {
	tok, _ := newTestToken(t)

	r, err := tok.Transfer(owner, alice, amt(100))
	require.NoError(t, err)
	require.Len(t, r.Logs, 1)
	l := r.Logs[0]
	assert.Equal(t, TopicTransfer, l.Topics[0])
	assert.Equal(t, common.BytesToAddress(l.Topics[1].Bytes()), owner)
	assert.Equal(t, common.BytesToAddress(l.Topics[2].Bytes()), alice)
	assert.Equal(t, uint64(100), new(uint256.Int).SetBytes(l.Data).Uint64())

	assert.Equal(t, uint64(100), tok.BalanceOf(alice).Uint64())
	assert.Equal(t, genesisSupply-100, tok.BalanceOf(owner).Uint64())

	_, err = tok.Transfer(owner, common.Address{}, amt(1))
	assert.ErrorIs(t, err, lockable.ErrZeroAddress)

	_, err = tok.Transfer(bob, alice, amt(1))
	assert.ErrorIs(t, err, lockable.ErrInsufficientSpendable)
}

func TestTransferRespectsLocks(t *testing.T) {
	tok, _ := newTestToken(t)
	fund(t, tok, 100, alice)
	_, err := tok.Lock(owner, alice, amt(60), after(tok, 100))
	require.NoError(t, err)

	_, err = tok.Transfer(alice, bob, amt(41))
	assert.ErrorIs(t, err, lockable.ErrInsufficientSpendable)
	assert.Equal(t, uint64(100), tok.BalanceOf(alice).Uint64())
	assert.True(t, tok.BalanceOf(bob).IsZero())

	_, err = tok.Transfer(alice, bob, amt(40))
	require.NoError(t, err)
	assert.True(t, tok.Spendable(alice).IsZero())
	assert.False(t, tok.CheckLock(alice, amt(1)))
}

func TestTransferFrom(t *testing.T) {
	tok, _ := newTestToken(t)

	_, err := tok.Approve(owner, alice, amt(50))
	require.NoError(t, err)
	assert.Equal(t, uint64(50), tok.Allowance(owner, alice).Uint64())

	r, err := tok.TransferFrom(alice, owner, bob, amt(30))
	require.NoError(t, err)
	assert.Equal(t, []common.Hash{TopicTransfer, TopicApproval}, topics(r))
	assert.Equal(t, uint64(30), tok.BalanceOf(bob).Uint64())
	assert.Equal(t, uint64(20), tok.Allowance(owner, alice).Uint64())

	_, err = tok.TransferFrom(alice, owner, bob, amt(21))
	assert.ErrorIs(t, err, ErrInsufficientAllowance)

	// Locked funds stay put even with allowance left.
	_, err = tok.Lock(owner, owner, new(uint256.Int).Sub(tok.BalanceOf(owner), amt(10)), after(tok, 100))
	require.NoError(t, err)
	_, err = tok.TransferFrom(alice, owner, bob, amt(15))
	assert.ErrorIs(t, err, lockable.ErrInsufficientSpendable)
	assert.Equal(t, uint64(20), tok.Allowance(owner, alice).Uint64())

	_, err = tok.Approve(owner, common.Address{}, amt(1))
	assert.ErrorIs(t, err, lockable.ErrZeroAddress)
}

// =============================================================================
// Pausable, Freezable, Mintable, Burnable, Ownable
// =============================================================================

func TestPause(t *testing.T) {
	tok, _ := newTestToken(t)
	fund(t, tok, 100, alice)

	_, err := tok.Pause(alice)
	assert.ErrorIs(t, err, lockable.ErrUnauthorized)
	_, err = tok.Unpause(owner)
	assert.ErrorIs(t, err, ErrNotPaused)

	r, err := tok.Pause(owner)
	require.NoError(t, err)
	assert.Equal(t, []common.Hash{TopicPaused}, topics(r))
	assert.True(t, tok.Paused())

	_, err = tok.Pause(owner)
	assert.ErrorIs(t, err, ErrPaused)
	_, err = tok.Transfer(alice, bob, amt(1))
	assert.ErrorIs(t, err, ErrPaused)
	_, err = tok.Burn(alice, amt(1))
	assert.ErrorIs(t, err, ErrPaused)
	_, err = tok.TransferWithLockUp(owner, bob, amt(1), after(tok, 10))
	assert.ErrorIs(t, err, ErrPaused)

	// Locking and unlocking are not transfers.
	_, err = tok.Lock(owner, alice, amt(10), after(tok, 10))
	assert.NoError(t, err)

	_, err = tok.Unpause(owner)
	require.NoError(t, err)
	_, err = tok.Transfer(alice, bob, amt(1))
	assert.NoError(t, err)
}

func TestFreeze(t *testing.T) {
	tok, _ := newTestToken(t)
	fund(t, tok, 100, alice)

	_, err := tok.Freeze(mallory, alice)
	assert.ErrorIs(t, err, lockable.ErrUnauthorized)
	_, err = tok.Freeze(owner, common.Address{})
	assert.ErrorIs(t, err, lockable.ErrZeroAddress)

	r, err := tok.Freeze(owner, alice)
	require.NoError(t, err)
	assert.Equal(t, []common.Hash{TopicFreeze}, topics(r))
	assert.True(t, tok.IsFrozen(alice))

	_, err = tok.Transfer(alice, bob, amt(1))
	assert.ErrorIs(t, err, ErrFrozen)
	_, err = tok.Approve(alice, bob, amt(5))
	require.NoError(t, err)
	_, err = tok.TransferFrom(bob, alice, bob, amt(1))
	assert.ErrorIs(t, err, ErrFrozen)

	// Receiving is still allowed.
	fund(t, tok, 1, alice)

	_, err = tok.Unfreeze(owner, alice)
	require.NoError(t, err)
	assert.False(t, tok.IsFrozen(alice))
	_, err = tok.Transfer(alice, bob, amt(1))
	assert.NoError(t, err)
}

func TestMint(t *testing.T) {
	tok, _ := newTestToken(t)

	_, err := tok.Mint(alice, alice, amt(1))
	assert.ErrorIs(t, err, lockable.ErrUnauthorized)
	_, err = tok.Mint(owner, common.Address{}, amt(1))
	assert.ErrorIs(t, err, lockable.ErrZeroAddress)
	_, err = tok.Mint(owner, bob, amt(0))
	assert.ErrorIs(t, err, lockable.ErrInvalidAmount)

	r, err := tok.Mint(owner, bob, amt(500))
	require.NoError(t, err)
	assert.Equal(t, []common.Hash{TopicMint, TopicTransfer}, topics(r))
	assert.Equal(t, genesisSupply+500, tok.TotalSupply().Uint64())
	assert.Equal(t, uint64(500), tok.BalanceOf(bob).Uint64())

	max := new(uint256.Int).SetAllOne()
	_, err = tok.Mint(owner, bob, max)
	assert.ErrorIs(t, err, ErrSupplyOverflow)

	_, err = tok.FinishMint(owner)
	require.NoError(t, err)
	assert.True(t, tok.MintingFinished())
	_, err = tok.Mint(owner, bob, amt(1))
	assert.ErrorIs(t, err, ErrMintingFinished)
	_, err = tok.FinishMint(owner)
	assert.ErrorIs(t, err, ErrMintingFinished)
}

func TestBurn(t *testing.T) {
	tok, _ := newTestToken(t)
	fund(t, tok, 100, alice)

	r, err := tok.Burn(alice, amt(10))
	require.NoError(t, err)
	assert.Equal(t, []common.Hash{TopicBurn, TopicTransfer}, topics(r))
	assert.Equal(t, uint64(90), tok.BalanceOf(alice).Uint64())
	assert.Equal(t, genesisSupply-10, tok.TotalSupply().Uint64())

	_, err = tok.Lock(owner, alice, amt(80), after(tok, 100))
	require.NoError(t, err)
	_, err = tok.Burn(alice, amt(11))
	assert.ErrorIs(t, err, lockable.ErrInsufficientSpendable)

	_, err = tok.Approve(alice, bob, amt(10))
	require.NoError(t, err)
	_, err = tok.BurnFrom(bob, alice, amt(10))
	require.NoError(t, err)
	assert.Equal(t, uint64(80), tok.BalanceOf(alice).Uint64())
	assert.True(t, tok.Allowance(alice, bob).IsZero())
	_, err = tok.BurnFrom(bob, alice, amt(1))
	assert.ErrorIs(t, err, ErrInsufficientAllowance)
}

func TestOwnership(t *testing.T) {
	tok, _ := newTestToken(t)
	fund(t, tok, 100, bob)

	_, err := tok.TransferOwnership(alice, alice)
	assert.ErrorIs(t, err, lockable.ErrUnauthorized)
	_, err = tok.TransferOwnership(owner, common.Address{})
	assert.ErrorIs(t, err, lockable.ErrZeroAddress)

	_, err = tok.TransferOwnership(owner, alice)
	require.NoError(t, err)
	assert.Equal(t, alice, tok.Owner())

	_, err = tok.Lock(owner, bob, amt(10), after(tok, 100))
	assert.ErrorIs(t, err, lockable.ErrUnauthorized, "previous owner lost the privilege")
	_, err = tok.Lock(alice, bob, amt(10), after(tok, 100))
	require.NoError(t, err)

	_, err = tok.RenounceOwnership(alice)
	require.NoError(t, err)
	assert.Equal(t, common.Address{}, tok.Owner())
	_, err = tok.Lock(alice, bob, amt(10), after(tok, 100))
	assert.ErrorIs(t, err, lockable.ErrUnauthorized)
	_, err = tok.Lock(common.Address{}, bob, amt(10), after(tok, 100))
	assert.ErrorIs(t, err, lockable.ErrUnauthorized, "zero caller is never the owner")
}

// =============================================================================
// Locks through the token
// =============================================================================

func TestTransferWithLockUpReceipt(t *testing.T) {
	tok, _ := newTestToken(t)
	due := after(tok, 3600)

	r, err := tok.TransferWithLockUp(owner, alice, amt(100), due)
	require.NoError(t, err)
	require.Equal(t, []common.Hash{TopicTransfer, TopicLock}, topics(r))

	lockLog := r.Logs[1]
	assert.Equal(t, alice, common.BytesToAddress(lockLog.Topics[1].Bytes()))
	require.Len(t, lockLog.Data, 64)
	assert.Equal(t, uint64(100), new(uint256.Int).SetBytes(lockLog.Data[:32]).Uint64())
	assert.Equal(t, due, new(uint256.Int).SetBytes(lockLog.Data[32:]).Uint64())
	assert.Equal(t, uint(1), lockLog.Index)

	assert.Equal(t, uint64(100), tok.BalanceOf(alice).Uint64())
	assert.True(t, tok.Spendable(alice).IsZero())
	entries := tok.LockEntries(alice)
	require.Len(t, entries, 1)
	assert.Equal(t, due, entries[0].Due)
}

func TestFailedCallLeavesNoTrace(t *testing.T) {
	tok, _ := newTestToken(t)
	pending := tok.chain.Pending()
	before := tok.BalanceOf(owner)

	_, err := tok.TransferWithLockUp(owner, alice, amt(genesisSupply+1), after(tok, 10))
	require.ErrorIs(t, err, lockable.ErrInsufficientSpendable)
	_, err = tok.TransferWithLockUp(owner, alice, amt(10), tok.Now())
	require.ErrorIs(t, err, lockable.ErrInvalidDue)

	assert.Equal(t, pending, tok.chain.Pending(), "no receipt for failed calls")
	assert.Equal(t, before, tok.BalanceOf(owner))
	assert.True(t, tok.BalanceOf(alice).IsZero())
	assert.Empty(t, tok.logs)
}

func TestUnlockThroughToken(t *testing.T) {
	tok, clk := newTestToken(t)
	fund(t, tok, 100, alice)
	_, err := tok.Lock(owner, alice, amt(30), after(tok, 100))
	require.NoError(t, err)
	_, err = tok.Lock(owner, alice, amt(20), after(tok, 200))
	require.NoError(t, err)

	pending := tok.chain.Pending()
	r, err := tok.Unlock(mallory, alice, 0)
	assert.ErrorIs(t, err, lockable.ErrLockNotDue)
	assert.Nil(t, r)
	assert.Equal(t, pending, tok.chain.Pending())

	clk.advance(100 * time.Second)
	r, err = tok.Unlock(mallory, alice, 0)
	require.NoError(t, err, "unlock of a due entry is permissionless")
	assert.Equal(t, []common.Hash{TopicUnlock}, topics(r))
	total, count := tok.TotalLocked(alice)
	assert.Equal(t, uint64(20), total.Uint64())
	assert.Equal(t, 1, count)

	_, _, err = tok.ReleaseLock(mallory, alice)
	assert.ErrorIs(t, err, lockable.ErrUnauthorized)

	clk.advance(100 * time.Second)
	released, r, err := tok.ReleaseLock(alice, alice)
	require.NoError(t, err)
	assert.Equal(t, 1, released)
	assert.Equal(t, alice, r.From)

	released, _, err = tok.UnlockAll(bob, alice)
	require.NoError(t, err)
	assert.Zero(t, released)

	_, _, err = tok.LockInfo(alice, 0)
	assert.ErrorIs(t, err, lockable.ErrIndexOutOfRange)
}

func TestSweepExpired(t *testing.T) {
	tok, clk := newTestToken(t)
	fund(t, tok, 100, alice, bob)
	for _, h := range []common.Address{alice, bob} {
		_, err := tok.Lock(owner, h, amt(50), after(tok, 10))
		require.NoError(t, err)
	}
	_, err := tok.Lock(owner, bob, amt(50), after(tok, 1000))
	require.NoError(t, err)

	holders, released, r := tok.SweepExpired(0)
	assert.Zero(t, holders)
	assert.Zero(t, released)
	assert.Nil(t, r)

	clk.advance(10 * time.Second)
	holders, released, r = tok.SweepExpired(0)
	assert.Equal(t, 2, holders)
	assert.Equal(t, 2, released)
	require.NotNil(t, r)
	assert.Equal(t, common.Address{}, r.From)
	assert.Equal(t, []common.Hash{TopicUnlock, TopicUnlock}, topics(r))

	total, _ := tok.TotalLocked(bob)
	assert.Equal(t, uint64(50), total.Uint64())
	_, _, r = tok.SweepExpired(0)
	assert.Nil(t, r)
}

func TestProduceBlockSealsReceipts(t *testing.T) {
	tok, _ := newTestToken(t)
	r, err := tok.Transfer(owner, alice, amt(5))
	require.NoError(t, err)
	assert.Nil(t, tok.Receipt(r.TxHash).BlockNumber)

	block, err := tok.ProduceBlock()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), block.Height)
	assert.Contains(t, block.Receipts, r.TxHash)
	assert.NotEqual(t, common.Hash{}, block.StateRoot)

	sealed := tok.Receipt(r.TxHash)
	require.NotNil(t, sealed.BlockNumber)
	assert.Equal(t, uint64(1), uint64(*sealed.BlockNumber))
	assert.Equal(t, block.Hash(), sealed.BlockHash)
	assert.Equal(t, r.TxHash, sealed.Logs[0].TxHash)
	assert.Equal(t, uint64(1), sealed.Logs[0].BlockNumber)

	// State survives the commit.
	assert.Equal(t, uint64(5), tok.BalanceOf(alice).Uint64())
	assert.Equal(t, owner, tok.Owner())
	assert.Equal(t, block, tok.Head())
}
