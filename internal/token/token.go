package token

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/holiman/uint256"
	"github.com/rs/zerolog/log"

	"github.com/metaconcert/meco/internal/lockable"
	"github.com/metaconcert/meco/internal/observability"
	"github.com/metaconcert/meco/internal/protocol"
)

type Metadata struct {
	Name     string
	Symbol   string
	Decimals uint8
}

// Token processes calls against the ledger one at a time.
//
// Every mutating call runs in exec: the state is snapshotted, the operation
// runs, and on error the snapshot is restored and the logs are dropped. Lock
// ledger changes are always the last step of an operation, after everything
// that can fail, so a revert never has to undo them.
type Token struct {
	mu       sync.Mutex
	meta     Metadata
	state    *State
	chain    *Chain
	receipts *ReceiptStore
	store    *LockStore
	locks    *lockable.Lockable

	logs     []*types.Log
	logMarks map[int]int // snapshot id -> len(logs)
}

// New builds a token over st, restoring persisted locks from st's key-value
// store.
func New(meta Metadata, st *State, chain *Chain) (*Token, error) {
	t := &Token{
		meta:     meta,
		state:    st,
		chain:    chain,
		receipts: NewReceiptStore(),
		store:    NewLockStore(st.KV()),
		logMarks: make(map[int]int),
	}
	ledger := lockable.NewLockLedger()
	if err := t.store.Load(ledger); err != nil {
		return nil, fmt.Errorf("load locks: %w", err)
	}
	t.locks = lockable.Wrap(ledger, balanceLedger{t}, t, chain, t)
	return t, nil
}

// balanceLedger gives the lock components raw access to balances. Calls
// arrive with t.mu already held.
type balanceLedger struct{ t *Token }

func (b balanceLedger) BalanceOf(a common.Address) *uint256.Int { return b.t.state.BalanceOf(a) }

func (b balanceLedger) Transfer(from, to common.Address, amount *uint256.Int) error {
	return b.t.move(from, to, amount)
}

func (b balanceLedger) Snapshot() int { return b.t.snapshot() }

func (b balanceLedger) RevertToSnapshot(id int) { b.t.revert(id) }

func (t *Token) snapshot() int {
	id := t.state.Snapshot()
	t.logMarks[id] = len(t.logs)
	return id
}

func (t *Token) revert(id int) {
	t.state.RevertToSnapshot(id)
	if n, ok := t.logMarks[id]; ok {
		t.logs = t.logs[:n]
	}
}

// exec runs fn as one call. t.mu must be held.
func (t *Token) exec(op string, caller common.Address, fn func() error) (*Receipt, error) {
	t.logs = nil
	t.logMarks = make(map[int]int)
	snap := t.snapshot()

	err := fn()
	observability.RecordTokenOp(op, Code(err), err)
	if err != nil {
		t.revert(snap)
		t.logs = nil
		log.Debug().Err(err).Str("op", op).Str("caller", caller.Hex()).Msg("call reverted")
		return nil, err
	}
	return t.record(op, caller), nil
}

func (t *Token) record(op string, caller common.Address) *Receipt {
	r := &Receipt{
		TxHash:    newTxHash(),
		Op:        op,
		From:      caller,
		Timestamp: hexutil.Uint64(t.chain.Now()),
		Logs:      t.logs,
		Status:    ReceiptStatusSuccessful,
	}
	for i, l := range r.Logs {
		l.TxHash = r.TxHash
		l.Index = uint(i)
	}
	t.logs = nil
	t.receipts.AddReceipt(r)
	t.chain.AddTx(r.TxHash)
	return r
}

// Genesis sets owner and mints supply to it. It only succeeds once.
func (t *Token) Genesis(owner common.Address, supply *uint256.Int) (*Receipt, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.exec("genesis", owner, func() error {
		if t.initialized() {
			return ErrAlreadyInitialized
		}
		if owner == (common.Address{}) {
			return fmt.Errorf("%w: genesis owner", lockable.ErrZeroAddress)
		}
		t.setOwner(owner)
		return t.mint(owner, supply)
	})
}

func (t *Token) Initialized() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.initialized()
}

func (t *Token) initialized() bool {
	return t.state.owner() != (common.Address{}) || !t.state.totalSupply().IsZero()
}

// ---- ERC-20 ----

func (t *Token) Name() string    { return t.meta.Name }
func (t *Token) Symbol() string  { return t.meta.Symbol }
func (t *Token) Decimals() uint8 { return t.meta.Decimals }

func (t *Token) TotalSupply() *uint256.Int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.totalSupply()
}

func (t *Token) BalanceOf(a common.Address) *uint256.Int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.BalanceOf(a)
}

func (t *Token) Allowance(owner, spender common.Address) *uint256.Int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.allowance(owner, spender)
}

func (t *Token) Transfer(caller, to common.Address, amount *uint256.Int) (*Receipt, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.exec("transfer", caller, func() error {
		if err := t.whenNotPaused(); err != nil {
			return err
		}
		if err := t.whenNotFrozen(caller); err != nil {
			return err
		}
		return t.transfer(caller, to, amount)
	})
}

func (t *Token) TransferFrom(caller, from, to common.Address, amount *uint256.Int) (*Receipt, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.exec("transferFrom", caller, func() error {
		if err := t.whenNotPaused(); err != nil {
			return err
		}
		if err := t.whenNotFrozen(from); err != nil {
			return err
		}
		remaining, err := t.spendAllowance(from, caller, amount)
		if err != nil {
			return err
		}
		if err := t.transfer(from, to, amount); err != nil {
			return err
		}
		t.approve(from, caller, remaining)
		return nil
	})
}

func (t *Token) Approve(caller, spender common.Address, amount *uint256.Int) (*Receipt, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.exec("approve", caller, func() error {
		if err := t.whenNotPaused(); err != nil {
			return err
		}
		if spender == (common.Address{}) {
			return fmt.Errorf("%w: spender", lockable.ErrZeroAddress)
		}
		t.approve(caller, spender, amount)
		return nil
	})
}

// transfer moves spendable tokens. The lock check runs before the balance
// is touched.
func (t *Token) transfer(from, to common.Address, amount *uint256.Int) error {
	if to == (common.Address{}) {
		return fmt.Errorf("%w: recipient", lockable.ErrZeroAddress)
	}
	if err := t.locks.Guard.Require(from, amount); err != nil {
		return err
	}
	return t.move(from, to, amount)
}

func (t *Token) move(from, to common.Address, amount *uint256.Int) error {
	if err := t.state.Debit(from, amount); err != nil {
		return err
	}
	t.state.Credit(to, amount)
	t.emitTransfer(from, to, amount)
	return nil
}

func (t *Token) approve(owner, spender common.Address, amount *uint256.Int) {
	t.state.setAllowance(owner, spender, amount)
	t.emit(TopicApproval, []common.Address{owner, spender}, amount)
}

// spendAllowance returns what is left of owner's allowance to spender after
// amount is taken from it. Nothing is written.
func (t *Token) spendAllowance(owner, spender common.Address, amount *uint256.Int) (*uint256.Int, error) {
	allowed := t.state.allowance(owner, spender)
	remaining, short := new(uint256.Int).SubOverflow(allowed, amount)
	if short {
		return nil, fmt.Errorf("%w: %s allows %s %s, wants %s",
			ErrInsufficientAllowance, owner.Hex(), spender.Hex(), allowed.Dec(), amount.Dec())
	}
	return remaining, nil
}

// ---- Mintable / Burnable ----

func (t *Token) Mint(caller, to common.Address, amount *uint256.Int) (*Receipt, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.exec("mint", caller, func() error {
		if err := t.onlyOwner(caller); err != nil {
			return err
		}
		if t.state.flag(slotMintingFinished) {
			return ErrMintingFinished
		}
		if to == (common.Address{}) {
			return fmt.Errorf("%w: mint recipient", lockable.ErrZeroAddress)
		}
		return t.mint(to, amount)
	})
}

func (t *Token) mint(to common.Address, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return lockable.ErrInvalidAmount
	}
	supply, overflow := new(uint256.Int).AddOverflow(t.state.totalSupply(), amount)
	if overflow {
		return ErrSupplyOverflow
	}
	t.state.setTotalSupply(supply)
	t.state.Credit(to, amount)
	t.emit(TopicMint, []common.Address{to}, amount)
	t.emitTransfer(common.Address{}, to, amount)
	return nil
}

func (t *Token) FinishMint(caller common.Address) (*Receipt, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.exec("finishMint", caller, func() error {
		if err := t.onlyOwner(caller); err != nil {
			return err
		}
		if t.state.flag(slotMintingFinished) {
			return ErrMintingFinished
		}
		t.state.setFlag(slotMintingFinished, true)
		t.emit(TopicMintFinished, nil)
		return nil
	})
}

func (t *Token) MintingFinished() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.flag(slotMintingFinished)
}

func (t *Token) Burn(caller common.Address, amount *uint256.Int) (*Receipt, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.exec("burn", caller, func() error {
		if err := t.whenNotPaused(); err != nil {
			return err
		}
		if err := t.whenNotFrozen(caller); err != nil {
			return err
		}
		return t.burn(caller, amount)
	})
}

func (t *Token) BurnFrom(caller, from common.Address, amount *uint256.Int) (*Receipt, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.exec("burnFrom", caller, func() error {
		if err := t.whenNotPaused(); err != nil {
			return err
		}
		if err := t.whenNotFrozen(from); err != nil {
			return err
		}
		remaining, err := t.spendAllowance(from, caller, amount)
		if err != nil {
			return err
		}
		if err := t.burn(from, amount); err != nil {
			return err
		}
		t.approve(from, caller, remaining)
		return nil
	})
}

func (t *Token) burn(from common.Address, amount *uint256.Int) error {
	if err := t.locks.Guard.Require(from, amount); err != nil {
		return err
	}
	if err := t.state.Debit(from, amount); err != nil {
		return err
	}
	t.state.setTotalSupply(new(uint256.Int).Sub(t.state.totalSupply(), amount))
	t.emit(TopicBurn, []common.Address{from}, amount)
	t.emitTransfer(from, common.Address{}, amount)
	return nil
}

// ---- Pausable / Freezable ----

func (t *Token) Pause(caller common.Address) (*Receipt, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.exec("pause", caller, func() error {
		if err := t.onlyOwner(caller); err != nil {
			return err
		}
		if err := t.whenNotPaused(); err != nil {
			return err
		}
		t.state.setFlag(slotPaused, true)
		t.emit(TopicPaused, []common.Address{caller})
		return nil
	})
}

func (t *Token) Unpause(caller common.Address) (*Receipt, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.exec("unpause", caller, func() error {
		if err := t.onlyOwner(caller); err != nil {
			return err
		}
		if !t.state.flag(slotPaused) {
			return ErrNotPaused
		}
		t.state.setFlag(slotPaused, false)
		t.emit(TopicUnpaused, []common.Address{caller})
		return nil
	})
}

func (t *Token) Paused() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.flag(slotPaused)
}

func (t *Token) whenNotPaused() error {
	if t.state.flag(slotPaused) {
		return ErrPaused
	}
	return nil
}

func (t *Token) Freeze(caller, target common.Address) (*Receipt, error) {
	return t.setFrozen("freeze", caller, target, true)
}

func (t *Token) Unfreeze(caller, target common.Address) (*Receipt, error) {
	return t.setFrozen("unfreeze", caller, target, false)
}

func (t *Token) setFrozen(op string, caller, target common.Address, frozen bool) (*Receipt, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.exec(op, caller, func() error {
		if err := t.onlyOwner(caller); err != nil {
			return err
		}
		if target == (common.Address{}) {
			return fmt.Errorf("%w: %s target", lockable.ErrZeroAddress, op)
		}
		t.state.setFrozen(target, frozen)
		topic := TopicUnfreeze
		if frozen {
			topic = TopicFreeze
		}
		t.emit(topic, []common.Address{target})
		return nil
	})
}

func (t *Token) IsFrozen(a common.Address) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.frozen(a)
}

func (t *Token) whenNotFrozen(a common.Address) error {
	if t.state.frozen(a) {
		return fmt.Errorf("%w: %s", ErrFrozen, a.Hex())
	}
	return nil
}

// ---- Lockable ----

func (t *Token) Lock(caller, holder common.Address, amount *uint256.Int, due uint64) (*Receipt, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.exec("lock", caller, func() error {
		return t.locks.Admin.Lock(caller, holder, amount, due)
	})
}

func (t *Token) TransferWithLockUp(caller, to common.Address, amount *uint256.Int, due uint64) (*Receipt, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.exec("transferWithLockUp", caller, func() error {
		if err := t.whenNotPaused(); err != nil {
			return err
		}
		if err := t.whenNotFrozen(caller); err != nil {
			return err
		}
		return t.locks.Admin.TransferWithLockUp(caller, to, amount, due)
	})
}

// Unlock releases holder's entry at index if it is due. A pending entry
// yields ErrLockNotDue and no receipt.
func (t *Token) Unlock(caller, holder common.Address, index int) (*Receipt, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.exec("unlock", caller, func() error {
		_, err := t.locks.Reclaimer.Unlock(holder, index)
		return err
	})
}

func (t *Token) UnlockAll(caller, holder common.Address) (int, *Receipt, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var released int
	r, err := t.exec("unlockAll", caller, func() error {
		released = t.locks.Reclaimer.UnlockAll(holder)
		return nil
	})
	return released, r, err
}

func (t *Token) ReleaseLock(caller, holder common.Address) (int, *Receipt, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var released int
	r, err := t.exec("releaseLock", caller, func() error {
		var err error
		released, err = t.locks.Reclaimer.ReleaseLock(caller, holder)
		return err
	})
	return released, r, err
}

// SweepExpired releases the due entries of up to limit holders. A receipt is
// recorded only when something was released.
func (t *Token) SweepExpired(limit int) (holders, released int, r *Receipt) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.logs = nil
	holders, released = t.locks.Reclaimer.SweepExpired(limit)
	if released == 0 {
		return 0, 0, nil
	}
	observability.RecordTokenOp("sweepExpired", "", nil)
	return holders, released, t.record("sweepExpired", common.Address{})
}

func (t *Token) LockInfo(holder common.Address, index int) (*uint256.Int, uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.locks.LockInfo(holder, index)
}

func (t *Token) TotalLocked(holder common.Address) (*uint256.Int, int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.locks.TotalLocked(holder)
}

func (t *Token) LockEntries(holder common.Address) []lockable.LockEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.locks.Entries(holder)
}

func (t *Token) Spendable(holder common.Address) *uint256.Int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.locks.Guard.Spendable(holder)
}

func (t *Token) CheckLock(holder common.Address, amount *uint256.Int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.locks.Guard.CheckLock(holder, amount)
}

// ---- blocks ----

// ProduceBlock commits balances and locks in one batch and seals the pending
// receipts.
func (t *Token) ProduceBlock() (*protocol.Block, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	block, err := t.chain.ProduceBlock(func(height uint64) (common.Hash, error) {
		root, err := t.state.Commit(height, func(w ethdb.KeyValueWriter) error {
			return t.store.Write(w, t.locks.LockLedger)
		})
		if err != nil {
			return common.Hash{}, err
		}
		t.locks.ClearDirty()
		return root, nil
	})
	if err != nil {
		return nil, err
	}
	t.receipts.Seal(block.Receipts, block.Height, block.Hash())

	entries := 0
	for _, h := range t.locks.Holders() {
		_, n := t.locks.TotalLocked(h)
		entries += n
	}
	observability.SetLockEntries(entries)
	observability.SetBlockHeight(block.Height)
	return block, nil
}

func (t *Token) Head() *protocol.Block { return t.chain.Head() }

func (t *Token) Receipt(hash common.Hash) *Receipt { return t.receipts.GetReceipt(hash) }

func (t *Token) Now() uint64 { return t.chain.Now() }

// StateRoot is the root of the current state.
func (t *Token) StateRoot() common.Hash {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.Root()
}

func (t *Token) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.Close()
}
