package token

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/ethereum/go-ethereum/core/state"
	"github.com/ethereum/go-ethereum/core/tracing"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/ethdb/leveldb"
	"github.com/ethereum/go-ethereum/triedb"
	"github.com/holiman/uint256"
)

const chainDirName = "chaindata"

// headRootKey records the root of the last committed state. It is written in
// the same batch as the side tables, so a reopened store never pairs a state
// root with side tables from another block.
var headRootKey = []byte("meco-head-root")

// State wraps geth's StateDB. Account balances are token balances; the
// token's own bookkeeping lives in the storage of Address.
type State struct {
	kv         ethdb.Database
	trieDB     *triedb.Database
	db         state.Database
	stateDB    *state.StateDB
	persistent bool
}

// NewMemoryState creates an in-memory state (for tests and ephemeral nodes)
func NewMemoryState() (*State, error) {
	return newState(rawdb.NewMemoryDatabase(), types.EmptyRootHash, false)
}

// OpenState opens the leveldb-backed state under dir, resuming from the root
// recorded by the last Commit. A fresh store starts from the empty root.
func OpenState(dir string) (*State, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	ldb, err := leveldb.New(filepath.Join(dir, chainDirName), 128, 1024, "", false)
	if err != nil {
		return nil, fmt.Errorf("open leveldb: %w", err)
	}
	kv := rawdb.NewDatabase(ldb)
	root, err := readRoot(kv)
	if err != nil {
		kv.Close()
		return nil, err
	}
	s, err := newState(kv, root, true)
	if err != nil {
		kv.Close()
		return nil, err
	}
	return s, nil
}

func newState(kv ethdb.Database, root common.Hash, persistent bool) (*State, error) {
	tdb := triedb.NewDatabase(kv, nil)
	db := state.NewDatabase(tdb, nil)
	stateDB, err := state.New(root, db)
	if err != nil {
		return nil, fmt.Errorf("open state at %s: %w", root.Hex(), err)
	}
	return &State{kv: kv, trieDB: tdb, db: db, stateDB: stateDB, persistent: persistent}, nil
}

func readRoot(kv ethdb.KeyValueReader) (common.Hash, error) {
	ok, err := kv.Has(headRootKey)
	if err != nil {
		return common.Hash{}, fmt.Errorf("read state root: %w", err)
	}
	if !ok {
		return types.EmptyRootHash, nil
	}
	data, err := kv.Get(headRootKey)
	if err != nil {
		return common.Hash{}, fmt.Errorf("read state root: %w", err)
	}
	if len(data) != common.HashLength {
		return common.Hash{}, fmt.Errorf("invalid state root %x", data)
	}
	return common.BytesToHash(data), nil
}

// Persistent reports whether Commit writes through to disk.
func (s *State) Persistent() bool { return s.persistent }

// Commit commits the current state at blockNum and returns the new root.
// Trie nodes are flushed first; sidecar then adds its writes to the batch
// that records the new root, and that batch is the commit point. When
// sidecar or the batch fails the stored root stays at the previous block.
func (s *State) Commit(blockNum uint64, sidecar func(ethdb.KeyValueWriter) error) (common.Hash, error) {
	root, err := s.stateDB.Commit(blockNum, false, false)
	if err != nil {
		return common.Hash{}, fmt.Errorf("commit state: %w", err)
	}
	// Recreate StateDB at the new root so cached tries aren't reused after commit
	stateDB, err := state.New(root, s.db)
	if err != nil {
		return common.Hash{}, fmt.Errorf("reload state at %s: %w", root.Hex(), err)
	}
	s.stateDB = stateDB

	if s.persistent {
		if err := s.trieDB.Commit(root, false); err != nil {
			return common.Hash{}, fmt.Errorf("flush trie: %w", err)
		}
	}
	batch := s.kv.NewBatch()
	if sidecar != nil {
		if err := sidecar(batch); err != nil {
			return common.Hash{}, err
		}
	}
	if err := batch.Put(headRootKey, root.Bytes()); err != nil {
		return common.Hash{}, err
	}
	if err := batch.Write(); err != nil {
		return common.Hash{}, fmt.Errorf("write commit batch: %w", err)
	}
	return root, nil
}

// Root returns the current state root without committing
func (s *State) Root() common.Hash {
	return s.stateDB.IntermediateRoot(false)
}

func (s *State) Close() error {
	return s.kv.Close()
}

func (s *State) BalanceOf(addr common.Address) *uint256.Int {
	return new(uint256.Int).Set(s.stateDB.GetBalance(addr))
}

func (s *State) Credit(addr common.Address, amount *uint256.Int) {
	s.stateDB.AddBalance(addr, amount, tracing.BalanceChangeTransfer)
}

// Debit subtracts amount from addr, failing without a change when the
// balance is short.
func (s *State) Debit(addr common.Address, amount *uint256.Int) error {
	if s.stateDB.GetBalance(addr).Lt(amount) {
		return fmt.Errorf("%w: %s has %s, needs %s",
			ErrInsufficientBalance, addr.Hex(), s.stateDB.GetBalance(addr).Dec(), amount.Dec())
	}
	s.stateDB.SubBalance(addr, amount, tracing.BalanceChangeTransfer)
	return nil
}

func (s *State) Snapshot() int { return s.stateDB.Snapshot() }

func (s *State) RevertToSnapshot(id int) { s.stateDB.RevertToSnapshot(id) }

func (s *State) getSlot(slot common.Hash) common.Hash {
	return s.stateDB.GetState(Address, slot)
}

func (s *State) setSlot(slot, value common.Hash) {
	s.stateDB.SetState(Address, slot, value)
}

// KV returns the underlying key-value database
func (s *State) KV() ethdb.Database {
	return s.kv
}
