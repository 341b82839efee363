package token

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
	"github.com/metaconcert/meco/internal/lockable"
)

var lockPrefix = []byte("lockable-")

// storedLock is the RLP form of a lock entry.
type storedLock struct {
	Amount *big.Int
	Due    uint64
}

// LockStore keeps lock lists next to the state trie in the same key-value
// database, one key per holder.
type LockStore struct {
	db ethdb.KeyValueStore
}

func NewLockStore(db ethdb.KeyValueStore) *LockStore {
	return &LockStore{db: db}
}

func lockKey(holder common.Address) []byte {
	return append(bytes.Clone(lockPrefix), holder.Bytes()...)
}

// Save writes the lists of every dirty holder in one batch and clears the
// dirty set.
func (s *LockStore) Save(ledger *lockable.LockLedger) error {
	batch := s.db.NewBatch()
	if err := s.Write(batch, ledger); err != nil {
		return err
	}
	if err := batch.Write(); err != nil {
		return fmt.Errorf("write lock batch: %w", err)
	}
	ledger.ClearDirty()
	return nil
}

// Write puts the lists of every dirty holder into w. Holders left without
// entries are deleted. The dirty set is kept; the caller clears it once w is
// durable.
func (s *LockStore) Write(w ethdb.KeyValueWriter, ledger *lockable.LockLedger) error {
	for _, holder := range ledger.Dirty() {
		entries := ledger.Entries(holder)
		if len(entries) == 0 {
			if err := w.Delete(lockKey(holder)); err != nil {
				return err
			}
			continue
		}
		stored := make([]storedLock, len(entries))
		for i, e := range entries {
			stored[i] = storedLock{Amount: e.Amount.ToBig(), Due: e.Due}
		}
		enc, err := rlp.EncodeToBytes(stored)
		if err != nil {
			return fmt.Errorf("encode locks of %s: %w", holder.Hex(), err)
		}
		if err := w.Put(lockKey(holder), enc); err != nil {
			return err
		}
	}
	return nil
}

// Load restores every stored list into ledger.
func (s *LockStore) Load(ledger *lockable.LockLedger) error {
	it := s.db.NewIterator(lockPrefix, nil)
	defer it.Release()

	for it.Next() {
		key := it.Key()
		if len(key) != len(lockPrefix)+common.AddressLength {
			continue
		}
		holder := common.BytesToAddress(key[len(lockPrefix):])

		var stored []storedLock
		if err := rlp.DecodeBytes(it.Value(), &stored); err != nil {
			return fmt.Errorf("decode locks of %s: %w", holder.Hex(), err)
		}
		entries := make([]lockable.LockEntry, len(stored))
		for i, sl := range stored {
			amount, overflow := uint256.FromBig(sl.Amount)
			if overflow {
				return fmt.Errorf("lock amount of %s overflows 256 bits", holder.Hex())
			}
			entries[i] = lockable.LockEntry{Amount: amount, Due: sl.Due}
		}
		ledger.Restore(holder, entries)
	}
	return it.Error()
}
