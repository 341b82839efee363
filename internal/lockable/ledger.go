package lockable

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// LockEntry encumbers Amount of a holder's balance until Due (unix seconds).
// Entries are never modified once stored; they are only removed whole.
type LockEntry struct {
	Amount *uint256.Int `json:"amount"`
	Due    uint64       `json:"due"`
}

func (e LockEntry) copy() LockEntry {
	return LockEntry{Amount: new(uint256.Int).Set(e.Amount), Due: e.Due}
}

type lockList struct {
	entries []LockEntry
	total   uint256.Int // sum of entries[i].Amount
}

// LockLedger owns the lock entries and the cached locked total of every
// holder.
//
// Indices are positions in a holder's list and are NOT stable: removing an
// entry moves the holder's last entry into the freed index. Callers must
// re-read LockInfo/TotalLocked after any removal instead of reusing an index.
type LockLedger struct {
	holders map[common.Address]*lockList
	dirty   map[common.Address]struct{}
}

func NewLockLedger() *LockLedger {
	return &LockLedger{
		holders: make(map[common.Address]*lockList),
		dirty:   make(map[common.Address]struct{}),
	}
}

// LockInfo returns the entry at index for holder.
func (l *LockLedger) LockInfo(holder common.Address, index int) (*uint256.Int, uint64, error) {
	list := l.holders[holder]
	if list == nil || index < 0 || index >= len(list.entries) {
		return nil, 0, fmt.Errorf("%w: holder %s index %d", ErrIndexOutOfRange, holder.Hex(), index)
	}
	e := list.entries[index]
	return new(uint256.Int).Set(e.Amount), e.Due, nil
}

// TotalLocked returns the cached locked sum and the number of entries.
func (l *LockLedger) TotalLocked(holder common.Address) (*uint256.Int, int) {
	list := l.holders[holder]
	if list == nil {
		return new(uint256.Int), 0
	}
	return new(uint256.Int).Set(&list.total), len(list.entries)
}

// Entries returns a copy of holder's entries in index order.
func (l *LockLedger) Entries(holder common.Address) []LockEntry {
	list := l.holders[holder]
	if list == nil {
		return nil
	}
	out := make([]LockEntry, len(list.entries))
	for i, e := range list.entries {
		out[i] = e.copy()
	}
	return out
}

// Holders returns every holder with at least one entry, ordered by address.
func (l *LockLedger) Holders() []common.Address {
	out := make([]common.Address, 0, len(l.holders))
	for h := range l.holders {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i][:], out[j][:]) < 0
	})
	return out
}

// Restore replaces holder's entries with entries. It is the load path for
// persisted state and must not be used to mutate a live ledger.
func (l *LockLedger) Restore(holder common.Address, entries []LockEntry) {
	if len(entries) == 0 {
		delete(l.holders, holder)
		return
	}
	list := &lockList{entries: make([]LockEntry, 0, len(entries))}
	for _, e := range entries {
		list.entries = append(list.entries, e.copy())
		list.total.Add(&list.total, e.Amount)
	}
	l.holders[holder] = list
}

// Dirty returns the holders whose entries changed since the last ClearDirty.
func (l *LockLedger) Dirty() []common.Address {
	out := make([]common.Address, 0, len(l.dirty))
	for h := range l.dirty {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i][:], out[j][:]) < 0
	})
	return out
}

func (l *LockLedger) ClearDirty() {
	l.dirty = make(map[common.Address]struct{})
}

func (l *LockLedger) count(holder common.Address) int {
	if list := l.holders[holder]; list != nil {
		return len(list.entries)
	}
	return 0
}

// due reports whether the entry at index is due at now. index must be valid.
func (l *LockLedger) due(holder common.Address, index int, now uint64) bool {
	return l.holders[holder].entries[index].Due <= now
}

func (l *LockLedger) append(holder common.Address, e LockEntry) {
	list := l.holders[holder]
	if list == nil {
		list = &lockList{}
		l.holders[holder] = list
	}
	e = e.copy()
	list.entries = append(list.entries, e)
	list.total.Add(&list.total, e.Amount)
	l.dirty[holder] = struct{}{}
}

// removeAt drops the entry at index by overwriting it with the last entry and
// shrinking the list. index must be valid.
func (l *LockLedger) removeAt(holder common.Address, index int) LockEntry {
	list := l.holders[holder]
	last := len(list.entries) - 1
	removed := list.entries[index]

	list.entries[index] = list.entries[last]
	list.entries[last] = LockEntry{}
	list.entries = list.entries[:last]
	list.total.Sub(&list.total, removed.Amount)

	if len(list.entries) == 0 {
		delete(l.holders, holder)
	}
	l.dirty[holder] = struct{}{}
	return removed
}
