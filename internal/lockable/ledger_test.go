package lockable

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/kylelemons/godebug/pretty"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockLedgerEmptyHolder(t *testing.T) {
	l := NewLockLedger()

	total, count := l.TotalLocked(holder)
	assert.True(t, total.IsZero())
	assert.Equal(t, 0, count)
	assert.Nil(t, l.Entries(holder))
	assert.Empty(t, l.Holders())

	_, _, err := l.LockInfo(holder, 0)
	assert.True(t, errors.Is(err, ErrIndexOutOfRange))
}

func TestLockLedgerAppendAndLockInfo(t *testing.T) {
	l := NewLockLedger()
	l.append(holder, LockEntry{Amount: u(10), Due: 100})
	l.append(holder, LockEntry{Amount: u(20), Due: 200})
	l.append(holder, LockEntry{Amount: u(30), Due: 300})

	total, count := l.TotalLocked(holder)
	assert.Equal(t, uint64(60), total.Uint64())
	assert.Equal(t, 3, count)

	amount, due, err := l.LockInfo(holder, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(20), amount.Uint64())
	assert.Equal(t, uint64(200), due)

	for _, idx := range []int{-1, 3, 100} {
		_, _, err := l.LockInfo(holder, idx)
		assert.ErrorIs(t, err, ErrIndexOutOfRange, "index %d", idx)
	}
}

func TestLockLedgerReturnsCopies(t *testing.T) {
	l := NewLockLedger()
	amount := u(10)
	l.append(holder, LockEntry{Amount: amount, Due: 100})
	amount.SetUint64(999)

	got, _, err := l.LockInfo(holder, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), got.Uint64())

	got.SetUint64(1)
	l.Entries(holder)[0].Amount.SetUint64(2)
	total, _ := l.TotalLocked(holder)
	total.SetUint64(3)

	again, _, _ := l.LockInfo(holder, 0)
	assert.Equal(t, uint64(10), again.Uint64())
	total, _ = l.TotalLocked(holder)
	assert.Equal(t, uint64(10), total.Uint64())
}

func TestLockLedgerRemoveAtSwapsLast(t *testing.T) {
	l := NewLockLedger()
	for i, amt := range []uint64{10, 20, 30, 40} {
		l.append(holder, LockEntry{Amount: u(amt), Due: uint64(i + 1)})
	}

	removed := l.removeAt(holder, 1)
	assert.Equal(t, uint64(20), removed.Amount.Uint64())

	want := []LockEntry{
		{Amount: u(10), Due: 1},
		{Amount: u(40), Due: 4},
		{Amount: u(30), Due: 3},
	}
	if diff := pretty.Compare(decEntries(want), decEntries(l.Entries(holder))); diff != "" {
		t.Errorf("entries after removeAt(1) (-want +got):\n%s", diff)
	}
	total, count := l.TotalLocked(holder)
	assert.Equal(t, uint64(80), total.Uint64())
	assert.Equal(t, 3, count)

	l.removeAt(holder, 2)
	l.removeAt(holder, 0)
	l.removeAt(holder, 0)
	total, count = l.TotalLocked(holder)
	assert.True(t, total.IsZero())
	assert.Equal(t, 0, count)
	assert.Empty(t, l.Holders(), "holder with no entries should be dropped")
}

func TestLockLedgerRestoreAndDirty(t *testing.T) {
	l := NewLockLedger()
	l.Restore(holder, []LockEntry{{Amount: u(5), Due: 10}, {Amount: u(7), Due: 20}})
	assert.Empty(t, l.Dirty(), "restore is not a mutation")

	total, count := l.TotalLocked(holder)
	assert.Equal(t, uint64(12), total.Uint64())
	assert.Equal(t, 2, count)

	l.append(recipient, LockEntry{Amount: u(1), Due: 1})
	l.removeAt(holder, 0)
	assert.Equal(t, []common.Address{holder, recipient}, l.Dirty())

	l.ClearDirty()
	assert.Empty(t, l.Dirty())

	l.Restore(holder, nil)
	assert.Equal(t, []common.Address{recipient}, l.Holders())
}

type decEntry struct {
	Amount string
	Due    uint64
}

func decEntries(es []LockEntry) []decEntry {
	out := make([]decEntry, len(es))
	for i, e := range es {
		out[i] = decEntry{Amount: e.Amount.Dec(), Due: e.Due}
	}
	return out
}
