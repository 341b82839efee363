package lockable

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// BalanceReader reads the current balance from the base ledger.
type BalanceReader interface {
	BalanceOf(holder common.Address) *uint256.Int
}

// BalanceLedger is the part of the base ledger the lock admin needs to move
// tokens. Snapshot and RevertToSnapshot make a transfer undoable when the
// lock that follows it fails.
type BalanceLedger interface {
	BalanceReader
	Transfer(from, to common.Address, amount *uint256.Int) error
	Snapshot() int
	RevertToSnapshot(id int)
}

// Authorizer answers whether caller may perform administrative operations.
type Authorizer interface {
	IsPrivileged(caller common.Address) bool
}

// Clock supplies the current time in unix seconds. It is read once per call.
type Clock interface {
	Now() uint64
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() uint64

func (f ClockFunc) Now() uint64 { return f() }

// Emitter receives Lock and Unlock notifications.
type Emitter interface {
	EmitLock(holder common.Address, amount *uint256.Int, due uint64)
	EmitUnlock(holder common.Address, amount *uint256.Int)
}

// NopEmitter drops every notification.
type NopEmitter struct{}

func (NopEmitter) EmitLock(common.Address, *uint256.Int, uint64) {}
func (NopEmitter) EmitUnlock(common.Address, *uint256.Int)       {}
