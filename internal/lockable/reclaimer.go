package lockable

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Reclaimer removes expired lock entries. Removal of a due entry needs no
// privilege: once due, the entry no longer encumbers anything.
type Reclaimer struct {
	ledger  *LockLedger
	auth    Authorizer
	clock   Clock
	emitter Emitter
}

func NewReclaimer(ledger *LockLedger, auth Authorizer, clock Clock, emitter Emitter) *Reclaimer {
	if emitter == nil {
		emitter = NopEmitter{}
	}
	return &Reclaimer{ledger: ledger, auth: auth, clock: clock, emitter: emitter}
}

// Unlock removes holder's entry at index if it is due. A not-yet-due entry
// yields (false, ErrLockNotDue) and leaves the ledger untouched.
//
// The holder's last entry takes over index after a successful removal.
func (r *Reclaimer) Unlock(holder common.Address, index int) (bool, error) {
	if index < 0 || index >= r.ledger.count(holder) {
		return false, fmt.Errorf("%w: holder %s index %d", ErrIndexOutOfRange, holder.Hex(), index)
	}
	now := r.clock.Now()
	if !r.ledger.due(holder, index, now) {
		return false, fmt.Errorf("%w: holder %s index %d", ErrLockNotDue, holder.Hex(), index)
	}
	r.release(holder, index)
	return true, nil
}

// UnlockAll removes every due entry of holder and returns how many were
// removed. Entries that are not due stay, at unspecified indices.
func (r *Reclaimer) UnlockAll(holder common.Address) int {
	now := r.clock.Now()
	released := 0
	// Walk down: removeAt only moves the entry from the last index, which has
	// already been examined, so nothing is skipped.
	for i := r.ledger.count(holder) - 1; i >= 0; i-- {
		if r.ledger.due(holder, i, now) {
			r.release(holder, i)
			released++
		}
	}
	return released
}

// ReleaseLock is UnlockAll for callers acting on their own locks. A
// privileged caller may release on behalf of any holder.
func (r *Reclaimer) ReleaseLock(caller, holder common.Address) (int, error) {
	if caller != holder && !r.auth.IsPrivileged(caller) {
		return 0, fmt.Errorf("%w: %s cannot release locks of %s", ErrUnauthorized, caller.Hex(), holder.Hex())
	}
	return r.UnlockAll(holder), nil
}

// SweepExpired runs UnlockAll over up to limit holders that have at least one
// due entry. A limit <= 0 means no limit.
func (r *Reclaimer) SweepExpired(limit int) (holders, released int) {
	now := r.clock.Now()
	for _, h := range r.ledger.Holders() {
		if limit > 0 && holders >= limit {
			break
		}
		if !r.hasDue(h, now) {
			continue
		}
		holders++
		released += r.UnlockAll(h)
	}
	return holders, released
}

func (r *Reclaimer) hasDue(holder common.Address, now uint64) bool {
	for i := 0; i < r.ledger.count(holder); i++ {
		if r.ledger.due(holder, i, now) {
			return true
		}
	}
	return false
}

func (r *Reclaimer) release(holder common.Address, index int) {
	removed := r.ledger.removeAt(holder, index)
	r.emitter.EmitUnlock(holder, removed.Amount)
}
