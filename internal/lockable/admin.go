package lockable

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Admin is the privileged path that creates lock entries.
type Admin struct {
	ledger   *LockLedger
	guard    *Guard
	balances BalanceLedger
	auth     Authorizer
	clock    Clock
	emitter  Emitter
}

func NewAdmin(ledger *LockLedger, guard *Guard, balances BalanceLedger, auth Authorizer, clock Clock, emitter Emitter) *Admin {
	if emitter == nil {
		emitter = NopEmitter{}
	}
	return &Admin{
		ledger:   ledger,
		guard:    guard,
		balances: balances,
		auth:     auth,
		clock:    clock,
		emitter:  emitter,
	}
}

// Lock encumbers amount of holder's existing balance until due. No tokens move.
func (a *Admin) Lock(caller, holder common.Address, amount *uint256.Int, due uint64) error {
	if err := a.requirePrivileged(caller); err != nil {
		return err
	}
	if holder == (common.Address{}) {
		return fmt.Errorf("%w: lock holder", ErrZeroAddress)
	}
	if err := checkTerms(amount, due, a.clock.Now()); err != nil {
		return err
	}
	return a.lock(holder, amount, due)
}

// TransferWithLockUp moves amount from caller to `to` and locks it there until
// due. Either both steps are applied or neither is.
func (a *Admin) TransferWithLockUp(caller, to common.Address, amount *uint256.Int, due uint64) error {
	if err := a.requirePrivileged(caller); err != nil {
		return err
	}
	if to == (common.Address{}) {
		return fmt.Errorf("%w: transfer recipient", ErrZeroAddress)
	}
	if err := checkTerms(amount, due, a.clock.Now()); err != nil {
		return err
	}
	if err := a.guard.Require(caller, amount); err != nil {
		return err
	}

	snap := a.balances.Snapshot()
	if err := a.balances.Transfer(caller, to, amount); err != nil {
		a.balances.RevertToSnapshot(snap)
		return fmt.Errorf("transfer with lock-up: %w", err)
	}
	if err := a.lock(to, amount, due); err != nil {
		a.balances.RevertToSnapshot(snap)
		return fmt.Errorf("transfer with lock-up: %w", err)
	}
	return nil
}

func (a *Admin) lock(holder common.Address, amount *uint256.Int, due uint64) error {
	if err := a.guard.Require(holder, amount); err != nil {
		return err
	}
	a.ledger.append(holder, LockEntry{Amount: amount, Due: due})
	a.emitter.EmitLock(holder, new(uint256.Int).Set(amount), due)
	return nil
}

func (a *Admin) requirePrivileged(caller common.Address) error {
	if !a.auth.IsPrivileged(caller) {
		return fmt.Errorf("%w: %s", ErrUnauthorized, caller.Hex())
	}
	return nil
}

func checkTerms(amount *uint256.Int, due, now uint64) error {
	if amount == nil || amount.IsZero() {
		return ErrInvalidAmount
	}
	if due <= now {
		return fmt.Errorf("%w: due %d, now %d", ErrInvalidDue, due, now)
	}
	return nil
}
