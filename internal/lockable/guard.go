package lockable

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Guard decides whether a holder may spend an amount given its locks.
type Guard struct {
	ledger   *LockLedger
	balances BalanceReader
}

func NewGuard(ledger *LockLedger, balances BalanceReader) *Guard {
	return &Guard{ledger: ledger, balances: balances}
}

// Spendable returns balance minus locked total, floored at zero.
func (g *Guard) Spendable(holder common.Address) *uint256.Int {
	balance := g.balances.BalanceOf(holder)
	locked, _ := g.ledger.TotalLocked(holder)
	spendable, underflow := new(uint256.Int).SubOverflow(balance, locked)
	if underflow {
		return new(uint256.Int)
	}
	return spendable
}

// CheckLock reports whether holder can spend amount right now.
func (g *Guard) CheckLock(holder common.Address, amount *uint256.Int) bool {
	return !amount.Gt(g.Spendable(holder))
}

// Require is the enforcement form of CheckLock. It must run before any state
// that decreases holder's balance is touched.
func (g *Guard) Require(holder common.Address, amount *uint256.Int) error {
	if !g.CheckLock(holder, amount) {
		return fmt.Errorf("%w: %s wants %s, spendable %s",
			ErrInsufficientSpendable, holder.Hex(), amount.Dec(), g.Spendable(holder).Dec())
	}
	return nil
}
