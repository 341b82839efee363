package token

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/metaconcert/meco/internal/lockable"
)

// IsPrivileged is the lock Authorizer: only the current owner, and nobody
// once ownership is renounced. t.mu must be held.
func (t *Token) IsPrivileged(caller common.Address) bool {
	owner := t.state.owner()
	return owner != (common.Address{}) && caller == owner
}

func (t *Token) onlyOwner(caller common.Address) error {
	if !t.IsPrivileged(caller) {
		return fmt.Errorf("%w: %s is not the owner", lockable.ErrUnauthorized, caller.Hex())
	}
	return nil
}

func (t *Token) setOwner(owner common.Address) {
	prev := t.state.owner()
	t.state.setOwner(owner)
	t.emit(TopicOwnershipTransferred, []common.Address{prev, owner})
}

func (t *Token) Owner() common.Address {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.owner()
}

func (t *Token) TransferOwnership(caller, newOwner common.Address) (*Receipt, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.exec("transferOwnership", caller, func() error {
		if err := t.onlyOwner(caller); err != nil {
			return err
		}
		if newOwner == (common.Address{}) {
			return fmt.Errorf("%w: new owner", lockable.ErrZeroAddress)
		}
		t.setOwner(newOwner)
		return nil
	})
}

// RenounceOwnership leaves the token without an owner. Privileged operations
// are impossible afterwards.
func (t *Token) RenounceOwnership(caller common.Address) (*Receipt, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.exec("renounceOwnership", caller, func() error {
		if err := t.onlyOwner(caller); err != nil {
			return err
		}
		t.setOwner(common.Address{})
		return nil
	})
}
