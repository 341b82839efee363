package token

import (
	"errors"

	"github.com/metaconcert/meco/internal/lockable"
)

var (
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrPaused                = errors.New("token is paused")
	ErrNotPaused             = errors.New("token is not paused")
	ErrFrozen                = errors.New("account is frozen")
	ErrMintingFinished       = errors.New("minting is finished")
	ErrSupplyOverflow        = errors.New("total supply overflows")
	ErrAlreadyInitialized    = errors.New("token already initialized")
)

var codes = []struct {
	err  error
	code string
}{
	{ErrInsufficientBalance, "InsufficientBalance"},
	{ErrInsufficientAllowance, "InsufficientAllowance"},
	{ErrPaused, "Paused"},
	{ErrNotPaused, "NotPaused"},
	{ErrFrozen, "Frozen"},
	{ErrMintingFinished, "MintingFinished"},
	{ErrSupplyOverflow, "SupplyOverflow"},
	{ErrAlreadyInitialized, "AlreadyInitialized"},
}

// Code names err for API clients. Lock errors keep their lockable names;
// anything unknown is "".
func Code(err error) string {
	if c := lockable.Code(err); c != "" {
		return c
	}
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return ""
}
