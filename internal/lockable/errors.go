package lockable

import "errors"

var (
	ErrInvalidDue            = errors.New("due time must be in the future")
	ErrInsufficientSpendable = errors.New("insufficient spendable balance")
	ErrIndexOutOfRange       = errors.New("lock index out of range")
	ErrLockNotDue            = errors.New("lock is not due yet")
	ErrZeroAddress           = errors.New("zero address")
	ErrUnauthorized          = errors.New("caller is not privileged")
	ErrInvalidAmount         = errors.New("amount must be greater than zero")
)

var codes = []struct {
	err  error
	code string
}{
	{ErrInvalidDue, "InvalidDue"},
	{ErrInsufficientSpendable, "InsufficientSpendable"},
	{ErrIndexOutOfRange, "IndexOutOfRange"},
	{ErrLockNotDue, "LockNotDue"},
	{ErrZeroAddress, "ZeroAddress"},
	{ErrUnauthorized, "Unauthorized"},
	{ErrInvalidAmount, "InvalidAmount"},
}

// Code returns the taxonomy name of err, or "" if err is not a lockable error.
func Code(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return ""
}
