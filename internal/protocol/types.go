package protocol

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Wire types of the token API. Addresses are 0x hex; amounts and dues are
// decimal strings so 256-bit values survive JSON.

// ParseAmount parses a decimal base-unit amount.
func ParseAmount(s string) (*uint256.Int, error) {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return v, nil
}

type TransferRequest struct {
	Caller common.Address `json:"caller"`
	To     common.Address `json:"to"`
	Amount string         `json:"amount"`
}

type TransferFromRequest struct {
	Caller common.Address `json:"caller"`
	From   common.Address `json:"from"`
	To     common.Address `json:"to"`
	Amount string         `json:"amount"`
}

type ApproveRequest struct {
	Caller  common.Address `json:"caller"`
	Spender common.Address `json:"spender"`
	Amount  string         `json:"amount"`
}

type MintRequest struct {
	Caller common.Address `json:"caller"`
	To     common.Address `json:"to"`
	Amount string         `json:"amount"`
}

type BurnRequest struct {
	Caller common.Address `json:"caller"`
	Amount string         `json:"amount"`
}

type BurnFromRequest struct {
	Caller common.Address `json:"caller"`
	From   common.Address `json:"from"`
	Amount string         `json:"amount"`
}

// CallerRequest carries calls whose only argument is the caller: pause,
// unpause, finish minting, renounce ownership.
type CallerRequest struct {
	Caller common.Address `json:"caller"`
}

// TargetRequest carries owner calls on one account: freeze, unfreeze,
// ownership transfer.
type TargetRequest struct {
	Caller common.Address `json:"caller"`
	Target common.Address `json:"target"`
}

type LockRequest struct {
	Caller common.Address `json:"caller"`
	Holder common.Address `json:"holder"`
	Amount string         `json:"amount"`
	Due    uint64         `json:"due,string"`
}

type UnlockRequest struct {
	Caller common.Address `json:"caller"`
	Holder common.Address `json:"holder"`
	Index  int            `json:"index"`
}

// HolderRequest carries unlock-all and release-lock.
type HolderRequest struct {
	Caller common.Address `json:"caller"`
	Holder common.Address `json:"holder"`
}

type TransferWithLockUpRequest struct {
	Caller common.Address `json:"caller"`
	To     common.Address `json:"to"`
	Amount string         `json:"amount"`
	Due    uint64         `json:"due,string"`
}

// TxResponse answers every mutating call. Unlocked and Released are set by
// the unlock family only.
type TxResponse struct {
	Success  bool         `json:"success"`
	TxHash   *common.Hash `json:"tx_hash,omitempty"`
	Error    string       `json:"error,omitempty"`
	Code     string       `json:"code,omitempty"`
	Unlocked *bool        `json:"unlocked,omitempty"`
	Released *int         `json:"released,omitempty"`
}

type BalanceResponse struct {
	Address   common.Address `json:"address"`
	Balance   string         `json:"balance"`
	Spendable string         `json:"spendable"`
	Frozen    bool           `json:"frozen"`
}

type AllowanceResponse struct {
	Owner     common.Address `json:"owner"`
	Spender   common.Address `json:"spender"`
	Allowance string         `json:"allowance"`
}

type LockEntry struct {
	Index  int    `json:"index"`
	Amount string `json:"amount"`
	Due    uint64 `json:"due,string"`
}

type LocksResponse struct {
	Address   common.Address `json:"address"`
	Total     string         `json:"total"`
	Count     int            `json:"count"`
	Spendable string         `json:"spendable"`
	Entries   []LockEntry    `json:"entries"`
}

type LockInfoResponse struct {
	Address common.Address `json:"address"`
	LockEntry
}

type CheckLockResponse struct {
	Address common.Address `json:"address"`
	Amount  string         `json:"amount"`
	Allowed bool           `json:"allowed"`
}

type InfoResponse struct {
	Name            string         `json:"name"`
	Symbol          string         `json:"symbol"`
	Decimals        uint8          `json:"decimals"`
	TotalSupply     string         `json:"total_supply"`
	Owner           common.Address `json:"owner"`
	Paused          bool           `json:"paused"`
	MintingFinished bool           `json:"minting_finished"`
	Height          uint64         `json:"height"`
	Now             uint64         `json:"now,string"`
}
