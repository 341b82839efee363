package token

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// Address is the account whose storage holds the token bookkeeping and
// which every event log is attributed to.
var Address = common.HexToAddress("0x000000000000000000000000000000004d45434f")

// Storage layout of Address, following Solidity's rules for value and
// mapping slots.
const (
	slotOwner uint64 = iota
	slotPaused
	slotMintingFinished
	slotTotalSupply
	slotFrozen     // mapping(address => bool)
	slotAllowances // mapping(address => mapping(address => uint256))
)

func fixedSlot(n uint64) common.Hash {
	return common.Hash(uint256.NewInt(n).Bytes32())
}

func mappingSlot(key common.Hash, base common.Hash) common.Hash {
	return crypto.Keccak256Hash(key.Bytes(), base.Bytes())
}

func frozenSlot(addr common.Address) common.Hash {
	return mappingSlot(common.BytesToHash(addr.Bytes()), fixedSlot(slotFrozen))
}

func allowanceSlot(owner, spender common.Address) common.Hash {
	inner := mappingSlot(common.BytesToHash(owner.Bytes()), fixedSlot(slotAllowances))
	return mappingSlot(common.BytesToHash(spender.Bytes()), inner)
}

func boolWord(v bool) common.Hash {
	if v {
		return fixedSlot(1)
	}
	return common.Hash{}
}

func amountWord(v *uint256.Int) common.Hash {
	return common.Hash(v.Bytes32())
}

func wordAmount(h common.Hash) *uint256.Int {
	return new(uint256.Int).SetBytes32(h[:])
}

func (s *State) owner() common.Address {
	return common.BytesToAddress(s.getSlot(fixedSlot(slotOwner)).Bytes())
}

func (s *State) setOwner(a common.Address) {
	s.setSlot(fixedSlot(slotOwner), common.BytesToHash(a.Bytes()))
}

func (s *State) flag(slot uint64) bool {
	return s.getSlot(fixedSlot(slot)) != (common.Hash{})
}

func (s *State) setFlag(slot uint64, v bool) {
	s.setSlot(fixedSlot(slot), boolWord(v))
}

func (s *State) totalSupply() *uint256.Int {
	return wordAmount(s.getSlot(fixedSlot(slotTotalSupply)))
}

func (s *State) setTotalSupply(v *uint256.Int) {
	s.setSlot(fixedSlot(slotTotalSupply), amountWord(v))
}

func (s *State) frozen(a common.Address) bool {
	return s.getSlot(frozenSlot(a)) != (common.Hash{})
}

func (s *State) setFrozen(a common.Address, v bool) {
	s.setSlot(frozenSlot(a), boolWord(v))
}

func (s *State) allowance(owner, spender common.Address) *uint256.Int {
	return wordAmount(s.getSlot(allowanceSlot(owner, spender)))
}

func (s *State) setAllowance(owner, spender common.Address, v *uint256.Int) {
	s.setSlot(allowanceSlot(owner, spender), amountWord(v))
}
