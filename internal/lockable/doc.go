// Package lockable implements the time-lock ledger of the MECO token.
//
// A privileged caller can encumber part of a holder's balance until a due
// time. A holder may carry any number of independent lock entries; the ledger
// keeps a cached per-holder total so the spendable amount
// (balance - total locked) is available in O(1) on every outgoing transfer.
//
// The package is layered:
//
//	LockLedger  per-holder entry lists and cached totals
//	Guard       spendable-balance predicate and enforcement
//	Admin       privileged creation path (Lock, TransferWithLockUp)
//	Reclaimer   expiry-driven removal path (Unlock, UnlockAll, ReleaseLock)
//
// None of the types synchronize. The embedding ledger serializes calls and
// runs each one to completion before the next begins.
//
// Entries are removed by swapping the last entry into the vacated slot, so an
// index obtained from LockInfo or Entries is only valid until the next
// removal on the same holder.
package lockable
