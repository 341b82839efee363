package lockable

// Lockable wires the four components over one shared ledger.
type Lockable struct {
	*LockLedger
	Guard     *Guard
	Admin     *Admin
	Reclaimer *Reclaimer
}

func New(balances BalanceLedger, auth Authorizer, clock Clock, emitter Emitter) *Lockable {
	return Wrap(NewLockLedger(), balances, auth, clock, emitter)
}

// Wrap builds the components around an existing ledger, e.g. one restored
// from storage.
func Wrap(ledger *LockLedger, balances BalanceLedger, auth Authorizer, clock Clock, emitter Emitter) *Lockable {
	guard := NewGuard(ledger, balances)
	return &Lockable{
		LockLedger: ledger,
		Guard:      guard,
		Admin:      NewAdmin(ledger, guard, balances, auth, clock, emitter),
		Reclaimer:  NewReclaimer(ledger, auth, clock, emitter),
	}
}
