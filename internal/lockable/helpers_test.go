package lockable

import (
	"errors"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

var (
	owner     = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	holder    = common.HexToAddress("0x1111111111111111111111111111111111111111")
	recipient = common.HexToAddress("0x2222222222222222222222222222222222222222")
	stranger  = common.HexToAddress("0x3333333333333333333333333333333333333333")
)

const genesisTime = uint64(1_700_000_000)

var errBalanceTooLow = errors.New("balance too low")

func u(v uint64) *uint256.Int { return uint256.NewInt(v) }

// memLedger is an in-memory BalanceLedger with map-copy snapshots.
type memLedger struct {
	balances map[common.Address]*uint256.Int
	snaps    []map[common.Address]*uint256.Int

	// debitOnlyThenFail debits the sender and then fails, to exercise rollback.
	debitOnlyThenFail bool
	// fee is withheld from every credit.
	fee uint64
}

func newMemLedger() *memLedger {
	return &memLedger{balances: make(map[common.Address]*uint256.Int)}
}

func (m *memLedger) set(a common.Address, v uint64) { m.balances[a] = u(v) }

func (m *memLedger) BalanceOf(a common.Address) *uint256.Int {
	if b := m.balances[a]; b != nil {
		return new(uint256.Int).Set(b)
	}
	return new(uint256.Int)
}

func (m *memLedger) Transfer(from, to common.Address, amount *uint256.Int) error {
	bal := m.BalanceOf(from)
	if bal.Lt(amount) {
		return errBalanceTooLow
	}
	m.balances[from] = new(uint256.Int).Sub(bal, amount)
	if m.debitOnlyThenFail {
		return errors.New("credit failed")
	}
	credit := new(uint256.Int).Sub(amount, u(m.fee))
	m.balances[to] = new(uint256.Int).Add(m.BalanceOf(to), credit)
	return nil
}

func (m *memLedger) Snapshot() int {
	cp := make(map[common.Address]*uint256.Int, len(m.balances))
	for k, v := range m.balances {
		cp[k] = new(uint256.Int).Set(v)
	}
	m.snaps = append(m.snaps, cp)
	return len(m.snaps) - 1
}

func (m *memLedger) RevertToSnapshot(id int) {
	m.balances = m.snaps[id]
	m.snaps = m.snaps[:id]
}

type ownerAuth struct{ owner common.Address }

func (a ownerAuth) IsPrivileged(c common.Address) bool { return c == a.owner }

type manualClock struct{ now uint64 }

func (c *manualClock) Now() uint64        { return c.now }
func (c *manualClock) advance(sec uint64) { c.now += sec }

type lockEvent struct {
	holder common.Address
	amount uint64
	due    uint64
}

type recorder struct {
	locks   []lockEvent
	unlocks []lockEvent
}

func (r *recorder) EmitLock(h common.Address, amount *uint256.Int, due uint64) {
	r.locks = append(r.locks, lockEvent{h, amount.Uint64(), due})
}

func (r *recorder) EmitUnlock(h common.Address, amount *uint256.Int) {
	r.unlocks = append(r.unlocks, lockEvent{holder: h, amount: amount.Uint64()})
}

type fixture struct {
	*Lockable
	balances *memLedger
	clock    *manualClock
	events   *recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		balances: newMemLedger(),
		clock:    &manualClock{now: genesisTime},
		events:   &recorder{},
	}
	f.Lockable = New(f.balances, ownerAuth{owner}, f.clock, f.events)
	return f
}

// requireConsistent checks the cached aggregate of every holder against its
// entries and its balance.
func (f *fixture) requireConsistent(t *testing.T) {
	t.Helper()
	for h, list := range f.holders {
		sum := new(uint256.Int)
		for _, e := range list.entries {
			sum.Add(sum, e.Amount)
		}
		total, count := f.TotalLocked(h)
		require.Equal(t, sum.Dec(), total.Dec(), "cached total drifted for %s:\n%s", h.Hex(), dump.Sdump(list.entries))
		require.Equal(t, len(list.entries), count)
		require.NotEmpty(t, list.entries, "empty list kept for %s", h.Hex())
		require.False(t, total.Gt(f.balances.BalanceOf(h)), "locked exceeds balance for %s", h.Hex())
	}
}

// dump prints values only, so fresh copies of equal entries compare equal.
var dump = spew.ConfigState{Indent: " ", DisablePointerAddresses: true, DisableCapacities: true, SortKeys: true}

// snapshotState captures everything observable about holder for equality checks.
func (f *fixture) snapshotState(h common.Address) string {
	total, count := f.TotalLocked(h)
	return dump.Sdump(f.Entries(h), total.Dec(), count, f.balances.BalanceOf(h).Dec())
}
