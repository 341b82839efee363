package token

import (
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

var (
	owner   = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	alice   = common.HexToAddress("0x1111111111111111111111111111111111111111")
	bob     = common.HexToAddress("0x2222222222222222222222222222222222222222")
	mallory = common.HexToAddress("0x3333333333333333333333333333333333333333")
)

const (
	genesisTime   = int64(1_700_000_000)
	genesisSupply = uint64(1_000_000)
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *testClock) set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func amt(v uint64) *uint256.Int { return uint256.NewInt(v) }

// newTestToken returns an in-memory token with genesisSupply minted to owner.
func newTestToken(t *testing.T) (*Token, *testClock) {
	t.Helper()
	st, err := NewMemoryState()
	require.NoError(t, err)
	clk := &testClock{now: time.Unix(genesisTime, 0)}
	tok, err := New(Metadata{Name: "META CONCERT", Symbol: "MECO", Decimals: 18}, st, NewChain(clk.Now))
	require.NoError(t, err)
	t.Cleanup(func() { tok.Close() })

	_, err = tok.Genesis(owner, amt(genesisSupply))
	require.NoError(t, err)
	return tok, clk
}

// fund moves v from owner to each of to.
func fund(t *testing.T, tok *Token, v uint64, to ...common.Address) {
	t.Helper()
	for _, a := range to {
		_, err := tok.Transfer(owner, a, amt(v))
		require.NoError(t, err)
	}
}

func after(tok *Token, sec uint64) uint64 {
	return tok.Now() + sec
}

func topics(r *Receipt) []common.Hash {
	out := make([]common.Hash, len(r.Logs))
	for i, l := range r.Logs {
		out[i] = l.Topics[0]
	}
	return out
}
