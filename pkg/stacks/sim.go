package stacks

import (
	"crypto/sha256"
	"encoding/binary"
)

// DefaultHeaderWindow is how many burnchain headers the simulator
// retains. Real nodes prune old headers, so anchor lookups for heights
// below the window must be able to fail.
const DefaultHeaderWindow = 1000

// Sim is an in-process stand-in for the host ledger: account balances,
// a block counter and a deterministic burnchain header history. All
// methods are single-threaded like the host's transaction ordering.
type Sim struct {
	height   int64
	balances map[Principal]Money
	headers  map[int64]BlockHeader
	window   int64
}

func NewSim() *Sim {
	s := &Sim{
		balances: make(map[Principal]Money),
		headers:  make(map[int64]BlockHeader),
		window:   DefaultHeaderWindow,
	}
	s.headers[0] = s.makeHeader(0, [32]byte{})
	return s
}

func (s *Sim) Height() int64 {
	return s.height
}

// Advance mines n empty blocks.
func (s *Sim) Advance(n int64) {
	for i := int64(0); i < n; i++ {
		parent := s.headers[s.height].Hash
		s.height++
		s.headers[s.height] = s.makeHeader(s.height, parent)
		if old := s.height - s.window; old >= 0 {
			delete(s.headers, old)
		}
	}
}

func (s *Sim) Fund(acct Principal, amount Money) {
	s.balances[acct] += amount
}

func (s *Sim) Balance(acct Principal) Money {
	return s.balances[acct]
}

func (s *Sim) Transfer(amount Money, from, to Principal) error {
	if s.balances[from] < amount {
		return ErrInsufficientFunds
	}
	s.balances[from] -= amount
	s.balances[to] += amount
	return nil
}

func (s *Sim) BurnHeaderAt(height int64) (BlockHeader, bool) {
	h, ok := s.headers[height]
	return h, ok
}

func (s *Sim) makeHeader(height int64, parent [32]byte) BlockHeader {
	var buf [40]byte
	binary.BigEndian.PutUint64(buf[:8], uint64(height))
	copy(buf[8:], parent[:])
	return BlockHeader{Height: height, Hash: sha256.Sum256(buf[:])}
}
