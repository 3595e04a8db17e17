package stacks

import (
	"errors"
)

type Principal string

type Money uint64

func (m Money) Mul(n int) Money {
	return m * Money(n)
}

func (m Money) Div(n int) Money {
	return m / Money(n)
}

// Burnchain block header as seen by the contract runtime.
type BlockHeader struct {
	Height int64
	Hash   [32]byte
}

// Transaction context available during contract execution. Block height
// is not part of the context: it is read from the chain at call time so
// a single monotonic counter governs every table the call touches.
type CallContext struct {
	Sender Principal // transaction sender (stacks tx-sender)
}

var ErrInsufficientFunds = errors.New("stacks: insufficient funds")

// Chain is the slice of the host ledger the contract depends on: a
// monotonic block counter, the native token transfer primitive and
// burnchain header lookups used for payment anchoring.
type Chain interface {
	// Height returns the current block height. Monotonic per commit.
	Height() int64

	// Transfer moves amount from one account to another. Fails with
	// ErrInsufficientFunds, never partially.
	Transfer(amount Money, from, to Principal) error

	// BurnHeaderAt returns the burnchain header recorded at height.
	// Headers outside the retained window are unavailable.
	BurnHeaderAt(height int64) (BlockHeader, bool)
}
