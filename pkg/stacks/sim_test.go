package stacks

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimTransfer(t *testing.T) {
	s := NewSim()
	s.Fund("alice", 1000)

	assert.NoError(t, s.Transfer(400, "alice", "bob"), "funded transfer")
	assert.Equal(t, Money(600), s.Balance("alice"), "sender debited")
	assert.Equal(t, Money(400), s.Balance("bob"), "recipient credited")

	err := s.Transfer(601, "alice", "bob")
	assert.ErrorIs(t, err, ErrInsufficientFunds, "overdraw rejected")
	assert.Equal(t, Money(600), s.Balance("alice"), "no partial transfer")
	assert.Equal(t, Money(400), s.Balance("bob"), "no partial transfer")
}

func TestSimAdvance(t *testing.T) {
	s := NewSim()
	assert.Zero(t, s.Height(), "genesis height")

	s.Advance(5)
	assert.Equal(t, int64(5), s.Height(), "height after mining")

	h4, ok := s.BurnHeaderAt(4)
	assert.True(t, ok, "header available")
	h5, ok := s.BurnHeaderAt(5)
	assert.True(t, ok, "tip header available")
	assert.NotEqual(t, h4.Hash, h5.Hash, "headers differ per height")
	assert.Equal(t, int64(5), h5.Height, "header height")

	_, ok = s.BurnHeaderAt(6)
	assert.False(t, ok, "future header unavailable")
}

func TestSimHeaderWindow(t *testing.T) {
	s := NewSim()
	s.Advance(DefaultHeaderWindow + 10)

	_, ok := s.BurnHeaderAt(0)
	assert.False(t, ok, "pruned header unavailable")
	_, ok = s.BurnHeaderAt(9)
	assert.False(t, ok, "pruned header unavailable")
	_, ok = s.BurnHeaderAt(11)
	assert.True(t, ok, "header inside the window")
	_, ok = s.BurnHeaderAt(s.Height())
	assert.True(t, ok, "tip header")
}

func TestSimDeterministicHeaders(t *testing.T) {
	a := NewSim()
	b := NewSim()
	a.Advance(20)
	b.Advance(20)
	ha, _ := a.BurnHeaderAt(20)
	hb, _ := b.BurnHeaderAt(20)
	assert.Equal(t, ha, hb, "header chain is deterministic")
}
