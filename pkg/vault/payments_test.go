package vault

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aoakande/gene-vault-stacks/pkg/stacks"
)

func fundedVault(t *testing.T) (*stacks.Sim, *Vault) {
	chain, v := newTestVault()
	chain.Fund(RESEARCHER, 100000)
	assert.NoError(t, v.RegisterSegment(as(PROVIDER), "seg-1", testHash(1), "wgs", AccessRestricted, 1000))
	return chain, v
}

func TestProcessPayment(t *testing.T) {
	chain, v := fundedVault(t)
	err := v.ProcessPayment(as(RESEARCHER), "pay-1", PROVIDER, []SegmentID{"seg-1"}, 1000)
	assert.NoError(t, err, "payment accepted")

	p, ok := v.GetPayment("pay-1")
	assert.True(t, ok, "payment stored")
	assert.Equal(t, stacks.Principal(RESEARCHER), p.Payer, "payer")
	assert.Equal(t, stacks.Principal(PROVIDER), p.Recipient, "recipient")
	assert.Equal(t, stacks.Money(1000), p.Amount, "amount")
	assert.False(t, p.Processed, "not settled yet")
	if assert.NotNil(t, p.Anchor, "anchored on creation") {
		assert.Equal(t, chain.Height(), p.Anchor.BtcHeight, "anchor height")
		hdr, _ := chain.BurnHeaderAt(chain.Height() - 1)
		assert.Equal(t, hdr.Hash, p.Anchor.BtcHash, "anchor hash is the prior sealed header")
	}

	// escrow and fee split: 5% of 1000 to treasury, 950 credited
	assert.Equal(t, stacks.Money(1000), chain.Balance(CONTRACT), "escrow holds the full amount")
	assert.Equal(t, stacks.Money(99000), chain.Balance(RESEARCHER), "payer debited")
	rev := v.GetProviderRevenue(PROVIDER)
	assert.Equal(t, stacks.Money(950), rev.PendingWithdrawals, "claimable credit")
	assert.Equal(t, stacks.Money(950), rev.TotalEarned, "accrued credit")
	assert.Equal(t, uint64(1), rev.TotalSegmentsUsed, "segments used counter")
	assert.Equal(t, stacks.Money(50), v.Stats().Treasury, "treasury fee")
	assert.Equal(t, uint64(1), v.Stats().TotalPayments, "payment counter")
	assert.Equal(t, stacks.Money(1000), v.Stats().TotalPaymentVolume, "volume")
}

func TestProcessPaymentValidation(t *testing.T) {
	chain, v := fundedVault(t)
	assert.NoError(t, v.ProcessPayment(as(RESEARCHER), "pay-1", PROVIDER, []SegmentID{"seg-1"}, 1000))

	err := v.ProcessPayment(as(RESEARCHER), "pay-1", PROVIDER, []SegmentID{"seg-1"}, 1000)
	assert.ErrorIs(t, err, ErrAlreadyExists, "payment ids are unique")
	err = v.ProcessPayment(as(RESEARCHER), "pay-2", PROVIDER, nil, 1000)
	assert.ErrorIs(t, err, ErrInvalidParameters, "empty segment list")
	err = v.ProcessPayment(as(RESEARCHER), "pay-2", PROVIDER, []SegmentID{"seg-1"}, MIN_PAYMENT-1)
	assert.ErrorIs(t, err, ErrInvalidParameters, "below minimum")

	big := make([]SegmentID, MAX_SEGMENTS_PER_PAYMENT+1)
	for i := range big {
		big[i] = "seg-1"
	}
	err = v.ProcessPayment(as(RESEARCHER), "pay-2", PROVIDER, big, 1000)
	assert.ErrorIs(t, err, ErrCapacityExceeded, "segment list too long")

	err = v.ProcessPayment(as(STRANGER), "pay-2", PROVIDER, []SegmentID{"seg-1"}, 1000)
	assert.ErrorIs(t, err, ErrInsufficientFunds, "unfunded payer")
	_, ok := v.GetPayment("pay-2")
	assert.False(t, ok, "failed payment leaves no record")
	assert.Equal(t, stacks.Money(950), v.GetProviderRevenue(PROVIDER).PendingWithdrawals, "no credit from failures")
	assert.Equal(t, uint64(1), v.Stats().TotalPayments, "counter unchanged")
	assert.Equal(t, stacks.Money(1000), chain.Balance(CONTRACT), "escrow only holds the accepted payment")
}

func TestCompletePayment(t *testing.T) {
	chain, v := fundedVault(t)
	assert.NoError(t, v.ProcessPayment(as(RESEARCHER), "pay-1", PROVIDER, []SegmentID{"seg-1"}, 1000))

	err := v.CompletePayment(as(RESEARCHER), "pay-missing")
	assert.ErrorIs(t, err, ErrNotFound, "unknown payment")

	// five confirmations are not enough
	chain.Advance(CONFIRMATIONS_REQUIRED - 1)
	err = v.CompletePayment(as(RESEARCHER), "pay-1")
	assert.ErrorIs(t, err, ErrNotConfirmed, "confirmations pending")
	assert.ErrorIs(t, err, ErrInvalidParameters, "pending confirmations are an invalid-parameters kind")
	p, _ := v.GetPayment("pay-1")
	assert.False(t, p.Processed, "still unsettled")

	// exactly six confirmations settle
	chain.Advance(1)
	assert.NoError(t, v.CompletePayment(as(RESEARCHER), "pay-1"))
	p, _ = v.GetPayment("pay-1")
	assert.True(t, p.Processed, "settled")
	assert.Equal(t, stacks.Money(950), chain.Balance(PROVIDER), "net amount transferred")
	assert.Equal(t, stacks.Money(50), chain.Balance(CONTRACT), "fee stays in escrow")

	err = v.CompletePayment(as(RESEARCHER), "pay-1")
	assert.ErrorIs(t, err, ErrAlreadyProcessed, "settlement is final")
}

type noAnchor struct{}

func (noAnchor) TryAnchor(int64) (AnchorRef, bool)  { return AnchorRef{}, false }
func (noAnchor) ConfirmationsSince(AnchorRef) int64 { return 0 }

func TestCompletePaymentUnanchored(t *testing.T) {
	chain, v := fundedVault(t)

	// anchor failure does not abort the payment
	v.SetOracle(noAnchor{})
	assert.NoError(t, v.ProcessPayment(as(RESEARCHER), "pay-1", PROVIDER, []SegmentID{"seg-1"}, 1000))
	p, _ := v.GetPayment("pay-1")
	assert.Nil(t, p.Anchor, "no anchor captured")

	chain.Advance(CONFIRMATIONS_REQUIRED)
	err := v.CompletePayment(as(RESEARCHER), "pay-1")
	assert.ErrorIs(t, err, ErrNotAnchored, "unanchored payment cannot settle")

	// manual re-anchor once headers are available again
	v.SetOracle(BurnOracle{Chain: chain})
	assert.NoError(t, v.AnchorPayment(as(RESEARCHER), "pay-1"))
	p, _ = v.GetPayment("pay-1")
	if assert.NotNil(t, p.Anchor, "re-anchored") {
		assert.Equal(t, chain.Height(), p.Anchor.BtcHeight, "anchored at current height")
	}
	anchored := *p.Anchor

	// the anchor is set at most once
	chain.Advance(2)
	assert.NoError(t, v.AnchorPayment(as(RESEARCHER), "pay-1"))
	p, _ = v.GetPayment("pay-1")
	assert.Equal(t, anchored, *p.Anchor, "second anchor attempt is a no-op")

	err = v.AnchorPayment(as(RESEARCHER), "pay-missing")
	assert.ErrorIs(t, err, ErrNotFound, "unknown payment")

	chain.Advance(CONFIRMATIONS_REQUIRED - 2)
	assert.NoError(t, v.CompletePayment(as(RESEARCHER), "pay-1"))
}

func TestWithdrawEarnings(t *testing.T) {
	chain, v := fundedVault(t)
	assert.NoError(t, v.ProcessPayment(as(RESEARCHER), "pay-1", PROVIDER, []SegmentID{"seg-1"}, 1000))

	// the optimistic credit is withdrawable before settlement as long
	// as the contract account covers it
	amount, err := v.WithdrawEarnings(as(PROVIDER))
	assert.NoError(t, err, "withdraw before settlement")
	assert.Equal(t, stacks.Money(950), amount, "full claimable balance")
	assert.Equal(t, stacks.Money(950), chain.Balance(PROVIDER), "funds moved")

	rev := v.GetProviderRevenue(PROVIDER)
	assert.Zero(t, rev.PendingWithdrawals, "balance zeroed")
	assert.Equal(t, stacks.Money(950), rev.TotalEarned, "accrued total untouched")
	assert.Equal(t, chain.Height(), rev.LastWithdrawal, "withdrawal height recorded")

	_, err = v.WithdrawEarnings(as(PROVIDER))
	assert.ErrorIs(t, err, ErrInsufficientFunds, "second withdrawal without new credit")
}

func TestWithdrawWithoutEscrowBacking(t *testing.T) {
	chain, v := newTestVault()

	// citation bonuses credit the revenue ledger without moving any
	// funds into escrow, so the withdrawal transfer itself can fail
	assert.NoError(t, v.RegisterCitation(as(RESEARCHER), "r-1", []stacks.Principal{PROVIDER}, 3))
	rev := v.GetProviderRevenue(PROVIDER)
	assert.Equal(t, stacks.Money(3000), rev.PendingWithdrawals, "bonus credited")

	_, err := v.WithdrawEarnings(as(PROVIDER))
	assert.ErrorIs(t, err, ErrInsufficientFunds, "empty escrow cannot pay")
	rev = v.GetProviderRevenue(PROVIDER)
	assert.Equal(t, stacks.Money(3000), rev.PendingWithdrawals, "claim survives the failed attempt")
	assert.Zero(t, chain.Balance(PROVIDER), "no partial transfer")
}
