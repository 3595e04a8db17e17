package vault

import (
	"fmt"

	"github.com/aoakande/gene-vault-stacks/pkg/stacks"
)

// Escrows a usage payment against one or more segments. The full
// amount moves from the payer into the contract account; the recipient
// is credited amount minus the protocol fee in the revenue ledger
// right away, ahead of settlement, and the fee goes to the treasury.
// Finally a burnchain anchor is attempted, best effort.
func (v *Vault) ProcessPayment(ctx stacks.CallContext, id PaymentID, recipient stacks.Principal, segments []SegmentID, amount stacks.Money) error {
	if id == "" || len(segments) == 0 || amount < MIN_PAYMENT {
		return ErrInvalidParameters
	}
	if len(segments) > MAX_SEGMENTS_PER_PAYMENT {
		return fmt.Errorf("%w: payment segment list", ErrCapacityExceeded)
	}
	if _, ok := v.payments[id]; ok {
		return fmt.Errorf("%w: payment %q", ErrAlreadyExists, id)
	}
	if err := v.chain.Transfer(amount, ctx.Sender, v.cfg.ContractAccount); err != nil {
		return fmt.Errorf("%w: escrow transfer", ErrInsufficientFunds)
	}

	p := &Payment{
		Payer:      ctx.Sender,
		Recipient:  recipient,
		Amount:     amount,
		SegmentIDs: append([]SegmentID(nil), segments...),
		CreatedAt:  v.chain.Height(),
	}
	v.payments[id] = p

	fee := p.Fee()
	v.revenue.Credit(recipient, amount-fee)
	v.revenue.addSegmentsUsed(recipient, len(segments))
	v.stats.Treasury += fee
	v.stats.TotalPayments++
	v.stats.TotalPaymentVolume += amount

	// best effort; an unanchored payment can be re-anchored later
	v.tryAnchor(p)
	return nil
}

// Retries the burnchain anchor for a payment. Silently no-ops once the
// payment is processed or already anchored; the anchor is set at most
// once.
func (v *Vault) AnchorPayment(ctx stacks.CallContext, id PaymentID) error {
	p, ok := v.payments[id]
	if !ok {
		return fmt.Errorf("%w: payment %q", ErrNotFound, id)
	}
	if p.Processed || p.Anchor != nil {
		return nil
	}
	v.tryAnchor(p)
	return nil
}

func (v *Vault) tryAnchor(p *Payment) {
	if ref, ok := v.oracle.TryAnchor(v.chain.Height()); ok {
		p.Anchor = &ref
	}
}

// Settles an anchored payment once CONFIRMATIONS_REQUIRED blocks have
// elapsed since the anchor height. This is the only path that moves
// escrowed funds to the recipient; the processed latch makes retries
// idempotent-safe.
func (v *Vault) CompletePayment(ctx stacks.CallContext, id PaymentID) error {
	p, ok := v.payments[id]
	if !ok {
		return fmt.Errorf("%w: payment %q", ErrNotFound, id)
	}
	if p.Processed {
		return fmt.Errorf("%w: payment %q", ErrAlreadyProcessed, id)
	}
	if p.Anchor == nil {
		return ErrNotAnchored
	}
	if v.oracle.ConfirmationsSince(*p.Anchor) < CONFIRMATIONS_REQUIRED {
		return ErrNotConfirmed
	}
	if err := v.chain.Transfer(p.Amount-p.Fee(), v.cfg.ContractAccount, p.Recipient); err != nil {
		return fmt.Errorf("%w: settlement transfer", ErrInsufficientFunds)
	}
	p.Processed = true
	return nil
}

// Pays out the caller's claimable revenue balance from the contract
// account and zeroes it. All-or-nothing.
func (v *Vault) WithdrawEarnings(ctx stacks.CallContext) (stacks.Money, error) {
	r := v.revenue.Account(ctx.Sender)
	if r.PendingWithdrawals == 0 {
		return 0, fmt.Errorf("%w: nothing to withdraw", ErrInsufficientFunds)
	}
	if err := v.chain.Transfer(r.PendingWithdrawals, v.cfg.ContractAccount, ctx.Sender); err != nil {
		return 0, fmt.Errorf("%w: withdrawal transfer", ErrInsufficientFunds)
	}
	if err := v.revenue.Debit(ctx.Sender, r.PendingWithdrawals); err != nil {
		return 0, err
	}
	v.revenue.markWithdrawal(ctx.Sender, v.chain.Height())
	return r.PendingWithdrawals, nil
}
