package vault

import (
	"github.com/aoakande/gene-vault-stacks/pkg/stacks"
)

// RevenueLedger tracks per-provider revenue. It is the shared sink of
// the payment ledger and the incentive tracker: credits from either
// side are additive and commutative, so host transaction ordering is
// the only serialization needed.
type RevenueLedger struct {
	accounts map[stacks.Principal]*ProviderRevenue
}

func newRevenueLedger() *RevenueLedger {
	return &RevenueLedger{
		accounts: make(map[stacks.Principal]*ProviderRevenue),
	}
}

func (l *RevenueLedger) account(acct stacks.Principal) *ProviderRevenue {
	r, ok := l.accounts[acct]
	if !ok {
		r = &ProviderRevenue{}
		l.accounts[acct] = r
	}
	return r
}

// Credit accrues amount to both the lifetime total and the claimable
// balance.
func (l *RevenueLedger) Credit(acct stacks.Principal, amount stacks.Money) {
	r := l.account(acct)
	r.TotalEarned += amount
	r.PendingWithdrawals += amount
}

// Debit removes amount from the claimable balance. TotalEarned is
// monotonic and unaffected.
func (l *RevenueLedger) Debit(acct stacks.Principal, amount stacks.Money) error {
	r := l.account(acct)
	if r.PendingWithdrawals < amount {
		return ErrInsufficientFunds
	}
	r.PendingWithdrawals -= amount
	return nil
}

func (l *RevenueLedger) Account(acct stacks.Principal) ProviderRevenue {
	r, ok := l.accounts[acct]
	if !ok {
		return ProviderRevenue{}
	}
	return *r
}

func (l *RevenueLedger) addSegmentsUsed(acct stacks.Principal, n int) {
	l.account(acct).TotalSegmentsUsed += uint64(n)
}

func (l *RevenueLedger) markWithdrawal(acct stacks.Principal, height int64) {
	l.account(acct).LastWithdrawal = height
}
