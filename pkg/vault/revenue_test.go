package vault

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aoakande/gene-vault-stacks/pkg/stacks"
)

func TestRevenueLedger(t *testing.T) {
	l := newRevenueLedger()
	assert.Zero(t, l.Account(PROVIDER), "unknown accounts are empty, not errors")

	l.Credit(PROVIDER, 500)
	l.Credit(PROVIDER, 250)
	r := l.Account(PROVIDER)
	assert.Equal(t, stacks.Money(750), r.TotalEarned, "credits accumulate")
	assert.Equal(t, stacks.Money(750), r.PendingWithdrawals, "claimable follows credits")

	assert.NoError(t, l.Debit(PROVIDER, 700), "debit within balance")
	r = l.Account(PROVIDER)
	assert.Equal(t, stacks.Money(750), r.TotalEarned, "lifetime total is monotonic")
	assert.Equal(t, stacks.Money(50), r.PendingWithdrawals, "claimable reduced")

	assert.ErrorIs(t, l.Debit(PROVIDER, 51), ErrInsufficientFunds, "overdraw rejected")
	assert.Equal(t, stacks.Money(50), l.Account(PROVIDER).PendingWithdrawals, "failed debit changes nothing")

	l.addSegmentsUsed(PROVIDER, 3)
	l.markWithdrawal(PROVIDER, 42)
	r = l.Account(PROVIDER)
	assert.Equal(t, uint64(3), r.TotalSegmentsUsed, "segment usage counter")
	assert.Equal(t, int64(42), r.LastWithdrawal, "withdrawal height")
}
