package vault

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aoakande/gene-vault-stacks/pkg/stacks"
)

func TestRegisterCitationCumulative(t *testing.T) {
	chain, v := newTestVault()
	providers := []stacks.Principal{PROVIDER}

	assert.NoError(t, v.RegisterCitation(as(RESEARCHER), "r-1", providers, 3))
	r, ok := v.GetResearchImpact("r-1")
	assert.True(t, ok, "impact record created")
	assert.Equal(t, stacks.Principal(RESEARCHER), r.Researcher, "researcher")
	assert.Equal(t, uint64(3), r.CitationCount, "citation count")
	assert.Equal(t, uint64(30), r.ImpactScore, "impact score")

	chain.Advance(2)
	assert.NoError(t, v.RegisterCitation(as(RESEARCHER), "r-1", providers, 4))
	r, _ = v.GetResearchImpact("r-1")
	assert.Equal(t, uint64(7), r.CitationCount, "counts accumulate")
	assert.Equal(t, uint64(70), r.ImpactScore, "score accumulates")
	assert.Equal(t, chain.Height(), r.LastUpdated, "last updated height")
	assert.Equal(t, uint64(7), v.Stats().TotalCitations, "global counter")
}

// The historical formula credits every provider with the running global
// citation total times the bonus rate, not this call's amount.
func TestCitationBonusGlobalTotal(t *testing.T) {
	_, v := newTestVault()
	a := stacks.Principal("prov-a")
	b := stacks.Principal("prov-b")

	assert.NoError(t, v.RegisterCitation(as(RESEARCHER), "r-1", []stacks.Principal{a, b}, 3))
	assert.Equal(t, stacks.Money(3000), v.GetProviderRevenue(a).PendingWithdrawals, "3 total citations x rate")
	assert.Equal(t, stacks.Money(3000), v.GetProviderRevenue(b).PendingWithdrawals, "same bonus for every provider")

	// a later registration for different research still keys off the
	// global total (3+4=7), not the per-call 4
	assert.NoError(t, v.RegisterCitation(as(RESEARCHER), "r-2", []stacks.Principal{a}, 4))
	assert.Equal(t, stacks.Money(10000), v.GetProviderRevenue(a).PendingWithdrawals, "3000 + 7x1000")
	assert.Equal(t, stacks.Money(3000), v.GetProviderRevenue(b).PendingWithdrawals, "unlisted provider unchanged")
	assert.Zero(t, v.Stats().Treasury, "no remainder in this mode")
}

func TestCitationBonusSplit(t *testing.T) {
	chain := stacks.NewSim()
	chain.Advance(10)
	v := New(chain, Config{ContractAccount: CONTRACT, SplitCitationBonus: true})
	a := stacks.Principal("prov-a")
	b := stacks.Principal("prov-b")
	c := stacks.Principal("prov-c")

	// 5 citations x 1000 = 5000 split over three providers
	assert.NoError(t, v.RegisterCitation(as(RESEARCHER), "r-1", []stacks.Principal{a, b, c}, 5))
	assert.Equal(t, stacks.Money(1666), v.GetProviderRevenue(a).PendingWithdrawals, "even share")
	assert.Equal(t, stacks.Money(1666), v.GetProviderRevenue(b).PendingWithdrawals, "even share")
	assert.Equal(t, stacks.Money(1666), v.GetProviderRevenue(c).PendingWithdrawals, "even share")
	assert.Equal(t, stacks.Money(2), v.Stats().Treasury, "division remainder to treasury")

	// split mode keys off the per-call amount, the global total is
	// only a counter
	assert.NoError(t, v.RegisterCitation(as(RESEARCHER), "r-2", []stacks.Principal{a}, 4))
	assert.Equal(t, stacks.Money(5666), v.GetProviderRevenue(a).PendingWithdrawals, "1666 + 4000")
	assert.Equal(t, uint64(9), v.Stats().TotalCitations, "counter still accumulates")
}

func TestRegisterCitationValidation(t *testing.T) {
	_, v := newTestVault()

	err := v.RegisterCitation(as(RESEARCHER), "r-1", nil, 3)
	assert.ErrorIs(t, err, ErrInvalidParameters, "empty provider list")
	err = v.RegisterCitation(as(RESEARCHER), "r-1", []stacks.Principal{PROVIDER}, 0)
	assert.ErrorIs(t, err, ErrInvalidParameters, "zero citations")
	err = v.RegisterCitation(as(RESEARCHER), "", []stacks.Principal{PROVIDER}, 3)
	assert.ErrorIs(t, err, ErrInvalidParameters, "empty research id")

	big := make([]stacks.Principal, MAX_PROVIDERS_PER_RESEARCH+1)
	for i := range big {
		big[i] = PROVIDER
	}
	err = v.RegisterCitation(as(RESEARCHER), "r-1", big, 3)
	assert.ErrorIs(t, err, ErrCapacityExceeded, "provider list too long")

	_, ok := v.GetResearchImpact("r-1")
	assert.False(t, ok, "nothing recorded on failure")
	assert.Zero(t, v.Stats().TotalCitations, "counter unchanged")
	assert.Zero(t, v.GetProviderRevenue(PROVIDER).PendingWithdrawals, "no bonus from failures")
}
