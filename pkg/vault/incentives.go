package vault

import (
	"fmt"

	"github.com/aoakande/gene-vault-stacks/pkg/stacks"
)

// Registers citations for a research output and credits incentive
// bonuses to the listed data providers. Upsert semantics: repeat calls
// for the same research id accumulate citation count and impact score.
//
// The historical bonus formula credits every listed provider with
// globalTotalCitations * CITATION_BONUS_RATE, i.e. it keys off the
// running global total instead of this call's citation count. That is
// reproduced as built. Config.SplitCitationBonus selects the corrected
// variant: citations * CITATION_BONUS_RATE split evenly across the
// providers, remainder to the treasury.
func (v *Vault) RegisterCitation(ctx stacks.CallContext, id ResearchID, providers []stacks.Principal, citations uint64) error {
	if id == "" || len(providers) == 0 || citations == 0 {
		return ErrInvalidParameters
	}
	if len(providers) > MAX_PROVIDERS_PER_RESEARCH {
		return fmt.Errorf("%w: provider list", ErrCapacityExceeded)
	}

	height := v.chain.Height()
	r, ok := v.impacts[id]
	if !ok {
		r = &ResearchImpact{Researcher: ctx.Sender}
		v.impacts[id] = r
	}
	r.DataProviders = append([]stacks.Principal(nil), providers...)
	r.CitationCount += citations
	r.ImpactScore += citations * IMPACT_MULTIPLIER
	r.LastUpdated = height

	v.stats.TotalCitations += citations

	if v.cfg.SplitCitationBonus {
		total := stacks.Money(citations).Mul(CITATION_BONUS_RATE)
		share := total.Div(len(providers))
		for _, p := range providers {
			v.revenue.Credit(p, share)
		}
		v.stats.Treasury += total - share.Mul(len(providers))
	} else {
		bonus := stacks.Money(v.stats.TotalCitations).Mul(CITATION_BONUS_RATE)
		for _, p := range providers {
			v.revenue.Credit(p, bonus)
		}
	}
	return nil
}
