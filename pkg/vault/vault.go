package vault

import (
	"github.com/aoakande/gene-vault-stacks/pkg/stacks"
)

type Config struct {
	// Account holding escrowed payments and backing withdrawals.
	ContractAccount stacks.Principal

	// SplitCitationBonus switches the citation bonus from the historical
	// global-total formula to an even per-call split across providers.
	// See incentives.go.
	SplitCitationBonus bool
}

// Shared contract state for segment registry, payment ledger and
// incentive tracker. One keyed table per entity family; records are
// never deleted, lapsed grants and settled payments stay for audit.
type Vault struct {
	cfg    Config
	chain  stacks.Chain
	oracle FinalityOracle

	// segment registry
	segments      map[SegmentID]*Segment
	grants        map[SegmentID]map[stacks.Principal]*AccessGrant
	providerIndex map[stacks.Principal][]SegmentID
	queries       map[QueryID]*ResearchQuery

	// payment settlement
	payments map[PaymentID]*Payment
	revenue  *RevenueLedger

	// incentives
	impacts map[ResearchID]*ResearchImpact

	stats ProtocolStats
}

func New(chain stacks.Chain, cfg Config) *Vault {
	return &Vault{
		cfg:           cfg,
		chain:         chain,
		oracle:        BurnOracle{Chain: chain},
		segments:      make(map[SegmentID]*Segment),
		grants:        make(map[SegmentID]map[stacks.Principal]*AccessGrant),
		providerIndex: make(map[stacks.Principal][]SegmentID),
		queries:       make(map[QueryID]*ResearchQuery),
		payments:      make(map[PaymentID]*Payment),
		revenue:       newRevenueLedger(),
		impacts:       make(map[ResearchID]*ResearchImpact),
	}
}

// SetOracle swaps the finality oracle. Intended for hosts that anchor
// against something other than the chain's own burn headers.
func (v *Vault) SetOracle(o FinalityOracle) {
	v.oracle = o
}

func (v *Vault) Stats() ProtocolStats {
	return v.stats
}

// GetSegmentInfo returns a copy of the stored segment.
func (v *Vault) GetSegmentInfo(id SegmentID) (Segment, bool) {
	s, ok := v.segments[id]
	if !ok {
		return Segment{}, false
	}
	return *s, true
}

// GetAccessGrant returns the grant record for (segment, researcher),
// lapsed or not.
func (v *Vault) GetAccessGrant(id SegmentID, researcher stacks.Principal) (AccessGrant, bool) {
	g, ok := v.grants[id][researcher]
	if !ok {
		return AccessGrant{}, false
	}
	return *g, true
}

// SegmentsOf returns the provider's segment index in registration order.
func (v *Vault) SegmentsOf(owner stacks.Principal) []SegmentID {
	ids := v.providerIndex[owner]
	out := make([]SegmentID, len(ids))
	copy(out, ids)
	return out
}

func (v *Vault) GetQuery(id QueryID) (ResearchQuery, bool) {
	q, ok := v.queries[id]
	if !ok {
		return ResearchQuery{}, false
	}
	out := *q
	out.SegmentsUsed = append([]SegmentID(nil), q.SegmentsUsed...)
	return out, true
}

func (v *Vault) GetPayment(id PaymentID) (Payment, bool) {
	p, ok := v.payments[id]
	if !ok {
		return Payment{}, false
	}
	out := *p
	out.SegmentIDs = append([]SegmentID(nil), p.SegmentIDs...)
	if p.Anchor != nil {
		a := *p.Anchor
		out.Anchor = &a
	}
	return out, true
}

func (v *Vault) GetProviderRevenue(provider stacks.Principal) ProviderRevenue {
	return v.revenue.Account(provider)
}

func (v *Vault) GetResearchImpact(id ResearchID) (ResearchImpact, bool) {
	r, ok := v.impacts[id]
	if !ok {
		return ResearchImpact{}, false
	}
	out := *r
	out.DataProviders = append([]stacks.Principal(nil), r.DataProviders...)
	return out, true
}
