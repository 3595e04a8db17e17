package vault

import (
	"github.com/aoakande/gene-vault-stacks/pkg/stacks"
)

// Snapshot is the full contract state in plain values, one field per
// entity family, suitable for persistence.
type Snapshot struct {
	Segments      map[SegmentID]Segment
	Grants        map[SegmentID]map[stacks.Principal]AccessGrant
	ProviderIndex map[stacks.Principal][]SegmentID
	Queries       map[QueryID]ResearchQuery
	Payments      map[PaymentID]Payment
	Revenue       map[stacks.Principal]ProviderRevenue
	Impacts       map[ResearchID]ResearchImpact
	Stats         ProtocolStats
}

func (v *Vault) Snapshot() Snapshot {
	snap := Snapshot{
		Segments:      make(map[SegmentID]Segment, len(v.segments)),
		Grants:        make(map[SegmentID]map[stacks.Principal]AccessGrant, len(v.grants)),
		ProviderIndex: make(map[stacks.Principal][]SegmentID, len(v.providerIndex)),
		Queries:       make(map[QueryID]ResearchQuery, len(v.queries)),
		Payments:      make(map[PaymentID]Payment, len(v.payments)),
		Revenue:       make(map[stacks.Principal]ProviderRevenue, len(v.revenue.accounts)),
		Impacts:       make(map[ResearchID]ResearchImpact, len(v.impacts)),
		Stats:         v.stats,
	}
	for id, s := range v.segments {
		snap.Segments[id] = *s
	}
	for id, gs := range v.grants {
		m := make(map[stacks.Principal]AccessGrant, len(gs))
		for acct, g := range gs {
			m[acct] = *g
		}
		snap.Grants[id] = m
	}
	for owner, ids := range v.providerIndex {
		snap.ProviderIndex[owner] = append([]SegmentID(nil), ids...)
	}
	for id, q := range v.queries {
		cp := *q
		cp.SegmentsUsed = append([]SegmentID(nil), q.SegmentsUsed...)
		snap.Queries[id] = cp
	}
	for id, p := range v.payments {
		cp := *p
		cp.SegmentIDs = append([]SegmentID(nil), p.SegmentIDs...)
		if p.Anchor != nil {
			a := *p.Anchor
			cp.Anchor = &a
		}
		snap.Payments[id] = cp
	}
	for acct, r := range v.revenue.accounts {
		snap.Revenue[acct] = *r
	}
	for id, r := range v.impacts {
		cp := *r
		cp.DataProviders = append([]stacks.Principal(nil), r.DataProviders...)
		snap.Impacts[id] = cp
	}
	return snap
}

// Restore rebuilds a vault from a snapshot over the given chain.
func Restore(chain stacks.Chain, cfg Config, snap Snapshot) *Vault {
	v := New(chain, cfg)
	for id, s := range snap.Segments {
		cp := s
		v.segments[id] = &cp
	}
	for id, gs := range snap.Grants {
		m := make(map[stacks.Principal]*AccessGrant, len(gs))
		for acct, g := range gs {
			cp := g
			m[acct] = &cp
		}
		v.grants[id] = m
	}
	for owner, ids := range snap.ProviderIndex {
		v.providerIndex[owner] = append([]SegmentID(nil), ids...)
	}
	for id, q := range snap.Queries {
		cp := q
		cp.SegmentsUsed = append([]SegmentID(nil), q.SegmentsUsed...)
		v.queries[id] = &cp
	}
	for id, p := range snap.Payments {
		cp := p
		cp.SegmentIDs = append([]SegmentID(nil), p.SegmentIDs...)
		if p.Anchor != nil {
			a := *p.Anchor
			cp.Anchor = &a
		}
		v.payments[id] = &cp
	}
	for acct, r := range snap.Revenue {
		cp := r
		v.revenue.accounts[acct] = &cp
	}
	for id, r := range snap.Impacts {
		cp := r
		cp.DataProviders = append([]stacks.Principal(nil), r.DataProviders...)
		v.impacts[id] = &cp
	}
	v.stats = snap.Stats
	return v
}
