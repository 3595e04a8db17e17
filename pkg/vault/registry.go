package vault

import (
	"fmt"

	"github.com/aoakande/gene-vault-stacks/pkg/stacks"
)

// Registers a new data segment owned by the caller. The segment id is
// caller-chosen and immutable; consent lapses consentBlocks after the
// current height.
func (v *Vault) RegisterSegment(ctx stacks.CallContext, id SegmentID, hash DataHash, segmentType string, level AccessLevel, consentBlocks int64) error {
	if id == "" || !level.Valid() || consentBlocks <= 0 {
		return ErrInvalidParameters
	}
	if _, ok := v.segments[id]; ok {
		return fmt.Errorf("%w: segment %q", ErrAlreadyExists, id)
	}
	if len(v.providerIndex[ctx.Sender]) >= MAX_SEGMENTS_PER_PROVIDER {
		return fmt.Errorf("%w: provider index full", ErrCapacityExceeded)
	}

	height := v.chain.Height()
	v.segments[id] = &Segment{
		Owner:         ctx.Sender,
		DataHash:      hash,
		SegmentType:   segmentType,
		CreatedAt:     height,
		AccessLevel:   level,
		ConsentExpiry: height + consentBlocks,
	}
	v.providerIndex[ctx.Sender] = append(v.providerIndex[ctx.Sender], id)
	v.stats.TotalSegments++
	return nil
}

// Grants or refreshes a researcher's access to a segment. Overwrites
// any existing grant for the pair.
func (v *Vault) GrantAccess(ctx stacks.CallContext, id SegmentID, researcher stacks.Principal, durationBlocks int64, purpose string) error {
	if durationBlocks <= 0 || durationBlocks > MAX_GRANT_BLOCKS {
		return ErrInvalidParameters
	}
	seg, ok := v.segments[id]
	if !ok {
		return fmt.Errorf("%w: segment %q", ErrNotFound, id)
	}
	if seg.Owner != ctx.Sender {
		return ErrUnauthorized
	}

	height := v.chain.Height()
	if v.grants[id] == nil {
		v.grants[id] = make(map[stacks.Principal]*AccessGrant)
	}
	v.grants[id][researcher] = &AccessGrant{
		GrantedBy: ctx.Sender,
		GrantedAt: height,
		ExpiresAt: height + durationBlocks,
		Purpose:   purpose,
	}
	return nil
}

// Revokes a grant by lapsing it at the current height. The record is
// kept so the audit trail survives.
func (v *Vault) RevokeAccess(ctx stacks.CallContext, id SegmentID, researcher stacks.Principal) error {
	seg, ok := v.segments[id]
	if !ok {
		return fmt.Errorf("%w: segment %q", ErrNotFound, id)
	}
	if seg.Owner != ctx.Sender {
		return ErrUnauthorized
	}
	g, ok := v.grants[id][researcher]
	if !ok {
		return fmt.Errorf("%w: no grant for %s", ErrNotFound, researcher)
	}
	g.ExpiresAt = v.chain.Height()
	return nil
}

// HasAccess reports whether acct may use the segment right now: true
// for the owner or a grant that has not lapsed yet.
func (v *Vault) HasAccess(id SegmentID, acct stacks.Principal) bool {
	seg, ok := v.segments[id]
	if !ok {
		return false
	}
	if seg.Owner == acct {
		return true
	}
	g, ok := v.grants[id][acct]
	return ok && g.ExpiresAt > v.chain.Height()
}

// Records a research query. All-or-nothing: the caller must hold access
// to every listed segment or nothing is written.
func (v *Vault) RecordQuery(ctx stacks.CallContext, id QueryID, segments []SegmentID, queryType string, resultHash DataHash) error {
	if id == "" || len(segments) == 0 {
		return ErrInvalidParameters
	}
	if len(segments) > MAX_SEGMENTS_PER_QUERY {
		return fmt.Errorf("%w: query segment list", ErrCapacityExceeded)
	}
	if _, ok := v.queries[id]; ok {
		return fmt.Errorf("%w: query %q", ErrAlreadyExists, id)
	}
	for _, sid := range segments {
		if !v.HasAccess(sid, ctx.Sender) {
			return fmt.Errorf("%w: no access to segment %q", ErrUnauthorized, sid)
		}
	}

	v.queries[id] = &ResearchQuery{
		Researcher:   ctx.Sender,
		SegmentsUsed: append([]SegmentID(nil), segments...),
		QueryType:    queryType,
		ResultHash:   resultHash,
		RecordedAt:   v.chain.Height(),
	}
	v.stats.TotalQueries++
	return nil
}

// Replaces a segment's access level and consent window. The new expiry
// is relative to the current height, not added to the old one.
func (v *Vault) UpdateAccess(ctx stacks.CallContext, id SegmentID, level AccessLevel, consentBlocks int64) error {
	if !level.Valid() || consentBlocks <= 0 {
		return ErrInvalidParameters
	}
	seg, ok := v.segments[id]
	if !ok {
		return fmt.Errorf("%w: segment %q", ErrNotFound, id)
	}
	if seg.Owner != ctx.Sender {
		return ErrUnauthorized
	}
	seg.AccessLevel = level
	seg.ConsentExpiry = v.chain.Height() + consentBlocks
	return nil
}
