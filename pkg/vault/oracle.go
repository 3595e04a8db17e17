package vault

import (
	"github.com/aoakande/gene-vault-stacks/pkg/stacks"
)

// FinalityOracle abstracts cross-chain finality down to the two
// operations the payment ledger needs: capture an anchor for the
// current height and count confirmations since an anchor.
type FinalityOracle interface {
	// TryAnchor captures an anchor reference for the given chain height.
	// Reports false when the backing header is unavailable; callers
	// treat that as a non-fatal anchor failure.
	TryAnchor(height int64) (AnchorRef, bool)

	// ConfirmationsSince counts blocks elapsed since the anchor height.
	ConfirmationsSince(ref AnchorRef) int64
}

// BurnOracle anchors against the chain's burnchain header history,
// using the header one block below the anchor height since the header
// for the in-flight block is not sealed yet.
type BurnOracle struct {
	Chain stacks.Chain
}

func (o BurnOracle) TryAnchor(height int64) (AnchorRef, bool) {
	hdr, ok := o.Chain.BurnHeaderAt(height - 1)
	if !ok {
		return AnchorRef{}, false
	}
	return AnchorRef{BtcHeight: height, BtcHash: hdr.Hash}, true
}

func (o BurnOracle) ConfirmationsSince(ref AnchorRef) int64 {
	return o.Chain.Height() - ref.BtcHeight
}
