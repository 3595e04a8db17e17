package vault

import (
	"github.com/aoakande/gene-vault-stacks/pkg/stacks"
)

const (
	// payment settlement
	FEE_PERCENT            = 5
	MIN_PAYMENT            = 1000
	CONFIRMATIONS_REQUIRED = 6

	// incentives
	IMPACT_MULTIPLIER   = 10
	CITATION_BONUS_RATE = 1000

	// list capacities
	MAX_SEGMENTS_PER_PROVIDER  = 100
	MAX_SEGMENTS_PER_QUERY     = 100
	MAX_SEGMENTS_PER_PAYMENT   = 20
	MAX_PROVIDERS_PER_RESEARCH = 20

	// longest access grant a provider may hand out
	MAX_GRANT_BLOCKS = 52560
)

type AccessLevel int

const (
	AccessPublic     AccessLevel = 1
	AccessRestricted AccessLevel = 2
	AccessPrivate    AccessLevel = 3
)

func (l AccessLevel) Valid() bool {
	return l >= AccessPublic && l <= AccessPrivate
}

type SegmentID string

type QueryID string

type PaymentID string

type ResearchID string

// 32-byte content reference into external storage; the contract never
// dereferences it.
type DataHash [32]byte

type Segment struct {
	Owner         stacks.Principal
	DataHash      DataHash
	SegmentType   string
	CreatedAt     int64
	AccessLevel   AccessLevel
	ConsentExpiry int64
}

type AccessGrant struct {
	GrantedBy stacks.Principal
	GrantedAt int64
	ExpiresAt int64
	Purpose   string
}

type ResearchQuery struct {
	Researcher   stacks.Principal
	SegmentsUsed []SegmentID
	QueryType    string
	ResultHash   DataHash
	RecordedAt   int64
}

// Anchor binds a payment to a burnchain header so settlement can be
// gated behind a confirmation delay. Set at most once per payment.
type AnchorRef struct {
	BtcHeight int64
	BtcHash   [32]byte
}

type Payment struct {
	Payer      stacks.Principal
	Recipient  stacks.Principal
	Amount     stacks.Money
	SegmentIDs []SegmentID
	CreatedAt  int64
	Processed  bool
	Anchor     *AnchorRef
}

// Fee withheld for the protocol treasury, integer floor division.
func (p Payment) Fee() stacks.Money {
	return p.Amount.Mul(FEE_PERCENT).Div(100)
}

// ProviderRevenue is written by both the payment and incentive state
// machines. TotalEarned is accrued bookkeeping and only grows;
// PendingWithdrawals is the claimable balance.
type ProviderRevenue struct {
	TotalEarned        stacks.Money
	PendingWithdrawals stacks.Money
	LastWithdrawal     int64
	TotalSegmentsUsed  uint64
}

type ResearchImpact struct {
	Researcher    stacks.Principal
	DataProviders []stacks.Principal
	CitationCount uint64
	ImpactScore   uint64
	LastUpdated   int64
}

type ProtocolStats struct {
	Treasury           stacks.Money
	TotalSegments      uint64
	TotalQueries       uint64
	TotalPayments      uint64
	TotalPaymentVolume stacks.Money
	TotalCitations     uint64
}

// Contract is the public surface of the vault: segment registry,
// payment ledger and incentive tracker over one shared state.
type Contract interface {
	// Registers a new data segment
	// Called by: provider
	RegisterSegment(ctx stacks.CallContext, id SegmentID, hash DataHash, segmentType string, level AccessLevel, consentBlocks int64) error

	// Grants a researcher time-bounded access to a segment
	// Called by: segment owner
	GrantAccess(ctx stacks.CallContext, id SegmentID, researcher stacks.Principal, durationBlocks int64, purpose string) error

	// Lapses a grant at the current height, keeping the record
	// Called by: segment owner
	RevokeAccess(ctx stacks.CallContext, id SegmentID, researcher stacks.Principal) error

	// Views whether an account may use a segment right now
	// Called by: anyone
	HasAccess(id SegmentID, acct stacks.Principal) bool

	// Records a research query over segments the caller can access
	// Called by: researcher
	RecordQuery(ctx stacks.CallContext, id QueryID, segments []SegmentID, queryType string, resultHash DataHash) error

	// Replaces a segment's access level and consent window
	// Called by: segment owner
	UpdateAccess(ctx stacks.CallContext, id SegmentID, level AccessLevel, consentBlocks int64) error

	// Escrows a usage payment against one or more segments
	// Called by: researcher / payer
	ProcessPayment(ctx stacks.CallContext, id PaymentID, recipient stacks.Principal, segments []SegmentID, amount stacks.Money) error

	// Retries the burnchain anchor for an unanchored payment
	// Called by: anyone
	AnchorPayment(ctx stacks.CallContext, id PaymentID) error

	// Settles an anchored payment once confirmations have accrued
	// Called by: anyone
	CompletePayment(ctx stacks.CallContext, id PaymentID) error

	// Pays out the caller's claimable revenue balance
	// Called by: provider
	WithdrawEarnings(ctx stacks.CallContext) (stacks.Money, error)

	// Registers citations for a research output and credits bonuses
	// Called by: researcher or citation oracle
	RegisterCitation(ctx stacks.CallContext, id ResearchID, providers []stacks.Principal, citations uint64) error
}
