package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// BidMethod distinguishes how a bidding solicits prices.
type BidMethod string

// Supported bid methods.
const (
	MethodFixedPriceProposal BidMethod = "FIXED_PRICE_PROPOSAL"
	MethodOpenBidding        BidMethod = "OPEN_BIDDING"
)

// Valid reports whether m is a defined bid method.
func (m BidMethod) Valid() bool {
	return m == MethodFixedPriceProposal || m == MethodOpenBidding
}

// Period is a half-open time window during which suppliers may participate.
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Bidding is a single competitive-procurement announcement.
type Bidding struct {
	ID                string    `json:"id"`
	Title             string    `json:"title"`
	Status            Status    `json:"status"`
	Method            BidMethod `json:"bidMethod"`
	Period            Period    `json:"biddingPeriod"`
	PurchaseRequestID string    `json:"purchaseRequestId"`
	ProjectID         string    `json:"projectId,omitempty"`
	OwnerID           string    `json:"ownerId"`
	// ContractID references the at-most-one non-canceled contract draft.
	ContractID string    `json:"contractId,omitempty"`
	Version    int64     `json:"version"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Participation is one supplier's submitted bid against a bidding.
type Participation struct {
	ID              string          `json:"id"`
	BiddingID       string          `json:"biddingId"`
	SupplierID      string          `json:"supplierId"`
	SupplierName    string          `json:"supplierName"`
	UnitPrice       decimal.Decimal `json:"unitPrice"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	SubmittedAt     time.Time       `json:"submittedAt"`
	IsEvaluated     bool            `json:"isEvaluated"`
	EvaluationScore float64         `json:"evaluationScore,omitempty"`
	IsSelectedBidder bool           `json:"isSelectedBidder"`
}

// Evaluation is a scored assessment of one participation. At most one exists
// per participation; re-submission replaces it.
type Evaluation struct {
	ID               string    `json:"id"`
	ParticipationID  string    `json:"participationId"`
	BiddingID        string    `json:"biddingId"`
	EvaluatorID      string    `json:"evaluatorId"`
	PriceScore       float64   `json:"priceScore"`
	QualityScore     float64   `json:"qualityScore"`
	DeliveryScore    float64   `json:"deliveryScore"`
	ReliabilityScore float64   `json:"reliabilityScore"`
	Comment          string    `json:"comment"`
	WeightedScore    float64   `json:"weightedScore"`
	Grade            string    `json:"grade"`
	CreatedAt        time.Time `json:"createdAt"`
}

// StatusHistoryEntry records one successful transition. Append-only.
type StatusHistoryEntry struct {
	From      Status    `json:"from"`
	To        Status    `json:"to"`
	ActorID   string    `json:"actorId"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ContractDraft is the downstream artifact created from a winning
// participation. Its signing/fulfillment lifecycle is owned elsewhere.
type ContractDraft struct {
	ID              string    `json:"id"`
	BiddingID       string    `json:"biddingId"`
	ParticipationID string    `json:"participationId"`
	Canceled        bool      `json:"canceled"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Snapshot is the authoritative read view of one bidding. Observers replace
// their whole view with it on every refresh signal; it is never patched.
type Snapshot struct {
	Bidding        Bidding              `json:"bidding"`
	Participations []Participation      `json:"participations"`
	History        []StatusHistoryEntry `json:"history"`
	// Phase mirrors Status except for CLOSED biddings holding a live
	// contract, which report the derived CONTRACTED display phase.
	Phase string `json:"phase"`
}

// DerivePhase computes the display phase for a bidding.
func DerivePhase(b Bidding) string {
	if b.Status == StatusClosed && b.ContractID != "" {
		return PhaseContracted
	}
	return string(b.Status)
}
