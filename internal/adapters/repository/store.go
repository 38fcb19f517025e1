// Package repository defines the authoritative bidding store interface and
// its implementations. Mutations are atomic with respect to the invariants
// they protect: single winner, all-evaluated-before-winner, terminal-status
// immutability, and the participation freeze outside PENDING/ONGOING.
package repository

import (
	"context"

	"github.com/procurekit/bidding/internal/domain/model"
)

// Store provides read/write access to biddings and their owned records.
//
// Every mutation serializes per bidding (lock or row-level SELECT FOR UPDATE)
// and re-validates its domain preconditions under that serialization, so
// concurrent callers cannot race an invariant. Reads are not transactionally
// consistent with in-flight writes; observers re-fetch on signal.
type Store interface {
	// CreateBidding stores a new bidding in its initial state.
	CreateBidding(ctx context.Context, b model.Bidding) (model.Bidding, error)

	// GetBidding returns one bidding. Returns model.ErrNotFound if unknown.
	GetBidding(ctx context.Context, id string) (model.Bidding, error)

	// Snapshot returns the full read view of one bidding: the bidding, all
	// participations, and the status history, with the derived display phase.
	Snapshot(ctx context.Context, biddingID string) (model.Snapshot, error)

	// UpdateBiddingStatus applies target if reachable from the current status
	// per the transition table, appending entry to the history. Returns
	// model.ErrInvalidTransition when the edge is absent, including when a
	// concurrent transition made the caller's view stale.
	UpdateBiddingStatus(ctx context.Context, biddingID string, target model.Status, entry model.StatusHistoryEntry) (model.Bidding, error)

	// CreateParticipation appends a supplier bid. Returns model.ErrInvalidState
	// once the bidding no longer accepts participations.
	CreateParticipation(ctx context.Context, p model.Participation) (model.Participation, error)

	// GetParticipation returns one participation by id.
	GetParticipation(ctx context.Context, id string) (model.Participation, error)

	// ListParticipations returns all participations of one bidding in
	// submission order.
	ListParticipations(ctx context.Context, biddingID string) ([]model.Participation, error)

	// GetEvaluation returns the evaluation for a participation, if any.
	GetEvaluation(ctx context.Context, participationID string) (model.Evaluation, error)

	// UpsertEvaluation stores e, replacing any prior evaluation of the same
	// participation, and marks the participation evaluated with the derived
	// score. Requires the owning bidding to be CLOSED.
	UpsertEvaluation(ctx context.Context, e model.Evaluation) (model.Evaluation, error)

	// SelectWinner flags exactly the named participation as the selected
	// bidder. Requires CLOSED status, every participation evaluated
	// (model.ErrInvalidState otherwise), and no existing winner
	// (model.ErrAlreadyDecided).
	SelectWinner(ctx context.Context, biddingID, participationID string) (model.Participation, error)

	// CreateContractDraft records a draft for the winning participation and
	// links it to the bidding. Requires the participation to be the selected
	// bidder and the bidding to have no live contract
	// (model.ErrAlreadyDecided).
	CreateContractDraft(ctx context.Context, d model.ContractDraft) (model.ContractDraft, error)

	// Count returns the number of biddings tracked.
	Count(ctx context.Context) int
}
