package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/procurekit/bidding/internal/domain/model"
)

func newBidding(id string) model.Bidding {
	return model.Bidding{
		ID:                id,
		Title:             "Office furniture procurement",
		Status:            model.StatusPending,
		Method:            model.MethodOpenBidding,
		PurchaseRequestID: "pr-" + id,
		OwnerID:           "buyer-1",
		CreatedAt:         time.Now().UTC(),
	}
}

func newParticipation(id, biddingID string) model.Participation {
	return model.Participation{
		ID:           id,
		BiddingID:    biddingID,
		SupplierID:   "supplier-" + id,
		SupplierName: "Supplier " + id,
		UnitPrice:    decimal.NewFromInt(100),
		TotalAmount:  decimal.NewFromInt(1000),
		SubmittedAt:  time.Now().UTC(),
	}
}

// advance walks the bidding through the given statuses in order.
func advance(t *testing.T, s *MemStore, biddingID string, statuses ...model.Status) {
	t.Helper()
	ctx := context.Background()
	for _, target := range statuses {
		if _, err := s.UpdateBiddingStatus(ctx, biddingID, target, model.StatusHistoryEntry{ActorID: "buyer-1"}); err != nil {
			t.Fatalf("transition to %s failed: %v", target, err)
		}
	}
}

func TestMemStore_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore(ctx)

	if count := store.Count(ctx); count != 0 {
		t.Errorf("expected count 0, got %d", count)
	}

	created, err := store.CreateBidding(ctx, newBidding("b1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.Version != 1 {
		t.Errorf("expected version 1, got %d", created.Version)
	}
	if count := store.Count(ctx); count != 1 {
		t.Errorf("expected count 1, got %d", count)
	}

	got, err := store.GetBidding(ctx, "b1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != model.StatusPending {
		t.Errorf("expected PENDING, got %s", got.Status)
	}

	// Duplicate id is rejected.
	if _, err := store.CreateBidding(ctx, newBidding("b1")); !errors.Is(err, ErrVersionConflict) {
		t.Errorf("expected ErrVersionConflict, got %v", err)
	}

	// Unknown id.
	if _, err := store.GetBidding(ctx, "missing"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemStore_StatusTransitions(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore(ctx)
	if _, err := store.CreateBidding(ctx, newBidding("b1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	updated, err := store.UpdateBiddingStatus(ctx, "b1", model.StatusOngoing, model.StatusHistoryEntry{ActorID: "buyer-1", Reason: "period started"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != model.StatusOngoing {
		t.Errorf("expected ONGOING, got %s", updated.Status)
	}
	if updated.Version != 2 {
		t.Errorf("expected version 2, got %d", updated.Version)
	}

	// Illegal edge is revalidated under the lock.
	if _, err := store.UpdateBiddingStatus(ctx, "b1", model.StatusPending, model.StatusHistoryEntry{}); !errors.Is(err, model.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}

	// History carries the from/to pair set by the store.
	snap, err := store.Snapshot(ctx, "b1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(snap.History) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(snap.History))
	}
	if snap.History[0].From != model.StatusPending || snap.History[0].To != model.StatusOngoing {
		t.Errorf("unexpected history entry: %+v", snap.History[0])
	}
	if snap.History[0].Reason != "period started" {
		t.Errorf("unexpected reason: %q", snap.History[0].Reason)
	}

	// Terminal state rejects everything.
	advance(t, store, "b1", model.StatusClosed)
	if _, err := store.UpdateBiddingStatus(ctx, "b1", model.StatusCanceled, model.StatusHistoryEntry{}); !errors.Is(err, model.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestMemStore_ParticipationFreeze(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore(ctx)
	if _, err := store.CreateBidding(ctx, newBidding("b1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// PENDING and ONGOING accept bids.
	if _, err := store.CreateParticipation(ctx, newParticipation("p1", "b1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	advance(t, store, "b1", model.StatusOngoing)
	if _, err := store.CreateParticipation(ctx, newParticipation("p2", "b1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Closing freezes the ledger.
	advance(t, store, "b1", model.StatusClosed)
	if _, err := store.CreateParticipation(ctx, newParticipation("p3", "b1")); !errors.Is(err, model.ErrInvalidState) {
		t.Errorf("expected ErrInvalidState, got %v", err)
	}

	list, err := store.ListParticipations(ctx, "b1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 2 {
		t.Errorf("expected 2 participations, got %d", len(list))
	}

	got, err := store.GetParticipation(ctx, "p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.SupplierName != "Supplier p1" {
		t.Errorf("unexpected participation: %+v", got)
	}
}

func TestMemStore_EvaluationLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore(ctx)
	if _, err := store.CreateBidding(ctx, newBidding("b1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.CreateParticipation(ctx, newParticipation("p1", "b1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	eval := model.Evaluation{
		ID:              "e1",
		ParticipationID: "p1",
		BiddingID:       "b1",
		EvaluatorID:     "buyer-1",
		WeightedScore:   21.5,
		Grade:           "A",
	}

	// Evaluation requires a CLOSED bidding.
	if _, err := store.UpsertEvaluation(ctx, eval); !errors.Is(err, model.ErrInvalidState) {
		t.Errorf("expected ErrInvalidState, got %v", err)
	}

	advance(t, store, "b1", model.StatusOngoing, model.StatusClosed)
	stored, err := store.UpsertEvaluation(ctx, eval)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored.ID != "e1" {
		t.Errorf("expected id e1, got %s", stored.ID)
	}

	// The participation is flagged with the derived score.
	p, err := store.GetParticipation(ctx, "p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.IsEvaluated || p.EvaluationScore != 21.5 {
		t.Errorf("participation not flagged: %+v", p)
	}

	// Re-submission replaces the content but keeps the original id.
	second := eval
	second.ID = "e2"
	second.WeightedScore = 12.0
	second.Grade = "D"
	replaced, err := store.UpsertEvaluation(ctx, second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if replaced.ID != "e1" {
		t.Errorf("expected original id e1 to survive, got %s", replaced.ID)
	}
	got, err := store.GetEvaluation(ctx, "p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.WeightedScore != 12.0 || got.Grade != "D" {
		t.Errorf("replacement not applied: %+v", got)
	}

	// Unknown participation.
	orphan := eval
	orphan.ParticipationID = "missing"
	if _, err := store.UpsertEvaluation(ctx, orphan); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemStore_SelectWinner(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore(ctx)
	if _, err := store.CreateBidding(ctx, newBidding("b1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, id := range []string{"p1", "p2"} {
		if _, err := store.CreateParticipation(ctx, newParticipation(id, "b1")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	// Winner selection requires CLOSED.
	if _, err := store.SelectWinner(ctx, "b1", "p1"); !errors.Is(err, model.ErrInvalidState) {
		t.Errorf("expected ErrInvalidState, got %v", err)
	}

	advance(t, store, "b1", model.StatusOngoing, model.StatusClosed)

	// Every participation must be evaluated first.
	if _, err := store.SelectWinner(ctx, "b1", "p1"); !errors.Is(err, model.ErrInvalidState) {
		t.Errorf("expected ErrInvalidState, got %v", err)
	}
	for i, id := range []string{"p1", "p2"} {
		if _, err := store.UpsertEvaluation(ctx, model.Evaluation{
			ID:              fmt.Sprintf("e%d", i+1),
			ParticipationID: id,
			BiddingID:       "b1",
			WeightedScore:   20,
		}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	winner, err := store.SelectWinner(ctx, "b1", "p2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !winner.IsSelectedBidder || winner.ID != "p2" {
		t.Errorf("unexpected winner: %+v", winner)
	}

	// A second decision is rejected, even for the same participation.
	if _, err := store.SelectWinner(ctx, "b1", "p1"); !errors.Is(err, model.ErrAlreadyDecided) {
		t.Errorf("expected ErrAlreadyDecided, got %v", err)
	}
	if _, err := store.SelectWinner(ctx, "b1", "p2"); !errors.Is(err, model.ErrAlreadyDecided) {
		t.Errorf("expected ErrAlreadyDecided, got %v", err)
	}
}

func TestMemStore_SelectWinner_Concurrent(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore(ctx)
	if _, err := store.CreateBidding(ctx, newBidding("b1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	const n = 16
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("p%d", i)
		if _, err := store.CreateParticipation(ctx, newParticipation(ids[i], "b1")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	advance(t, store, "b1", model.StatusOngoing, model.StatusClosed)
	for i, id := range ids {
		if _, err := store.UpsertEvaluation(ctx, model.Evaluation{
			ID:              fmt.Sprintf("e%d", i),
			ParticipationID: id,
			BiddingID:       "b1",
			WeightedScore:   10,
		}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if _, err := store.SelectWinner(ctx, "b1", id); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(id)
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("expected exactly one winner, got %d", wins)
	}
}

func TestMemStore_ContractDraft(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore(ctx)
	if _, err := store.CreateBidding(ctx, newBidding("b1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.CreateParticipation(ctx, newParticipation("p1", "b1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	advance(t, store, "b1", model.StatusOngoing, model.StatusClosed)

	draft := model.ContractDraft{ID: "c1", BiddingID: "b1", ParticipationID: "p1", CreatedAt: time.Now().UTC()}

	// No contract before a winner exists.
	if _, err := store.CreateContractDraft(ctx, draft); !errors.Is(err, model.ErrInvalidState) {
		t.Errorf("expected ErrInvalidState, got %v", err)
	}

	if _, err := store.UpsertEvaluation(ctx, model.Evaluation{ID: "e1", ParticipationID: "p1", BiddingID: "b1", WeightedScore: 25}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.SelectWinner(ctx, "b1", "p1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	created, err := store.CreateContractDraft(ctx, draft)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.ID != "c1" {
		t.Errorf("unexpected draft: %+v", created)
	}

	// At most one live contract per bidding.
	second := draft
	second.ID = "c2"
	if _, err := store.CreateContractDraft(ctx, second); !errors.Is(err, model.ErrAlreadyDecided) {
		t.Errorf("expected ErrAlreadyDecided, got %v", err)
	}

	// The snapshot reports the derived CONTRACTED phase.
	snap, err := store.Snapshot(ctx, "b1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Phase != model.PhaseContracted {
		t.Errorf("expected phase %s, got %s", model.PhaseContracted, snap.Phase)
	}
	if snap.Bidding.ContractID != "c1" {
		t.Errorf("expected contract id c1, got %s", snap.Bidding.ContractID)
	}
}
