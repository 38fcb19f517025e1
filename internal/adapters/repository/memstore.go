package repository

import (
	"context"
	"sync"
	"time"

	"github.com/procurekit/bidding/internal/domain/model"
	"github.com/procurekit/bidding/pkg/metrics"
)

// biddingRecord bundles one bidding with everything it owns. The record-level
// mutex is the per-bidding serialization point for all mutations.
type biddingRecord struct {
	mu             sync.Mutex
	bidding        model.Bidding
	participations []model.Participation
	evaluations    map[string]model.Evaluation // keyed by participation id
	history        []model.StatusHistoryEntry
	contracts      map[string]model.ContractDraft
}

// MemStore implements Store in memory. It is the default store for
// development and tests; cascade lifetime of owned records is the map entry.
type MemStore struct {
	mu       sync.RWMutex
	biddings map[string]*biddingRecord
	// byParticipation maps participation id -> owning bidding id.
	byParticipation map[string]string
}

// NewMemStore creates an empty in-memory store.
func NewMemStore(ctx context.Context) *MemStore {
	return &MemStore{
		biddings:        make(map[string]*biddingRecord),
		byParticipation: make(map[string]string),
	}
}

// record returns the record for a bidding id.
func (s *MemStore) record(id string) (*biddingRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.biddings[id]
	return rec, ok
}

// recordByParticipation resolves a participation id to its owning record.
func (s *MemStore) recordByParticipation(id string) (*biddingRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	biddingID, ok := s.byParticipation[id]
	if !ok {
		return nil, false
	}
	rec, ok := s.biddings[biddingID]
	return rec, ok
}

// CreateBidding stores a new bidding in its initial state.
func (s *MemStore) CreateBidding(ctx context.Context, b model.Bidding) (model.Bidding, error) {
	defer observeMutation(time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.biddings[b.ID]; exists {
		return model.Bidding{}, ErrVersionConflict
	}
	b.Version = 1
	s.biddings[b.ID] = &biddingRecord{
		bidding:     b,
		evaluations: make(map[string]model.Evaluation),
		contracts:   make(map[string]model.ContractDraft),
	}
	metrics.UpdateBiddingsTracked(len(s.biddings))
	return b, nil
}

// GetBidding returns one bidding.
func (s *MemStore) GetBidding(ctx context.Context, id string) (model.Bidding, error) {
	defer observeQuery(time.Now())

	rec, ok := s.record(id)
	if !ok {
		return model.Bidding{}, model.ErrNotFound
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.bidding, nil
}

// Snapshot returns the full read view of one bidding.
func (s *MemStore) Snapshot(ctx context.Context, biddingID string) (model.Snapshot, error) {
	defer observeQuery(time.Now())

	rec, ok := s.record(biddingID)
	if !ok {
		return model.Snapshot{}, model.ErrNotFound
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()

	snap := model.Snapshot{
		Bidding:        rec.bidding,
		Participations: make([]model.Participation, len(rec.participations)),
		History:        make([]model.StatusHistoryEntry, len(rec.history)),
		Phase:          model.DerivePhase(rec.bidding),
	}
	copy(snap.Participations, rec.participations)
	copy(snap.History, rec.history)
	return snap, nil
}

// UpdateBiddingStatus applies target and appends entry under the record lock.
func (s *MemStore) UpdateBiddingStatus(ctx context.Context, biddingID string, target model.Status, entry model.StatusHistoryEntry) (model.Bidding, error) {
	defer observeMutation(time.Now())

	rec, ok := s.record(biddingID)
	if !ok {
		return model.Bidding{}, model.ErrNotFound
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()

	// Revalidate under the lock: the caller's view may be stale.
	if !rec.bidding.Status.CanTransitionTo(target) {
		metrics.RecordStoreConflict()
		return model.Bidding{}, model.ErrInvalidTransition
	}
	entry.From = rec.bidding.Status
	entry.To = target
	rec.bidding.Status = target
	rec.bidding.Version++
	rec.history = append(rec.history, entry)
	return rec.bidding, nil
}

// CreateParticipation appends a supplier bid while the bidding accepts them.
func (s *MemStore) CreateParticipation(ctx context.Context, p model.Participation) (model.Participation, error) {
	defer observeMutation(time.Now())

	rec, ok := s.record(p.BiddingID)
	if !ok {
		return model.Participation{}, model.ErrNotFound
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()

	if !rec.bidding.Status.AcceptsParticipations() {
		return model.Participation{}, model.ErrInvalidState
	}
	rec.participations = append(rec.participations, p)
	rec.bidding.Version++

	s.mu.Lock()
	s.byParticipation[p.ID] = p.BiddingID
	s.mu.Unlock()
	return p, nil
}

// GetParticipation returns one participation by id.
func (s *MemStore) GetParticipation(ctx context.Context, id string) (model.Participation, error) {
	defer observeQuery(time.Now())

	rec, ok := s.recordByParticipation(id)
	if !ok {
		return model.Participation{}, model.ErrNotFound
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	for _, p := range rec.participations {
		if p.ID == id {
			return p, nil
		}
	}
	return model.Participation{}, model.ErrNotFound
}

// ListParticipations returns all participations of one bidding.
func (s *MemStore) ListParticipations(ctx context.Context, biddingID string) ([]model.Participation, error) {
	defer observeQuery(time.Now())

	rec, ok := s.record(biddingID)
	if !ok {
		return nil, model.ErrNotFound
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	out := make([]model.Participation, len(rec.participations))
	copy(out, rec.participations)
	return out, nil
}

// GetEvaluation returns the evaluation for a participation, if any.
func (s *MemStore) GetEvaluation(ctx context.Context, participationID string) (model.Evaluation, error) {
	defer observeQuery(time.Now())

	rec, ok := s.recordByParticipation(participationID)
	if !ok {
		return model.Evaluation{}, model.ErrNotFound
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	e, ok := rec.evaluations[participationID]
	if !ok {
		return model.Evaluation{}, model.ErrNotFound
	}
	return e, nil
}

// UpsertEvaluation stores e and flags the participation atomically.
func (s *MemStore) UpsertEvaluation(ctx context.Context, e model.Evaluation) (model.Evaluation, error) {
	defer observeMutation(time.Now())

	rec, ok := s.record(e.BiddingID)
	if !ok {
		return model.Evaluation{}, model.ErrNotFound
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()

	if rec.bidding.Status != model.StatusClosed {
		return model.Evaluation{}, model.ErrInvalidState
	}
	idx := -1
	for i, p := range rec.participations {
		if p.ID == e.ParticipationID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return model.Evaluation{}, model.ErrNotFound
	}

	// Replace any prior evaluation; the id of the first submission survives.
	if prev, exists := rec.evaluations[e.ParticipationID]; exists {
		e.ID = prev.ID
	}
	rec.evaluations[e.ParticipationID] = e
	rec.participations[idx].IsEvaluated = true
	rec.participations[idx].EvaluationScore = e.WeightedScore
	rec.bidding.Version++
	return e, nil
}

// SelectWinner flags the named participation under the record lock.
func (s *MemStore) SelectWinner(ctx context.Context, biddingID, participationID string) (model.Participation, error) {
	defer observeMutation(time.Now())

	rec, ok := s.record(biddingID)
	if !ok {
		return model.Participation{}, model.ErrNotFound
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()

	if rec.bidding.Status != model.StatusClosed {
		return model.Participation{}, model.ErrInvalidState
	}
	idx := -1
	for i, p := range rec.participations {
		if p.IsSelectedBidder {
			return model.Participation{}, model.ErrAlreadyDecided
		}
		if !p.IsEvaluated {
			return model.Participation{}, model.ErrInvalidState
		}
		if p.ID == participationID {
			idx = i
		}
	}
	if idx < 0 {
		return model.Participation{}, model.ErrNotFound
	}
	rec.participations[idx].IsSelectedBidder = true
	rec.bidding.Version++
	return rec.participations[idx], nil
}

// CreateContractDraft records a draft and links it to the bidding.
func (s *MemStore) CreateContractDraft(ctx context.Context, d model.ContractDraft) (model.ContractDraft, error) {
	defer observeMutation(time.Now())

	rec, ok := s.record(d.BiddingID)
	if !ok {
		return model.ContractDraft{}, model.ErrNotFound
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()

	if rec.bidding.Status != model.StatusClosed {
		return model.ContractDraft{}, model.ErrInvalidState
	}
	winner := false
	for _, p := range rec.participations {
		if p.ID == d.ParticipationID && p.IsSelectedBidder {
			winner = true
			break
		}
	}
	if !winner {
		return model.ContractDraft{}, model.ErrInvalidState
	}
	// At most one non-canceled contract per bidding.
	for _, c := range rec.contracts {
		if !c.Canceled {
			return model.ContractDraft{}, model.ErrAlreadyDecided
		}
	}
	rec.contracts[d.ID] = d
	rec.bidding.ContractID = d.ID
	rec.bidding.Version++
	return d, nil
}

// Count returns the number of biddings tracked.
func (s *MemStore) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.biddings)
}

func observeMutation(start time.Time) {
	metrics.RecordStoreMutationLatency(float64(time.Since(start).Milliseconds()))
}

func observeQuery(start time.Time) {
	metrics.RecordStoreQueryLatency(float64(time.Since(start).Milliseconds()))
}
