// Package service provides the core workflow service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/procurekit/bidding/internal/adapters/notify"
	"github.com/procurekit/bidding/internal/adapters/repository"
	"github.com/procurekit/bidding/internal/domain/authz"
	"github.com/procurekit/bidding/internal/domain/model"
	"github.com/procurekit/bidding/internal/domain/scoring"
	"github.com/procurekit/bidding/pkg/logger"
	"github.com/procurekit/bidding/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultOperationTimeout = 5 * time.Second
	defaultQueueSize        = 64
)

// Service orchestrates the bidding workflow: every mutating operation runs
// authorization, then the domain-invariant-protecting store mutation, then
// emits change signals for observers to re-fetch.
type Service struct {
	mu sync.RWMutex

	store repository.Store
	bus   notify.Bus

	// Configuration
	timeout   time.Duration
	queueSize int

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the authoritative store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithBus sets the signal bus.
func WithBus(bus notify.Bus) Option {
	return func(s *Service) {
		if bus != nil {
			s.bus = bus
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithOperationTimeout bounds every storage call made by one operation.
func WithOperationTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithSubscriberQueueSize sets the default bus queue bound.
func WithSubscriberQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		timeout:   defaultOperationTimeout,
		queueSize: defaultQueueSize,
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes defaulted components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("workflow")
	}
	if s.store == nil {
		s.store = repository.NewMemStore(ctx)
		s.logger.Info(ctx, "using in-memory store")
	}
	if s.bus == nil {
		s.bus = notify.NewInMemoryBus(notify.WithSubscriberQueueSize(s.queueSize))
	}

	s.started = true
	s.logger.Info(ctx, "bidding workflow service started",
		logger.Duration("operationTimeout", s.timeout),
		logger.Int("subscriberQueueSize", s.queueSize),
	)
	return nil
}

// Stop gracefully shuts the service down.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	if closer, ok := s.bus.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
	s.started = false
	s.logger.Info(context.Background(), "bidding workflow service stopped")
}

// CreateBiddingInput carries caller-supplied fields for a new bidding.
type CreateBiddingInput struct {
	Title             string
	Method            model.BidMethod
	Period            model.Period
	PurchaseRequestID string
	ProjectID         string
}

// CreateBidding stores a new bidding in PENDING owned by the acting buyer.
func (s *Service) CreateBidding(ctx context.Context, actor model.Actor, in CreateBiddingInput) (model.Bidding, error) {
	const op = "create-bidding"

	if in.Title == "" || !in.Method.Valid() || in.PurchaseRequestID == "" {
		return model.Bidding{}, s.reject(ctx, op, fmt.Errorf("%w: missing title, method, or purchase request", model.ErrValidation))
	}
	if !in.Period.End.After(in.Period.Start) {
		return model.Bidding{}, s.reject(ctx, op, fmt.Errorf("%w: bidding period end must follow start", model.ErrValidation))
	}
	if !authz.Allow(actor, authz.ActionEditBidding, authz.Context{Status: model.StatusPending, OwnerID: actor.ID}) {
		return model.Bidding{}, s.reject(ctx, op, model.ErrForbidden)
	}

	b := model.Bidding{
		ID:                uuid.NewString(),
		Title:             in.Title,
		Status:            model.StatusPending,
		Method:            in.Method,
		Period:            in.Period,
		PurchaseRequestID: in.PurchaseRequestID,
		ProjectID:         in.ProjectID,
		OwnerID:           actor.ID,
		CreatedAt:         time.Now().UTC(),
	}

	created, err := mutate(s, ctx, func(mctx context.Context) (model.Bidding, error) {
		return s.store.CreateBidding(mctx, b)
	})
	if err != nil {
		return model.Bidding{}, s.reject(ctx, op, err)
	}

	s.signalBidding(ctx, created)
	return created, nil
}

// RequestTransition validates and executes one status transition, appends the
// history record, and signals observers of the bidding and its project.
func (s *Service) RequestTransition(ctx context.Context, actor model.Actor, biddingID string, target model.Status, reason string) (model.Snapshot, error) {
	const op = "change-status"

	if !target.Valid() {
		return model.Snapshot{}, s.reject(ctx, op, fmt.Errorf("%w: unknown status %q", model.ErrValidation, target))
	}

	b, err := s.loadBidding(ctx, biddingID)
	if err != nil {
		return model.Snapshot{}, s.reject(ctx, op, err)
	}
	if !b.Status.CanTransitionTo(target) {
		return model.Snapshot{}, s.reject(ctx, op, fmt.Errorf("%w: %s -> %s", model.ErrInvalidTransition, b.Status, target))
	}
	if !authz.Allow(actor, authz.ActionChangeStatus, authz.Context{Status: b.Status, OwnerID: b.OwnerID}) {
		return model.Snapshot{}, s.reject(ctx, op, model.ErrForbidden)
	}

	entry := model.StatusHistoryEntry{
		ActorID:   actor.ID,
		Reason:    reason,
		Timestamp: time.Now().UTC(),
	}
	updated, err := mutate(s, ctx, func(mctx context.Context) (model.Bidding, error) {
		return s.store.UpdateBiddingStatus(mctx, biddingID, target, entry)
	})
	if err != nil {
		return model.Snapshot{}, s.reject(ctx, op, err)
	}

	metrics.RecordStatusTransition(string(b.Status), string(target))
	s.logger.Info(ctx, "bidding status changed",
		logger.String("biddingID", biddingID),
		logger.String("from", string(b.Status)),
		logger.String("to", string(target)),
		logger.String("actorID", actor.ID),
	)
	s.signalBidding(ctx, updated)

	return s.snapshot(ctx, biddingID)
}

// ParticipationInput carries one supplier's bid submission.
type ParticipationInput struct {
	SupplierName string
	UnitPrice    decimal.Decimal
	TotalAmount  decimal.Decimal
}

// SubmitParticipation records a supplier's bid while the bidding is open.
func (s *Service) SubmitParticipation(ctx context.Context, actor model.Actor, biddingID string, in ParticipationInput) (model.Participation, error) {
	const op = "submit-participation"

	if in.SupplierName == "" {
		return model.Participation{}, s.reject(ctx, op, fmt.Errorf("%w: missing supplier name", model.ErrValidation))
	}
	if !in.UnitPrice.IsPositive() || !in.TotalAmount.IsPositive() {
		return model.Participation{}, s.reject(ctx, op, fmt.Errorf("%w: bid amounts must be positive", model.ErrValidation))
	}

	b, err := s.loadBidding(ctx, biddingID)
	if err != nil {
		return model.Participation{}, s.reject(ctx, op, err)
	}
	if !authz.Allow(actor, authz.ActionSubmitParticipation, authz.Context{Status: b.Status, OwnerID: b.OwnerID}) {
		return model.Participation{}, s.reject(ctx, op, model.ErrForbidden)
	}

	p := model.Participation{
		ID:           uuid.NewString(),
		BiddingID:    biddingID,
		SupplierID:   actor.ID,
		SupplierName: in.SupplierName,
		UnitPrice:    in.UnitPrice,
		TotalAmount:  in.TotalAmount,
		SubmittedAt:  time.Now().UTC(),
	}
	created, err := mutate(s, ctx, func(mctx context.Context) (model.Participation, error) {
		return s.store.CreateParticipation(mctx, p)
	})
	if err != nil {
		return model.Participation{}, s.reject(ctx, op, err)
	}

	metrics.RecordParticipation()
	s.signalBidding(ctx, b)
	return created, nil
}

// SubmitEvaluation scores one participation of a CLOSED bidding. A second
// submission replaces the first and recomputes the derived fields.
func (s *Service) SubmitEvaluation(ctx context.Context, actor model.Actor, participationID string, scores scoring.Input, comment string) (model.Evaluation, error) {
	const op = "submit-evaluation"

	p, err := s.loadParticipation(ctx, participationID)
	if err != nil {
		return model.Evaluation{}, s.reject(ctx, op, err)
	}
	b, err := s.loadBidding(ctx, p.BiddingID)
	if err != nil {
		return model.Evaluation{}, s.reject(ctx, op, err)
	}
	if b.Status != model.StatusClosed {
		return model.Evaluation{}, s.reject(ctx, op, fmt.Errorf("%w: evaluation requires a CLOSED bidding, got %s", model.ErrInvalidState, b.Status))
	}
	if !authz.Allow(actor, authz.ActionSubmitEvaluation, authz.Context{Status: b.Status, OwnerID: b.OwnerID}) {
		return model.Evaluation{}, s.reject(ctx, op, model.ErrForbidden)
	}

	result, err := scoring.Score(scores)
	if err != nil {
		return model.Evaluation{}, s.reject(ctx, op, fmt.Errorf("%w: %v", model.ErrValidation, err))
	}

	e := model.Evaluation{
		ID:               uuid.NewString(),
		ParticipationID:  participationID,
		BiddingID:        p.BiddingID,
		EvaluatorID:      actor.ID,
		PriceScore:       scores.Price,
		QualityScore:     scores.Quality,
		DeliveryScore:    scores.Delivery,
		ReliabilityScore: scores.Reliability,
		Comment:          comment,
		WeightedScore:    result.WeightedScore,
		Grade:            result.Grade,
		CreatedAt:        time.Now().UTC(),
	}
	stored, err := mutate(s, ctx, func(mctx context.Context) (model.Evaluation, error) {
		return s.store.UpsertEvaluation(mctx, e)
	})
	if err != nil {
		return model.Evaluation{}, s.reject(ctx, op, err)
	}

	metrics.RecordEvaluation()
	s.signalBidding(ctx, b)
	return stored, nil
}

// SelectWinner marks exactly one participation as the chosen bidder. Requires
// every participation evaluated and no prior winner.
func (s *Service) SelectWinner(ctx context.Context, actor model.Actor, biddingID, participationID string) (model.Participation, error) {
	const op = "select-winner"

	b, err := s.loadBidding(ctx, biddingID)
	if err != nil {
		return model.Participation{}, s.reject(ctx, op, err)
	}
	participations, err := s.listParticipations(ctx, biddingID)
	if err != nil {
		return model.Participation{}, s.reject(ctx, op, err)
	}
	authzCtx := authz.Context{Status: b.Status, OwnerID: b.OwnerID}
	for _, p := range participations {
		if p.IsSelectedBidder {
			authzCtx.WinnerSelected = true
		}
	}
	authzCtx.AllEvaluated = allEvaluated(participations)
	if !authz.Allow(actor, authz.ActionSelectWinner, authzCtx) {
		return model.Participation{}, s.reject(ctx, op, model.ErrForbidden)
	}

	winner, err := mutate(s, ctx, func(mctx context.Context) (model.Participation, error) {
		return s.store.SelectWinner(mctx, biddingID, participationID)
	})
	if err != nil {
		return model.Participation{}, s.reject(ctx, op, err)
	}

	metrics.RecordWinnerSelection()
	s.logger.Info(ctx, "winner selected",
		logger.String("biddingID", biddingID),
		logger.String("participationID", participationID),
		logger.String("supplierID", winner.SupplierID),
	)
	s.signalBidding(ctx, b)
	return winner, nil
}

// CreateContractDraft creates the downstream contract draft for the winning
// participation. The contract's own lifecycle is external to this core.
func (s *Service) CreateContractDraft(ctx context.Context, actor model.Actor, biddingID, participationID string) (model.ContractDraft, error) {
	const op = "create-contract"

	b, err := s.loadBidding(ctx, biddingID)
	if err != nil {
		return model.ContractDraft{}, s.reject(ctx, op, err)
	}
	if !authz.Allow(actor, authz.ActionCreateContract, authz.Context{Status: b.Status, OwnerID: b.OwnerID}) {
		return model.ContractDraft{}, s.reject(ctx, op, model.ErrForbidden)
	}

	d := model.ContractDraft{
		ID:              uuid.NewString(),
		BiddingID:       biddingID,
		ParticipationID: participationID,
		CreatedAt:       time.Now().UTC(),
	}
	created, err := mutate(s, ctx, func(mctx context.Context) (model.ContractDraft, error) {
		return s.store.CreateContractDraft(mctx, d)
	})
	if err != nil {
		return model.ContractDraft{}, s.reject(ctx, op, err)
	}

	metrics.RecordContractDraft()
	s.signalBidding(ctx, b)
	return created, nil
}

// Snapshot returns the authoritative read view of one bidding.
func (s *Service) Snapshot(ctx context.Context, actor model.Actor, biddingID string) (model.Snapshot, error) {
	const op = "read-snapshot"

	if !authz.Allow(actor, authz.ActionRead, authz.Context{}) {
		return model.Snapshot{}, s.reject(ctx, op, model.ErrForbidden)
	}
	snap, err := s.snapshot(ctx, biddingID)
	if err != nil {
		return model.Snapshot{}, s.reject(ctx, op, err)
	}
	return snap, nil
}

// Subscribe registers a signal observer; used by the streaming API.
func (s *Service) Subscribe(ctx context.Context, scopes ...notify.ScopeKey) (*notify.Subscription, error) {
	return s.bus.Subscribe(ctx, scopes...)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":             s.started,
		"operationTimeoutMS":  int(s.timeout / time.Millisecond),
		"subscriberQueueSize": s.queueSize,
	}
	if s.started {
		count := s.store.Count(context.Background())
		stats["biddingsTracked"] = count
		metrics.UpdateBiddingsTracked(count)
		if b, ok := s.bus.(*notify.InMemoryBus); ok {
			stats["busSubscribers"] = b.SubscriberCount()
		}
	}
	return stats
}

// mutate runs one storage mutation detached from the caller's cancellation:
// an abandoned request still runs to completion so no transition or
// evaluation is left half-applied. The configured timeout is the only bound.
func mutate[T any](s *Service, ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	mctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	out, err := fn(mctx)
	if errors.Is(err, context.DeadlineExceeded) {
		var zero T
		return zero, model.ErrTimeout
	}
	return out, err
}

// loadBidding reads one bidding under the operation timeout.
func (s *Service) loadBidding(ctx context.Context, id string) (model.Bidding, error) {
	rctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	b, err := s.store.GetBidding(rctx, id)
	if errors.Is(err, context.DeadlineExceeded) {
		return model.Bidding{}, model.ErrTimeout
	}
	return b, err
}

func (s *Service) loadParticipation(ctx context.Context, id string) (model.Participation, error) {
	rctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	p, err := s.store.GetParticipation(rctx, id)
	if errors.Is(err, context.DeadlineExceeded) {
		return model.Participation{}, model.ErrTimeout
	}
	return p, err
}

func (s *Service) listParticipations(ctx context.Context, biddingID string) ([]model.Participation, error) {
	rctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	out, err := s.store.ListParticipations(rctx, biddingID)
	if errors.Is(err, context.DeadlineExceeded) {
		return nil, model.ErrTimeout
	}
	return out, err
}

func (s *Service) snapshot(ctx context.Context, biddingID string) (model.Snapshot, error) {
	rctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	snap, err := s.store.Snapshot(rctx, biddingID)
	if errors.Is(err, context.DeadlineExceeded) {
		return model.Snapshot{}, model.ErrTimeout
	}
	return snap, err
}

// signalBidding emits refresh signals for the bidding and its parent project.
func (s *Service) signalBidding(ctx context.Context, b model.Bidding) {
	s.bus.Publish(ctx, model.Refresh(model.ScopeBidding, b.ID))
	if b.ProjectID != "" {
		s.bus.Publish(ctx, model.Refresh(model.ScopeProject, b.ProjectID))
	}
}

// reject records and logs a failed operation, passing the error through.
func (s *Service) reject(ctx context.Context, op string, err error) error {
	metrics.RecordOperationRejected(op, errorKind(err))
	s.logger.Debug(ctx, "operation rejected",
		logger.String("operation", op),
		logger.Error(err),
	)
	return err
}

// errorKind maps an error to its sentinel kind label.
func errorKind(err error) string {
	switch {
	case errors.Is(err, model.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, model.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, model.ErrForbidden):
		return "forbidden"
	case errors.Is(err, model.ErrValidation):
		return "validation"
	case errors.Is(err, model.ErrAlreadyDecided):
		return "already_decided"
	case errors.Is(err, model.ErrNotFound):
		return "not_found"
	case errors.Is(err, model.ErrTimeout):
		return "timeout"
	default:
		return "internal"
	}
}

// allEvaluated reports whether every participation carries an evaluation.
func allEvaluated(participations []model.Participation) bool {
	for _, p := range participations {
		if !p.IsEvaluated {
			return false
		}
	}
	return len(participations) > 0
}
