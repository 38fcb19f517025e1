package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/procurekit/bidding/internal/domain/model"
)

// PGStore implements Store on postgres. Per-bidding serialization uses
// row-level SELECT ... FOR UPDATE on the bidding row inside a transaction,
// so concurrent mutators on one bidding queue up instead of racing.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore creates a postgres-backed store from an existing pool.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

const biddingColumns = `id, title, status, method, period_start, period_end,
	purchase_request_id, project_id, owner_id, contract_id, version, created_at`

// scanBidding reads one bidding row.
func scanBidding(row pgx.Row) (model.Bidding, error) {
	var b model.Bidding
	err := row.Scan(
		&b.ID, &b.Title, &b.Status, &b.Method,
		&b.Period.Start, &b.Period.End,
		&b.PurchaseRequestID, &b.ProjectID, &b.OwnerID, &b.ContractID,
		&b.Version, &b.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Bidding{}, model.ErrNotFound
	}
	if err != nil {
		return model.Bidding{}, fmt.Errorf("scan bidding: %w", err)
	}
	return b, nil
}

// lockBidding loads the bidding row for update inside tx.
func lockBidding(ctx context.Context, tx pgx.Tx, id string) (model.Bidding, error) {
	row := tx.QueryRow(ctx,
		`SELECT `+biddingColumns+` FROM bidding WHERE id = $1 FOR UPDATE`, id)
	return scanBidding(row)
}

// CreateBidding stores a new bidding in its initial state.
func (s *PGStore) CreateBidding(ctx context.Context, b model.Bidding) (model.Bidding, error) {
	defer observeMutation(time.Now())

	b.Version = 1
	_, err := s.pool.Exec(ctx,
		`INSERT INTO bidding (id, title, status, method, period_start, period_end,
			purchase_request_id, project_id, owner_id, contract_id, version, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		b.ID, b.Title, b.Status, b.Method, b.Period.Start, b.Period.End,
		b.PurchaseRequestID, b.ProjectID, b.OwnerID, b.ContractID, b.Version, b.CreatedAt,
	)
	if err != nil {
		return model.Bidding{}, fmt.Errorf("insert bidding: %w", err)
	}
	return b, nil
}

// GetBidding returns one bidding.
func (s *PGStore) GetBidding(ctx context.Context, id string) (model.Bidding, error) {
	defer observeQuery(time.Now())

	row := s.pool.QueryRow(ctx, `SELECT `+biddingColumns+` FROM bidding WHERE id = $1`, id)
	return scanBidding(row)
}

// Snapshot returns the full read view of one bidding. The three reads are not
// wrapped in a transaction; observers tolerate eventually-consistent reads
// because they re-fetch on signal.
func (s *PGStore) Snapshot(ctx context.Context, biddingID string) (model.Snapshot, error) {
	defer observeQuery(time.Now())

	b, err := s.GetBidding(ctx, biddingID)
	if err != nil {
		return model.Snapshot{}, err
	}
	participations, err := s.ListParticipations(ctx, biddingID)
	if err != nil {
		return model.Snapshot{}, err
	}
	history, err := s.listHistory(ctx, biddingID)
	if err != nil {
		return model.Snapshot{}, err
	}
	return model.Snapshot{
		Bidding:        b,
		Participations: participations,
		History:        history,
		Phase:          model.DerivePhase(b),
	}, nil
}

func (s *PGStore) listHistory(ctx context.Context, biddingID string) ([]model.StatusHistoryEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT from_status, to_status, actor_id, reason, ts
		 FROM status_history WHERE bidding_id = $1 ORDER BY id`, biddingID)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []model.StatusHistoryEntry
	for rows.Next() {
		var e model.StatusHistoryEntry
		if err := rows.Scan(&e.From, &e.To, &e.ActorID, &e.Reason, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return out, nil
}

// UpdateBiddingStatus applies target and appends entry atomically.
func (s *PGStore) UpdateBiddingStatus(ctx context.Context, biddingID string, target model.Status, entry model.StatusHistoryEntry) (model.Bidding, error) {
	defer observeMutation(time.Now())

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return model.Bidding{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	b, err := lockBidding(ctx, tx, biddingID)
	if err != nil {
		return model.Bidding{}, err
	}
	if !b.Status.CanTransitionTo(target) {
		return model.Bidding{}, model.ErrInvalidTransition
	}

	entry.From = b.Status
	entry.To = target
	if _, err := tx.Exec(ctx,
		`UPDATE bidding SET status = $1, version = version + 1 WHERE id = $2`,
		target, biddingID); err != nil {
		return model.Bidding{}, fmt.Errorf("update status: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO status_history (bidding_id, from_status, to_status, actor_id, reason, ts)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		biddingID, entry.From, entry.To, entry.ActorID, entry.Reason, entry.Timestamp); err != nil {
		return model.Bidding{}, fmt.Errorf("insert history: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Bidding{}, fmt.Errorf("commit: %w", err)
	}

	b.Status = target
	b.Version++
	return b, nil
}

// CreateParticipation appends a supplier bid while the bidding accepts them.
func (s *PGStore) CreateParticipation(ctx context.Context, p model.Participation) (model.Participation, error) {
	defer observeMutation(time.Now())

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return model.Participation{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	b, err := lockBidding(ctx, tx, p.BiddingID)
	if err != nil {
		return model.Participation{}, err
	}
	if !b.Status.AcceptsParticipations() {
		return model.Participation{}, model.ErrInvalidState
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO participation (id, bidding_id, supplier_id, supplier_name,
			unit_price, total_amount, submitted_at, is_evaluated, evaluation_score, is_selected_bidder)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, false, 0, false)`,
		p.ID, p.BiddingID, p.SupplierID, p.SupplierName,
		p.UnitPrice.String(), p.TotalAmount.String(), p.SubmittedAt); err != nil {
		return model.Participation{}, fmt.Errorf("insert participation: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`UPDATE bidding SET version = version + 1 WHERE id = $1`, p.BiddingID); err != nil {
		return model.Participation{}, fmt.Errorf("bump version: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Participation{}, fmt.Errorf("commit: %w", err)
	}
	return p, nil
}

// scanParticipation reads one participation row. Money columns round-trip
// through text to stay exact.
func scanParticipation(row pgx.Row) (model.Participation, error) {
	var p model.Participation
	var unitPrice, totalAmount string
	err := row.Scan(
		&p.ID, &p.BiddingID, &p.SupplierID, &p.SupplierName,
		&unitPrice, &totalAmount, &p.SubmittedAt,
		&p.IsEvaluated, &p.EvaluationScore, &p.IsSelectedBidder,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Participation{}, model.ErrNotFound
	}
	if err != nil {
		return model.Participation{}, fmt.Errorf("scan participation: %w", err)
	}
	if p.UnitPrice, err = decimal.NewFromString(unitPrice); err != nil {
		return model.Participation{}, fmt.Errorf("parse unit price: %w", err)
	}
	if p.TotalAmount, err = decimal.NewFromString(totalAmount); err != nil {
		return model.Participation{}, fmt.Errorf("parse total amount: %w", err)
	}
	return p, nil
}

// GetParticipation returns one participation by id.
func (s *PGStore) GetParticipation(ctx context.Context, id string) (model.Participation, error) {
	defer observeQuery(time.Now())

	return scanParticipation(s.pool.QueryRow(ctx,
		`SELECT id, bidding_id, supplier_id, supplier_name,
			unit_price::text, total_amount::text, submitted_at,
			is_evaluated, evaluation_score, is_selected_bidder
		 FROM participation WHERE id = $1`, id))
}

// ListParticipations returns all participations of one bidding.
func (s *PGStore) ListParticipations(ctx context.Context, biddingID string) ([]model.Participation, error) {
	defer observeQuery(time.Now())

	rows, err := s.pool.Query(ctx,
		`SELECT id, bidding_id, supplier_id, supplier_name,
			unit_price::text, total_amount::text, submitted_at,
			is_evaluated, evaluation_score, is_selected_bidder
		 FROM participation WHERE bidding_id = $1 ORDER BY submitted_at`, biddingID)
	if err != nil {
		return nil, fmt.Errorf("query participations: %w", err)
	}
	defer rows.Close()

	var out []model.Participation
	for rows.Next() {
		p, err := scanParticipation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate participations: %w", err)
	}
	return out, nil
}

// GetEvaluation returns the evaluation for a participation, if any.
func (s *PGStore) GetEvaluation(ctx context.Context, participationID string) (model.Evaluation, error) {
	defer observeQuery(time.Now())

	var e model.Evaluation
	err := s.pool.QueryRow(ctx,
		`SELECT id, participation_id, bidding_id, evaluator_id,
			price_score, quality_score, delivery_score, reliability_score,
			comment, weighted_score, grade, created_at
		 FROM evaluation WHERE participation_id = $1`, participationID).Scan(
		&e.ID, &e.ParticipationID, &e.BiddingID, &e.EvaluatorID,
		&e.PriceScore, &e.QualityScore, &e.DeliveryScore, &e.ReliabilityScore,
		&e.Comment, &e.WeightedScore, &e.Grade, &e.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Evaluation{}, model.ErrNotFound
	}
	if err != nil {
		return model.Evaluation{}, fmt.Errorf("scan evaluation: %w", err)
	}
	return e, nil
}

// UpsertEvaluation stores e and flags the participation atomically.
func (s *PGStore) UpsertEvaluation(ctx context.Context, e model.Evaluation) (model.Evaluation, error) {
	defer observeMutation(time.Now())

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return model.Evaluation{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	b, err := lockBidding(ctx, tx, e.BiddingID)
	if err != nil {
		return model.Evaluation{}, err
	}
	if b.Status != model.StatusClosed {
		return model.Evaluation{}, model.ErrInvalidState
	}

	var exists bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM participation WHERE id = $1 AND bidding_id = $2)`,
		e.ParticipationID, e.BiddingID).Scan(&exists); err != nil {
		return model.Evaluation{}, fmt.Errorf("check participation: %w", err)
	}
	if !exists {
		return model.Evaluation{}, model.ErrNotFound
	}

	// Re-submission replaces the prior evaluation; the first id survives.
	if err := tx.QueryRow(ctx,
		`INSERT INTO evaluation (id, participation_id, bidding_id, evaluator_id,
			price_score, quality_score, delivery_score, reliability_score,
			comment, weighted_score, grade, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 ON CONFLICT (participation_id) DO UPDATE SET
			evaluator_id = EXCLUDED.evaluator_id,
			price_score = EXCLUDED.price_score,
			quality_score = EXCLUDED.quality_score,
			delivery_score = EXCLUDED.delivery_score,
			reliability_score = EXCLUDED.reliability_score,
			comment = EXCLUDED.comment,
			weighted_score = EXCLUDED.weighted_score,
			grade = EXCLUDED.grade
		 RETURNING id`,
		e.ID, e.ParticipationID, e.BiddingID, e.EvaluatorID,
		e.PriceScore, e.QualityScore, e.DeliveryScore, e.ReliabilityScore,
		e.Comment, e.WeightedScore, e.Grade, e.CreatedAt).Scan(&e.ID); err != nil {
		return model.Evaluation{}, fmt.Errorf("upsert evaluation: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`UPDATE participation SET is_evaluated = true, evaluation_score = $1 WHERE id = $2`,
		e.WeightedScore, e.ParticipationID); err != nil {
		return model.Evaluation{}, fmt.Errorf("flag participation: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`UPDATE bidding SET version = version + 1 WHERE id = $1`, e.BiddingID); err != nil {
		return model.Evaluation{}, fmt.Errorf("bump version: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Evaluation{}, fmt.Errorf("commit: %w", err)
	}
	return e, nil
}

// SelectWinner flags the named participation under the bidding row lock.
func (s *PGStore) SelectWinner(ctx context.Context, biddingID, participationID string) (model.Participation, error) {
	defer observeMutation(time.Now())

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return model.Participation{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	b, err := lockBidding(ctx, tx, biddingID)
	if err != nil {
		return model.Participation{}, err
	}
	if b.Status != model.StatusClosed {
		return model.Participation{}, model.ErrInvalidState
	}

	var winnerExists, unevaluatedExists, named bool
	if err := tx.QueryRow(ctx,
		`SELECT
			EXISTS(SELECT 1 FROM participation WHERE bidding_id = $1 AND is_selected_bidder),
			EXISTS(SELECT 1 FROM participation WHERE bidding_id = $1 AND NOT is_evaluated),
			EXISTS(SELECT 1 FROM participation WHERE bidding_id = $1 AND id = $2)`,
		biddingID, participationID).Scan(&winnerExists, &unevaluatedExists, &named); err != nil {
		return model.Participation{}, fmt.Errorf("check ledger: %w", err)
	}
	if winnerExists {
		return model.Participation{}, model.ErrAlreadyDecided
	}
	if unevaluatedExists {
		return model.Participation{}, model.ErrInvalidState
	}
	if !named {
		return model.Participation{}, model.ErrNotFound
	}

	if _, err := tx.Exec(ctx,
		`UPDATE participation SET is_selected_bidder = true WHERE id = $1`, participationID); err != nil {
		return model.Participation{}, fmt.Errorf("flag winner: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`UPDATE bidding SET version = version + 1 WHERE id = $1`, biddingID); err != nil {
		return model.Participation{}, fmt.Errorf("bump version: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Participation{}, fmt.Errorf("commit: %w", err)
	}
	return s.GetParticipation(ctx, participationID)
}

// CreateContractDraft records a draft and links it to the bidding.
func (s *PGStore) CreateContractDraft(ctx context.Context, d model.ContractDraft) (model.ContractDraft, error) {
	defer observeMutation(time.Now())

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return model.ContractDraft{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	b, err := lockBidding(ctx, tx, d.BiddingID)
	if err != nil {
		return model.ContractDraft{}, err
	}
	if b.Status != model.StatusClosed {
		return model.ContractDraft{}, model.ErrInvalidState
	}

	var isWinner, liveContract bool
	if err := tx.QueryRow(ctx,
		`SELECT
			EXISTS(SELECT 1 FROM participation WHERE id = $1 AND bidding_id = $2 AND is_selected_bidder),
			EXISTS(SELECT 1 FROM contract_draft WHERE bidding_id = $2 AND NOT canceled)`,
		d.ParticipationID, d.BiddingID).Scan(&isWinner, &liveContract); err != nil {
		return model.ContractDraft{}, fmt.Errorf("check contract gate: %w", err)
	}
	if !isWinner {
		return model.ContractDraft{}, model.ErrInvalidState
	}
	if liveContract {
		return model.ContractDraft{}, model.ErrAlreadyDecided
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO contract_draft (id, bidding_id, participation_id, canceled, created_at)
		 VALUES ($1, $2, $3, false, $4)`,
		d.ID, d.BiddingID, d.ParticipationID, d.CreatedAt); err != nil {
		return model.ContractDraft{}, fmt.Errorf("insert contract draft: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`UPDATE bidding SET contract_id = $1, version = version + 1 WHERE id = $2`,
		d.ID, d.BiddingID); err != nil {
		return model.ContractDraft{}, fmt.Errorf("link contract: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return model.ContractDraft{}, fmt.Errorf("commit: %w", err)
	}
	return d, nil
}

// Count returns the number of biddings tracked.
func (s *PGStore) Count(ctx context.Context) int {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM bidding`).Scan(&n); err != nil {
		return 0
	}
	return n
}
