package api

import (
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	service "github.com/procurekit/bidding/internal/app"
	"github.com/procurekit/bidding/internal/domain/scoring"
)

// LedgerHandler handles participation, evaluation, and decision requests.
type LedgerHandler struct {
	deps Dependencies
}

// NewLedgerHandler creates a new ledger handler.
func NewLedgerHandler(deps Dependencies) *LedgerHandler {
	return &LedgerHandler{deps: deps}
}

// participateRequest mirrors the POST /biddings/{id}/participations body.
// Amounts travel as strings so no precision is lost in transit.
type participateRequest struct {
	SupplierName string `json:"supplierName"`
	UnitPrice    string `json:"unitPrice"`
	TotalAmount  string `json:"totalAmount"`
}

// HandleParticipate handles POST /biddings/{id}/participations requests.
func (h *LedgerHandler) HandleParticipate(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_participation"

	actor, err := actorFromRequest(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "missing_actor", NewKind(op, err))
		return
	}
	var req participateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	unitPrice, err := decimal.NewFromString(req.UnitPrice)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	totalAmount, err := decimal.NewFromString(req.TotalAmount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	p, err := h.deps.SubmitParticipation(r.Context(), actor, r.PathValue("id"), service.ParticipationInput{
		SupplierName: req.SupplierName,
		UnitPrice:    unitPrice,
		TotalAmount:  totalAmount,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// evaluateRequest mirrors the POST /participations/{id}/evaluation body.
type evaluateRequest struct {
	PriceScore       float64 `json:"priceScore"`
	QualityScore     float64 `json:"qualityScore"`
	DeliveryScore    float64 `json:"deliveryScore"`
	ReliabilityScore float64 `json:"reliabilityScore"`
	Comment          string  `json:"comment"`
}

// HandleEvaluate handles POST /participations/{id}/evaluation requests.
// Re-submitting replaces the previous evaluation for the participation.
func (h *LedgerHandler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_evaluation"

	actor, err := actorFromRequest(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "missing_actor", NewKind(op, err))
		return
	}
	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	ev, err := h.deps.SubmitEvaluation(r.Context(), actor, r.PathValue("id"), scoring.Input{
		Price:       req.PriceScore,
		Quality:     req.QualityScore,
		Delivery:    req.DeliveryScore,
		Reliability: req.ReliabilityScore,
	}, req.Comment)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

// decisionRequest names the participation a decision applies to.
type decisionRequest struct {
	ParticipationID string `json:"participationId"`
}

// HandleSelectWinner handles POST /biddings/{id}/winner requests.
func (h *LedgerHandler) HandleSelectWinner(w http.ResponseWriter, r *http.Request) {
	const op = "api.select_winner"

	actor, err := actorFromRequest(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "missing_actor", NewKind(op, err))
		return
	}
	var req decisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	p, err := h.deps.SelectWinner(r.Context(), actor, r.PathValue("id"), req.ParticipationID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleContractDraft handles POST /biddings/{id}/contract-draft requests.
func (h *LedgerHandler) HandleContractDraft(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_contract_draft"

	actor, err := actorFromRequest(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "missing_actor", NewKind(op, err))
		return
	}
	var req decisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	draft, err := h.deps.CreateContractDraft(r.Context(), actor, r.PathValue("id"), req.ParticipationID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, draft)
}
