// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	service "github.com/procurekit/bidding/internal/app"
	"github.com/procurekit/bidding/internal/domain/model"
)

// BiddingsHandler handles bidding lifecycle requests.
type BiddingsHandler struct {
	deps Dependencies
}

// NewBiddingsHandler creates a new biddings handler.
func NewBiddingsHandler(deps Dependencies) *BiddingsHandler {
	return &BiddingsHandler{deps: deps}
}

// createBiddingRequest mirrors the POST /biddings body.
type createBiddingRequest struct {
	Title             string `json:"title"`
	BidMethod         string `json:"bidMethod"`
	PeriodStart       string `json:"periodStart"`
	PeriodEnd         string `json:"periodEnd"`
	PurchaseRequestID string `json:"purchaseRequestId"`
	ProjectID         string `json:"projectId"`
}

func (req createBiddingRequest) validate() error {
	switch {
	case strings.TrimSpace(req.Title) == "":
		return NewKind("validate", ErrBadRequest)
	case strings.TrimSpace(req.PurchaseRequestID) == "":
		return NewKind("validate", ErrBadRequest)
	}
	if _, err := time.Parse(time.RFC3339, req.PeriodStart); err != nil {
		return WrapKind("validate", ErrBadRequest, err)
	}
	if _, err := time.Parse(time.RFC3339, req.PeriodEnd); err != nil {
		return WrapKind("validate", ErrBadRequest, err)
	}
	return nil
}

// HandleCreate handles POST /biddings requests.
func (h *BiddingsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_bidding"

	actor, err := actorFromRequest(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "missing_actor", NewKind(op, err))
		return
	}
	var req createBiddingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	start, _ := time.Parse(time.RFC3339, req.PeriodStart)
	end, _ := time.Parse(time.RFC3339, req.PeriodEnd)
	b, err := h.deps.CreateBidding(r.Context(), actor, service.CreateBiddingInput{
		Title:             req.Title,
		Method:            model.BidMethod(req.BidMethod),
		Period:            model.Period{Start: start, End: end},
		PurchaseRequestID: req.PurchaseRequestID,
		ProjectID:         req.ProjectID,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

// HandleSnapshot handles GET /biddings/{id} requests. The response is the
// full authoritative view; clients replace their state with it wholesale.
func (h *BiddingsHandler) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_bidding"

	actor, err := actorFromRequest(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "missing_actor", NewKind(op, err))
		return
	}
	snap, err := h.deps.Snapshot(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// statusRequest mirrors the PUT /biddings/{id}/status body.
type statusRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// HandleStatus handles PUT /biddings/{id}/status requests.
func (h *BiddingsHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	const op = "api.update_status"

	actor, err := actorFromRequest(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "missing_actor", NewKind(op, err))
		return
	}
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	snap, err := h.deps.RequestTransition(r.Context(), actor, r.PathValue("id"), model.Status(req.Status), req.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
