// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/procurekit/bidding/internal/adapters/notify"
	service "github.com/procurekit/bidding/internal/app"
	"github.com/procurekit/bidding/internal/domain/model"
	"github.com/procurekit/bidding/internal/domain/scoring"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	CreateBidding(ctx context.Context, actor model.Actor, in service.CreateBiddingInput) (model.Bidding, error)
	RequestTransition(ctx context.Context, actor model.Actor, biddingID string, target model.Status, reason string) (model.Snapshot, error)
	SubmitParticipation(ctx context.Context, actor model.Actor, biddingID string, in service.ParticipationInput) (model.Participation, error)
	SubmitEvaluation(ctx context.Context, actor model.Actor, participationID string, scores scoring.Input, comment string) (model.Evaluation, error)
	SelectWinner(ctx context.Context, actor model.Actor, biddingID, participationID string) (model.Participation, error)
	CreateContractDraft(ctx context.Context, actor model.Actor, biddingID, participationID string) (model.ContractDraft, error)
	Snapshot(ctx context.Context, actor model.Actor, biddingID string) (model.Snapshot, error)
	Subscribe(ctx context.Context, scopes ...notify.ScopeKey) (*notify.Subscription, error)
}

// Server wires HTTP routes for the workflow API.
type Server struct {
	biddingsHandler *BiddingsHandler
	ledgerHandler   *LedgerHandler
	signalsHandler  *SignalsHandler
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		biddingsHandler: NewBiddingsHandler(deps),
		ledgerHandler:   NewLedgerHandler(deps),
		signalsHandler:  NewSignalsHandler(deps),
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("POST /biddings", MetricsMiddleware(s.biddingsHandler.HandleCreate, "biddings_create"))
	mux.HandleFunc("GET /biddings/{id}", MetricsMiddleware(s.biddingsHandler.HandleSnapshot, "biddings_get"))
	mux.HandleFunc("PUT /biddings/{id}/status", MetricsMiddleware(s.biddingsHandler.HandleStatus, "biddings_status"))

	mux.HandleFunc("POST /biddings/{id}/participations", MetricsMiddleware(s.ledgerHandler.HandleParticipate, "participations_create"))
	mux.HandleFunc("POST /participations/{id}/evaluation", MetricsMiddleware(s.ledgerHandler.HandleEvaluate, "evaluations_submit"))
	mux.HandleFunc("POST /biddings/{id}/winner", MetricsMiddleware(s.ledgerHandler.HandleSelectWinner, "winner_select"))
	mux.HandleFunc("POST /biddings/{id}/contract-draft", MetricsMiddleware(s.ledgerHandler.HandleContractDraft, "contract_draft"))

	mux.HandleFunc("GET /signals", s.signalsHandler.HandleStream)
}

// errorResponse is the JSON error shape.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeDomainError maps a workflow error kind to its HTTP representation.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrValidation):
		writeError(w, http.StatusBadRequest, "validation_error", err)
	case errors.Is(err, model.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", err)
	case errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, model.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_transition", err)
	case errors.Is(err, model.ErrInvalidState):
		writeError(w, http.StatusConflict, "invalid_state", err)
	case errors.Is(err, model.ErrAlreadyDecided):
		writeError(w, http.StatusConflict, "already_decided", err)
	case errors.Is(err, model.ErrTimeout):
		writeError(w, http.StatusGatewayTimeout, "timeout", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

// actorFromRequest reads the already-authenticated identity supplied by the
// session collaborator. The core authorizes it, never authenticates.
func actorFromRequest(r *http.Request) (model.Actor, error) {
	actor := model.Actor{
		ID:         r.Header.Get("X-Actor-ID"),
		Role:       model.Role(r.Header.Get("X-Actor-Role")),
		Department: r.Header.Get("X-Actor-Department"),
		Position:   r.Header.Get("X-Actor-Position"),
	}
	if actor.ID == "" || !actor.Role.Valid() {
		return model.Actor{}, ErrMissingActor
	}
	return actor, nil
}
