package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/procurekit/bidding/internal/adapters/notify"
	"github.com/procurekit/bidding/internal/domain/model"
)

// SignalsHandler streams refresh signals to clients over server-sent events.
type SignalsHandler struct {
	deps Dependencies
}

// NewSignalsHandler creates a new signals handler.
func NewSignalsHandler(deps Dependencies) *SignalsHandler {
	return &SignalsHandler{deps: deps}
}

// scopesFromRequest parses repeated bidding, project, and user query
// parameters into subscription scopes.
func scopesFromRequest(r *http.Request) []notify.ScopeKey {
	q := r.URL.Query()
	var scopes []notify.ScopeKey
	for _, id := range q["bidding"] {
		scopes = append(scopes, notify.ScopeKey{Scope: model.ScopeBidding, ID: id})
	}
	for _, id := range q["project"] {
		scopes = append(scopes, notify.ScopeKey{Scope: model.ScopeProject, ID: id})
	}
	for _, id := range q["user"] {
		scopes = append(scopes, notify.ScopeKey{Scope: model.ScopeUser, ID: id})
	}
	return scopes
}

// HandleStream handles GET /signals requests. Each matching signal is
// written as one SSE event; clients react to a refresh by re-fetching the
// snapshot rather than patching local state.
func (h *SignalsHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	const op = "api.stream_signals"

	if _, err := actorFromRequest(r); err != nil {
		writeError(w, http.StatusUnauthorized, "missing_actor", NewKind(op, err))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "internal_error", NewKind(op, fmt.Errorf("streaming unsupported")))
		return
	}

	scopes := scopesFromRequest(r)
	if len(scopes) == 0 {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, notify.ErrNoScopes))
		return
	}

	sub, err := h.deps.Subscribe(r.Context(), scopes...)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case sig, open := <-sub.Signals():
			if !open {
				return
			}
			payload, err := json.Marshal(sig)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", sig.Kind, payload)
			flusher.Flush()
		}
	}
}
