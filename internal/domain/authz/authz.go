// Package authz is the single authorization checkpoint for every mutating
// workflow operation. Allow is a pure function of the actor, the requested
// action, and the current bidding context; it never touches state.
package authz

import (
	"github.com/procurekit/bidding/internal/domain/model"
)

// Action names one guarded operation.
type Action string

// Guarded actions.
const (
	ActionChangeStatus        Action = "change-status"
	ActionEditBidding         Action = "edit-bidding"
	ActionSubmitParticipation Action = "submit-participation"
	ActionSubmitEvaluation    Action = "submit-evaluation"
	ActionSelectWinner        Action = "select-winner"
	ActionCreateContract      Action = "create-contract"
	ActionRead                Action = "read"
)

// Context carries the slice of bidding state the decision depends on.
type Context struct {
	Status model.Status
	// OwnerID is the buyer who created the bidding.
	OwnerID string
	// WinnerSelected and AllEvaluated describe the participation ledger for
	// per-participation actions.
	WinnerSelected bool
	AllEvaluated   bool
}

// Allow reports whether actor may perform action in the given context.
func Allow(actor model.Actor, action Action, c Context) bool {
	if !actor.Role.Valid() {
		return false
	}
	if action == ActionRead {
		return true
	}
	switch actor.Role {
	case model.RoleAdministrator:
		return true
	case model.RoleBuyer:
		return allowBuyer(actor, action, c)
	case model.RoleSupplier:
		return allowSupplier(action, c)
	}
	return false
}

// allowBuyer gates the owning buyer's workflow actions. A buyer has no power
// over biddings owned by someone else.
func allowBuyer(actor model.Actor, action Action, c Context) bool {
	if c.OwnerID == "" || c.OwnerID != actor.ID {
		return false
	}
	switch action {
	case ActionChangeStatus, ActionEditBidding:
		return true
	case ActionSubmitEvaluation, ActionSelectWinner, ActionCreateContract:
		// Post-closing actions; status preconditions are enforced by the
		// workflow itself, the gate only decides the role question.
		return c.Status == model.StatusClosed
	}
	return false
}

// allowSupplier gates suppliers to bid submission on an open bidding.
func allowSupplier(action Action, c Context) bool {
	return action == ActionSubmitParticipation && c.Status == model.StatusOngoing
}
