package authz_test

import (
	"testing"

	"github.com/procurekit/bidding/internal/domain/authz"
	"github.com/procurekit/bidding/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestAllow_Administrator(t *testing.T) {
	Convey("Given an administrator", t, func() {
		admin := model.Actor{ID: "admin-1", Role: model.RoleAdministrator}

		Convey("Then every action is allowed in every context", func() {
			actions := []authz.Action{
				authz.ActionChangeStatus,
				authz.ActionEditBidding,
				authz.ActionSubmitParticipation,
				authz.ActionSubmitEvaluation,
				authz.ActionSelectWinner,
				authz.ActionCreateContract,
				authz.ActionRead,
			}
			for _, action := range actions {
				So(authz.Allow(admin, action, authz.Context{Status: model.StatusPending, OwnerID: "someone-else"}), ShouldBeTrue)
			}
		})
	})
}

func TestAllow_Buyer(t *testing.T) {
	Convey("Given the buyer who owns the bidding", t, func() {
		owner := model.Actor{ID: "buyer-1", Role: model.RoleBuyer}

		Convey("Then status changes and edits are allowed in any state", func() {
			for _, status := range []model.Status{model.StatusPending, model.StatusOngoing, model.StatusClosed, model.StatusCanceled} {
				c := authz.Context{Status: status, OwnerID: owner.ID}
				So(authz.Allow(owner, authz.ActionChangeStatus, c), ShouldBeTrue)
				So(authz.Allow(owner, authz.ActionEditBidding, c), ShouldBeTrue)
			}
		})

		Convey("Then evaluation, winner selection, and contracts require CLOSED", func() {
			closed := authz.Context{Status: model.StatusClosed, OwnerID: owner.ID}
			open := authz.Context{Status: model.StatusOngoing, OwnerID: owner.ID}

			So(authz.Allow(owner, authz.ActionSubmitEvaluation, closed), ShouldBeTrue)
			So(authz.Allow(owner, authz.ActionSelectWinner, closed), ShouldBeTrue)
			So(authz.Allow(owner, authz.ActionCreateContract, closed), ShouldBeTrue)

			So(authz.Allow(owner, authz.ActionSubmitEvaluation, open), ShouldBeFalse)
			So(authz.Allow(owner, authz.ActionSelectWinner, open), ShouldBeFalse)
			So(authz.Allow(owner, authz.ActionCreateContract, open), ShouldBeFalse)
		})

		Convey("Then a buyer never submits participations", func() {
			c := authz.Context{Status: model.StatusOngoing, OwnerID: owner.ID}
			So(authz.Allow(owner, authz.ActionSubmitParticipation, c), ShouldBeFalse)
		})
	})

	Convey("Given a buyer who does not own the bidding", t, func() {
		stranger := model.Actor{ID: "buyer-2", Role: model.RoleBuyer}
		c := authz.Context{Status: model.StatusClosed, OwnerID: "buyer-1"}

		Convey("Then nothing but reads is allowed", func() {
			So(authz.Allow(stranger, authz.ActionChangeStatus, c), ShouldBeFalse)
			So(authz.Allow(stranger, authz.ActionEditBidding, c), ShouldBeFalse)
			So(authz.Allow(stranger, authz.ActionSubmitEvaluation, c), ShouldBeFalse)
			So(authz.Allow(stranger, authz.ActionSelectWinner, c), ShouldBeFalse)
			So(authz.Allow(stranger, authz.ActionCreateContract, c), ShouldBeFalse)
			So(authz.Allow(stranger, authz.ActionRead, c), ShouldBeTrue)
		})
	})
}

func TestAllow_Supplier(t *testing.T) {
	Convey("Given a supplier", t, func() {
		supplier := model.Actor{ID: "supplier-1", Role: model.RoleSupplier}

		Convey("Then bids are allowed only while the bidding is ONGOING", func() {
			So(authz.Allow(supplier, authz.ActionSubmitParticipation, authz.Context{Status: model.StatusOngoing}), ShouldBeTrue)
			So(authz.Allow(supplier, authz.ActionSubmitParticipation, authz.Context{Status: model.StatusPending}), ShouldBeFalse)
			So(authz.Allow(supplier, authz.ActionSubmitParticipation, authz.Context{Status: model.StatusClosed}), ShouldBeFalse)
			So(authz.Allow(supplier, authz.ActionSubmitParticipation, authz.Context{Status: model.StatusCanceled}), ShouldBeFalse)
		})

		Convey("Then workflow actions are denied", func() {
			c := authz.Context{Status: model.StatusClosed, OwnerID: "buyer-1"}
			So(authz.Allow(supplier, authz.ActionChangeStatus, c), ShouldBeFalse)
			So(authz.Allow(supplier, authz.ActionSubmitEvaluation, c), ShouldBeFalse)
			So(authz.Allow(supplier, authz.ActionSelectWinner, c), ShouldBeFalse)
			So(authz.Allow(supplier, authz.ActionCreateContract, c), ShouldBeFalse)
		})

		Convey("Then reads are allowed", func() {
			So(authz.Allow(supplier, authz.ActionRead, authz.Context{}), ShouldBeTrue)
		})
	})
}

func TestAllow_UnknownRole(t *testing.T) {
	Convey("Given an actor with an unknown role", t, func() {
		ghost := model.Actor{ID: "ghost-1", Role: model.Role("AUDITOR")}

		Convey("Then everything including reads is denied", func() {
			So(authz.Allow(ghost, authz.ActionRead, authz.Context{}), ShouldBeFalse)
			So(authz.Allow(ghost, authz.ActionChangeStatus, authz.Context{OwnerID: ghost.ID}), ShouldBeFalse)
		})
	})
}
