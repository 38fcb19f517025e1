package model_test

import (
	"testing"

	"github.com/procurekit/bidding/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestStatus_Transitions(t *testing.T) {
	Convey("Given the bidding lifecycle transition table", t, func() {
		Convey("Then PENDING can start or cancel", func() {
			So(model.StatusPending.CanTransitionTo(model.StatusOngoing), ShouldBeTrue)
			So(model.StatusPending.CanTransitionTo(model.StatusCanceled), ShouldBeTrue)
			So(model.StatusPending.CanTransitionTo(model.StatusClosed), ShouldBeFalse)
			So(model.StatusPending.CanTransitionTo(model.StatusPending), ShouldBeFalse)
		})

		Convey("Then ONGOING can close or cancel", func() {
			So(model.StatusOngoing.CanTransitionTo(model.StatusClosed), ShouldBeTrue)
			So(model.StatusOngoing.CanTransitionTo(model.StatusCanceled), ShouldBeTrue)
			So(model.StatusOngoing.CanTransitionTo(model.StatusPending), ShouldBeFalse)
			So(model.StatusOngoing.CanTransitionTo(model.StatusOngoing), ShouldBeFalse)
		})

		Convey("Then CLOSED and CANCELED are terminal", func() {
			for _, terminal := range []model.Status{model.StatusClosed, model.StatusCanceled} {
				So(terminal.Terminal(), ShouldBeTrue)
				for _, target := range []model.Status{model.StatusPending, model.StatusOngoing, model.StatusClosed, model.StatusCanceled} {
					So(terminal.CanTransitionTo(target), ShouldBeFalse)
				}
			}
		})

		Convey("Then non-terminal states are not terminal", func() {
			So(model.StatusPending.Terminal(), ShouldBeFalse)
			So(model.StatusOngoing.Terminal(), ShouldBeFalse)
		})
	})
}

func TestStatus_Valid(t *testing.T) {
	Convey("Given the status enum", t, func() {
		Convey("Then defined values are valid", func() {
			So(model.StatusPending.Valid(), ShouldBeTrue)
			So(model.StatusOngoing.Valid(), ShouldBeTrue)
			So(model.StatusClosed.Valid(), ShouldBeTrue)
			So(model.StatusCanceled.Valid(), ShouldBeTrue)
		})

		Convey("Then arbitrary strings are not", func() {
			So(model.Status("").Valid(), ShouldBeFalse)
			So(model.Status("DRAFT").Valid(), ShouldBeFalse)
			So(model.Status("pending").Valid(), ShouldBeFalse)
		})
	})
}

func TestStatus_AcceptsParticipations(t *testing.T) {
	Convey("Given the participation window", t, func() {
		Convey("Then PENDING and ONGOING accept bids", func() {
			So(model.StatusPending.AcceptsParticipations(), ShouldBeTrue)
			So(model.StatusOngoing.AcceptsParticipations(), ShouldBeTrue)
		})

		Convey("Then CLOSED and CANCELED freeze submission", func() {
			So(model.StatusClosed.AcceptsParticipations(), ShouldBeFalse)
			So(model.StatusCanceled.AcceptsParticipations(), ShouldBeFalse)
		})
	})
}

func TestDerivePhase(t *testing.T) {
	Convey("Given phase derivation", t, func() {
		Convey("When a CLOSED bidding holds a contract", func() {
			b := model.Bidding{Status: model.StatusClosed, ContractID: "contract-1"}

			Convey("Then the phase is CONTRACTED", func() {
				So(model.DerivePhase(b), ShouldEqual, model.PhaseContracted)
			})
		})

		Convey("When a CLOSED bidding has no contract", func() {
			b := model.Bidding{Status: model.StatusClosed}

			Convey("Then the phase mirrors the status", func() {
				So(model.DerivePhase(b), ShouldEqual, string(model.StatusClosed))
			})
		})

		Convey("When a non-CLOSED bidding somehow carries a contract id", func() {
			b := model.Bidding{Status: model.StatusOngoing, ContractID: "contract-1"}

			Convey("Then the phase still mirrors the status", func() {
				So(model.DerivePhase(b), ShouldEqual, string(model.StatusOngoing))
			})
		})
	})
}
