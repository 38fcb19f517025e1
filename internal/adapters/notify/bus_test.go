package notify_test

import (
	"context"
	"testing"

	"github.com/procurekit/bidding/internal/adapters/notify"
	"github.com/procurekit/bidding/internal/domain/model"
	"github.com/procurekit/bidding/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// drain receives every currently buffered signal without blocking.
func drain(sub *notify.Subscription) []notify.Signal {
	var out []notify.Signal
	for {
		select {
		case sig, ok := <-sub.Signals():
			if !ok {
				return out
			}
			out = append(out, sig)
		default:
			return out
		}
	}
}

func TestInMemoryBus_Subscribe(t *testing.T) {
	Convey("Given an in-memory bus", t, func() {
		ctx := context.Background()
		bus := notify.NewInMemoryBus()
		defer bus.Close() //nolint:errcheck // test teardown

		Convey("When subscribing without scopes", func() {
			_, err := bus.Subscribe(ctx)

			Convey("Then the subscription is rejected", func() {
				So(err, ShouldEqual, notify.ErrNoScopes)
			})
		})

		Convey("When subscribing to a bidding scope", func() {
			sub, err := bus.Subscribe(ctx, notify.Key(model.ScopeBidding, "b1"))

			Convey("Then the subscription is registered", func() {
				So(err, ShouldBeNil)
				So(sub, ShouldNotBeNil)
				So(bus.SubscriberCount(), ShouldEqual, 1)
				So(len(sub.Scopes()), ShouldEqual, 1)
			})

			Convey("And closing it unregisters it", func() {
				So(err, ShouldBeNil)
				sub.Close()
				sub.Close() // idempotent
				So(bus.SubscriberCount(), ShouldEqual, 0)
			})
		})
	})
}

func TestInMemoryBus_FanOut(t *testing.T) {
	Convey("Given subscribers on different scopes", t, func() {
		ctx := context.Background()
		bus := notify.NewInMemoryBus()
		defer bus.Close() //nolint:errcheck // test teardown

		biddingSub, err := bus.Subscribe(ctx, notify.Key(model.ScopeBidding, "b1"))
		So(err, ShouldBeNil)
		projectSub, err := bus.Subscribe(ctx, notify.Key(model.ScopeProject, "proj-1"))
		So(err, ShouldBeNil)
		otherSub, err := bus.Subscribe(ctx, notify.Key(model.ScopeBidding, "b2"))
		So(err, ShouldBeNil)

		Convey("When publishing a bidding signal", func() {
			bus.Publish(ctx, model.Refresh(model.ScopeBidding, "b1"))

			Convey("Then only the matching subscriber receives it", func() {
				So(len(drain(biddingSub)), ShouldEqual, 1)
				So(len(drain(projectSub)), ShouldEqual, 0)
				So(len(drain(otherSub)), ShouldEqual, 0)
			})
		})

		Convey("When publishing to both scopes", func() {
			bus.Publish(ctx, model.Refresh(model.ScopeBidding, "b1"))
			bus.Publish(ctx, model.Refresh(model.ScopeProject, "proj-1"))

			Convey("Then each subscriber sees its own scope", func() {
				got := drain(biddingSub)
				So(len(got), ShouldEqual, 1)
				So(got[0].Scope, ShouldEqual, model.ScopeBidding)
				So(got[0].ScopeID, ShouldEqual, "b1")
				So(got[0].Kind, ShouldEqual, model.KindRefresh)

				got = drain(projectSub)
				So(len(got), ShouldEqual, 1)
				So(got[0].Scope, ShouldEqual, model.ScopeProject)
			})
		})
	})
}

func TestInMemoryBus_DropOldest(t *testing.T) {
	Convey("Given a subscriber with a bounded queue", t, func() {
		ctx := context.Background()
		bus := notify.NewInMemoryBus(notify.WithSubscriberQueueSize(2))
		defer bus.Close() //nolint:errcheck // test teardown

		sub, err := bus.Subscribe(ctx, notify.Key(model.ScopeBidding, "b1"))
		So(err, ShouldBeNil)

		Convey("When more signals arrive than the queue holds", func() {
			for i := 0; i < 5; i++ {
				sig := model.Refresh(model.ScopeBidding, "b1")
				sig.Data = []byte{byte(i)}
				bus.Publish(ctx, sig)
			}

			Convey("Then the newest signals survive and the oldest are gone", func() {
				got := drain(sub)
				So(len(got), ShouldEqual, 2)
				So(got[0].Data, ShouldResemble, []byte{3})
				So(got[1].Data, ShouldResemble, []byte{4})
			})
		})

		Convey("When the queue never overflows", func() {
			bus.Publish(ctx, model.Refresh(model.ScopeBidding, "b1"))

			Convey("Then nothing is dropped", func() {
				So(len(drain(sub)), ShouldEqual, 1)
			})
		})
	})
}

func TestInMemoryBus_Close(t *testing.T) {
	Convey("Given a bus with live subscriptions", t, func() {
		ctx := context.Background()
		bus := notify.NewInMemoryBus()

		sub, err := bus.Subscribe(ctx, notify.Key(model.ScopeUser, "u1"))
		So(err, ShouldBeNil)

		Convey("When the bus is closed", func() {
			So(bus.Close(), ShouldBeNil)

			Convey("Then the subscription channel is closed", func() {
				_, ok := <-sub.Signals()
				So(ok, ShouldBeFalse)
			})

			Convey("And new subscriptions are rejected", func() {
				_, err := bus.Subscribe(ctx, notify.Key(model.ScopeUser, "u2"))
				So(err, ShouldEqual, notify.ErrBusClosed)
			})

			Convey("And publishing becomes a no-op", func() {
				bus.Publish(ctx, model.Refresh(model.ScopeUser, "u1"))
			})
		})
	})
}
