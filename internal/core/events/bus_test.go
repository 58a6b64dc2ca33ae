package events_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/metro-ticketing/internal/core/events"
)

func TestEvents(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Events Suite")
}

var _ = Describe("EventBus", func() {
	var bus *events.EventBus

	BeforeEach(func() {
		bus = events.NewEventBus(slog.New(slog.NewTextHandler(io.Discard, nil)))
	})

	It("delivers async events even after the publisher's context is cancelled", func() {
		var delivered int32
		bus.Subscribe(events.EventTypeTicketBooked, func(ctx context.Context, e events.Event) error {
			if ctx.Err() == nil {
				atomic.AddInt32(&delivered, 1)
			}
			return nil
		})

		ctx, cancel := context.WithCancel(context.Background())
		Expect(bus.Publish(ctx, events.NewTicketBookedEvent(1, 1, 1, 5000, "INR"))).To(Succeed())
		cancel()
		bus.Close()

		Expect(atomic.LoadInt32(&delivered)).To(Equal(int32(1)))
	})

	It("survives a panicking handler", func() {
		bus.Subscribe(events.EventTypePaymentFailed, func(context.Context, events.Event) error {
			panic("boom")
		})

		err := bus.PublishSync(context.Background(), events.NewPaymentFailedEvent(1, 1, "declined"))
		Expect(err).To(MatchError(ContainSubstring("handler panic")))
	})

	It("stops at the first failing handler when publishing synchronously", func() {
		var second bool
		bus.Subscribe(events.EventTypePaymentSettled, func(context.Context, events.Event) error {
			return errors.New("nope")
		})
		bus.Subscribe(events.EventTypePaymentSettled, func(context.Context, events.Event) error {
			second = true
			return nil
		})

		err := bus.PublishSync(context.Background(), events.NewPaymentSettledEvent(1, 1, "online", 5000))
		Expect(err).To(HaveOccurred())
		Expect(second).To(BeFalse())
	})
})
