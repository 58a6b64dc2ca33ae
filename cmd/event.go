package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/frahmantamala/metro-ticketing/internal/core/events"
	"github.com/frahmantamala/metro-ticketing/pkg/logger"
	"github.com/spf13/cobra"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Event management commands",
	Long:  `Inspect the domain events emitted by the booking workflow`,
}

var publishEventCmd = &cobra.Command{
	Use:       "publish [event-type]",
	Short:     "Publish a sample event",
	Long:      `Publish a sample domain event through the audit subscriber for debugging`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{events.EventTypeTicketBooked, events.EventTypePaymentSettled, events.EventTypePaymentFailed},
	Run: func(cmd *cobra.Command, args []string) {
		if err := publishSampleEvent(cmd.Context(), args[0]); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	},
}

var (
	eventTicketID  int64
	eventPaymentID int64
	eventData      string
)

var auditedEventTypes = []string{
	events.EventTypeTicketBooked,
	events.EventTypePaymentSettled,
	events.EventTypePaymentFailed,
}

// subscribeAuditLog writes every domain event to the log as structured JSON.
func subscribeAuditLog(bus *events.EventBus, log *slog.Logger) {
	for _, eventType := range auditedEventTypes {
		bus.Subscribe(eventType, func(ctx context.Context, event events.Event) error {
			payload, err := json.Marshal(event)
			if err != nil {
				return fmt.Errorf("encode %s event: %w", event.EventType(), err)
			}
			log.InfoContext(ctx, "domain event",
				"event_id", event.EventID(),
				"event_type", event.EventType(),
				"occurred_at", event.OccurredAt(),
				"payload", json.RawMessage(payload))
			return nil
		})
	}
}

func sampleEvent(eventType string) (events.Event, error) {
	switch eventType {
	case events.EventTypeTicketBooked:
		return events.NewTicketBookedEvent(eventTicketID, eventPaymentID, 1, 5000, "INR"), nil
	case events.EventTypePaymentSettled:
		return events.NewPaymentSettledEvent(eventTicketID, eventPaymentID, eventData, 5000), nil
	case events.EventTypePaymentFailed:
		return events.NewPaymentFailedEvent(eventTicketID, eventPaymentID, eventData), nil
	default:
		return nil, fmt.Errorf("unknown event type %q", eventType)
	}
}

func publishSampleEvent(ctx context.Context, eventType string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	log := logger.LoggerWrapper()

	event, err := sampleEvent(eventType)
	if err != nil {
		return err
	}

	bus := events.NewEventBus(log)
	subscribeAuditLog(bus, log)

	log.Info("publishing sample event", "event_type", eventType, "event_id", event.EventID())
	if err := bus.PublishSync(ctx, event); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

func init() {
	publishEventCmd.Flags().Int64Var(&eventTicketID, "ticket-id", 1, "Ticket id carried by the event")
	publishEventCmd.Flags().Int64Var(&eventPaymentID, "payment-id", 1, "Payment id carried by the event")
	publishEventCmd.Flags().StringVar(&eventData, "data", "counter", "Settlement method or failure reason")

	eventCmd.AddCommand(publishEventCmd)

	rootCmd.AddCommand(eventCmd)
}
