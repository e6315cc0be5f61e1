package booking

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/md-rashed-zaman/autobook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/autobook/services/booking-service/internal/outbox"
)

func appointmentEvent(eventType string, a model.Appointment) (outbox.Event, error) {
	payload, err := json.Marshal(map[string]any{
		"appointment_id":      a.ID,
		"customer_id":         a.CustomerID,
		"provider_id":         a.ProviderID,
		"service_id":          a.ServiceID,
		"vehicle_id":          a.VehicleID,
		"status":              string(a.Status),
		"start_time":          a.StartTime.UTC().Format(time.RFC3339),
		"end_time":            a.EndTime.UTC().Format(time.RFC3339),
		"cancellation_reason": a.CancellationReason,
		"updated_at":          a.UpdatedAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return outbox.Event{}, err
	}
	return outbox.Event{
		AggregateType: outbox.AggregateAppointment,
		AggregateID:   a.ID,
		EventType:     eventType,
		Payload:       payload,
	}, nil
}

// reminderEvents builds one request per future offset and contact channel.
func reminderEvents(a model.Appointment, customer model.User, offsets []time.Duration, now time.Time) ([]outbox.Event, error) {
	channels := []struct{ name, recipient string }{
		{"email", customer.Email},
		{"sms", customer.Phone},
	}
	var out []outbox.Event
	for _, offset := range offsets {
		remindAt := a.StartTime.Add(-offset)
		if remindAt.Before(now) {
			continue
		}
		for _, ch := range channels {
			if strings.TrimSpace(ch.recipient) == "" {
				continue
			}
			payload, err := json.Marshal(map[string]any{
				"appointment_id": a.ID,
				"channel":        ch.name,
				"recipient":      ch.recipient,
				"remind_at":      remindAt.UTC().Format(time.RFC3339),
				"template_data": map[string]any{
					"customer_name": customer.FullName(),
					"service_id":    a.ServiceID,
					"start_time":    a.StartTime.UTC().Format(time.RFC3339),
				},
			})
			if err != nil {
				return nil, err
			}
			out = append(out, outbox.Event{
				AggregateType: outbox.AggregateAppointment,
				AggregateID:   a.ID,
				EventType:     outbox.TopicReminderRequested,
				Payload:       payload,
			})
		}
	}
	return out, nil
}

func appendEvents(ctx context.Context, tx AppointmentTx, events ...outbox.Event) error {
	for _, evt := range events {
		if err := tx.AppendEvent(ctx, evt); err != nil {
			return err
		}
	}
	return nil
}
