package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/md-rashed-zaman/autobook/services/booking-service/internal/booking"
)

const (
	SlotsChannel = "slots"

	EventNewAppointment       = "new_appointment"
	EventAppointmentCancelled = "appointment_cancelled"
	EventSlotsUpdated         = "slots_updated"
)

func ProviderChannel(providerID string) string { return "provider:" + providerID }

// Publisher is the subset of redis.UniversalClient used for pub/sub.
type Publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// RealtimePublisher pushes booking changes to provider dashboards and slot
// pickers subscribed over Redis pub/sub.
type RealtimePublisher struct {
	rdb Publisher
	loc *time.Location
}

func NewRealtimePublisher(rdb Publisher, loc *time.Location) *RealtimePublisher {
	if loc == nil {
		loc = time.UTC
	}
	return &RealtimePublisher{rdb: rdb, loc: loc}
}

type realtimeEnvelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type appointmentSummary struct {
	AppointmentID string `json:"appointment_id"`
	CustomerID    string `json:"customer_id"`
	ServiceID     string `json:"service_id"`
	ServiceName   string `json:"service_name,omitempty"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	Status        string `json:"status"`
}

type slotsUpdated struct {
	ServiceID string `json:"service_id"`
	Date      string `json:"date"`
}

func (p *RealtimePublisher) Publish(ctx context.Context, evt booking.Event, v booking.View) error {
	name := EventNewAppointment
	if evt == booking.EventCancelled {
		name = EventAppointmentCancelled
	}
	if v.ProviderID != "" {
		summary := appointmentSummary{
			AppointmentID: v.ID,
			CustomerID:    v.CustomerID,
			ServiceID:     v.ServiceID,
			StartTime:     v.StartTime.UTC().Format(time.RFC3339),
			EndTime:       v.EndTime.UTC().Format(time.RFC3339),
			Status:        string(v.Status),
		}
		if v.Service != nil {
			summary.ServiceName = v.Service.Name
		}
		if err := p.send(ctx, ProviderChannel(v.ProviderID), name, summary); err != nil {
			return err
		}
	}
	return p.send(ctx, SlotsChannel, EventSlotsUpdated, slotsUpdated{
		ServiceID: v.ServiceID,
		Date:      v.StartTime.In(p.loc).Format("2006-01-02"),
	})
}

func (p *RealtimePublisher) send(ctx context.Context, channel, event string, data any) error {
	raw, err := json.Marshal(realtimeEnvelope{Event: event, Data: data})
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, channel, raw).Err()
}
