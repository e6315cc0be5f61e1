package outbox

// Topics published by the booking service. The Kafka topic equals the event
// type, one versioned topic per event.
const (
	TopicAppointmentCreated   = "booking.appointment.created.v1"
	TopicAppointmentUpdated   = "booking.appointment.updated.v1"
	TopicAppointmentCancelled = "booking.appointment.cancelled.v1"
	TopicReminderRequested    = "booking.reminder.requested.v1"
)

const AggregateAppointment = "appointment"

// Event is the envelope written to outbox_events in the same transaction as
// the state change it describes.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}
