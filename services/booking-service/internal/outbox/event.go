package outbox

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Event is the envelope written to the outbox table. The Kafka topic equals EventType and
// ID travels as the event-id header.
type Event struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

const aggregateBooking = "booking"

const (
	EventBookingBooked    = "booking.appointment.booked.v1"
	EventBookingCancelled = "booking.appointment.cancelled.v1"
)

// BookingEventTypes lists the topics whose events change a provider's availability.
var BookingEventTypes = []string{EventBookingBooked, EventBookingCancelled}

// BookingChanged is the payload of both booking events.
type BookingChanged struct {
	BookingID   string `json:"booking_id"`
	ProviderID  string `json:"provider_id"`
	Date        string `json:"date"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time,omitempty"`
	Status      string `json:"status"`
	CancelledAt string `json:"cancelled_at,omitempty"`
}

// NewBookingEvent wraps payload in an outbox envelope keyed by the booking id.
func NewBookingEvent(eventType string, payload BookingChanged) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{
		ID:            uuid.NewString(),
		AggregateType: aggregateBooking,
		AggregateID:   payload.BookingID,
		EventType:     eventType,
		Payload:       raw,
	}, nil
}
