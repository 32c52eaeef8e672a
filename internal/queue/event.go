// Package queue defines the messages exchanged over the broker.
package queue

// QueueName is the durable queue all booking activity flows through.
const QueueName = "booking.events"

// Event types carried in BookingEvent.Type.
const (
	EventBookingConfirmed = "booking.confirmed"
	EventBookingCancelled = "booking.cancelled"
	EventTripCancelled    = "trip.cancelled"
)

// BookingEvent is the envelope for everything the booking core announces.
// It is denormalized with route information so downstream consumers can
// log, notify or feed analytics without querying the primary database.
type BookingEvent struct {
	Type        string   `json:"type"`
	BookingRef  string   `json:"booking_ref,omitempty"`
	UserID      uint64   `json:"user_id,omitempty"`
	ScheduleID  uint64   `json:"schedule_id"`
	Origin      string   `json:"origin,omitempty"`
	Destination string   `json:"destination,omitempty"`
	DepartureAt string   `json:"departure_at,omitempty"`
	Seats       []string `json:"seats,omitempty"`
	TotalCents  uint32   `json:"total_cents,omitempty"`
	RefundCents uint64   `json:"refund_cents,omitempty"`
	Reason      string   `json:"reason,omitempty"`
	OccurredAt  string   `json:"occurred_at"`
}
