package model

import "time"

// Booking status values stored in bookings.status.  CONFIRMED is the only
// non-terminal state: a booking leaves it exactly once, to CANCELLED via
// cancellation or to COMPLETED when the trip has run.
const (
	BookingConfirmed = "CONFIRMED"
	BookingCancelled = "CANCELLED"
	BookingCompleted = "COMPLETED"
)

// Booking records one purchase from the `bookings` table.  The public
// identifier is BookingRef (a UUID handed to clients); the numeric ID stays
// internal.  CanCancel is computed once at creation from the time remaining
// until departure and never re-evaluated, and RefundCents is written exactly
// once, at cancellation.
//
// Fields:
//  ID            – primary key identifier.
//  BookingRef    – public UUID reference.
//  UserID        – purchasing user.
//  ScheduleID    – trip instance the seats are on.
//  SeatCount     – number of seats in the booking.
//  TotalCents    – seat count times the trip's per-seat price.
//  Status        – CONFIRMED, CANCELLED or COMPLETED.
//  CanCancel     – true when departure was more than two hours away at
//                  creation; admins may override.
//  PaymentStatus – always "PAID" (payments are out of scope).
//  CancelledAt   – cancellation timestamp (null while confirmed).
//  RefundCents   – refund issued at cancellation (null while confirmed).
//  CreatedAt     – creation timestamp.
//  UpdatedAt     – last update timestamp.
type Booking struct {
	ID            uint64     // bookings.id
	BookingRef    string     // bookings.booking_ref
	UserID        uint64     // bookings.user_id
	ScheduleID    uint64     // bookings.schedule_id
	SeatCount     uint32     // bookings.seat_count
	TotalCents    uint32     // bookings.total_cents
	Status        string     // bookings.status
	CanCancel     bool       // bookings.can_cancel
	PaymentStatus string     // bookings.payment_status
	CancelledAt   *time.Time // bookings.cancelled_at (nullable)
	RefundCents   *uint32    // bookings.refund_cents (nullable)
	CreatedAt     time.Time  // bookings.created_at
	UpdatedAt     time.Time  // bookings.updated_at
}
