// Package booking implements the reservation core: claiming seats,
// releasing them with refunds and cancelling whole trips, all inside
// per-trip serialized database transactions.
package booking

import (
	"errors"
	"strings"
)

// Sentinel errors returned by the Manager.  Handlers translate them to
// HTTP status codes; everything else bubbles up as a 500.
var (
	// ErrTripNotFound means the referenced schedule does not exist.
	ErrTripNotFound = errors.New("trip not found")
	// ErrBookingNotFound means the booking reference matched nothing.
	ErrBookingNotFound = errors.New("booking not found")
	// ErrForbidden means the booking belongs to a different customer.
	ErrForbidden = errors.New("booking belongs to another user")
	// ErrInvalidRequest covers malformed seat or passenger input.
	ErrInvalidRequest = errors.New("invalid booking request")
	// ErrPastDeparture rejects reservations on trips that already departed.
	ErrPastDeparture = errors.New("trip has already departed")
	// ErrTripCancelled rejects reservations on a cancelled trip.
	ErrTripCancelled = errors.New("trip is cancelled")
	// ErrTripNotBookable rejects reservations on running or completed trips.
	ErrTripNotBookable = errors.New("trip is not open for booking")
	// ErrCancellationNotAllowed means the booking was never cancellable
	// by its owner (can_cancel = false) or the ride is already taken.
	ErrCancellationNotAllowed = errors.New("cancellation window has closed")
	// ErrBookingAlreadyCancelled guards against double cancellation.
	ErrBookingAlreadyCancelled = errors.New("booking is already cancelled")
	// ErrTxConflict is returned after the transaction kept losing lock
	// races beyond the retry budget.  Clients may simply try again.
	ErrTxConflict = errors.New("booking transaction conflict")
)

// SeatUnavailableError reports every requested seat that clashed with an
// existing claim, so one retry with a fresh selection is enough.
type SeatUnavailableError struct {
	Seats []string
}

func (e *SeatUnavailableError) Error() string {
	return "seats unavailable: " + strings.Join(e.Seats, ", ")
}
