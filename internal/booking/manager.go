package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/bus-ticket-reservation/internal/model"
	"github.com/iliyamo/bus-ticket-reservation/internal/queue"
	"github.com/iliyamo/bus-ticket-reservation/internal/repository"
)

const (
	// CancelWindow is the minimum lead time a booking must be created
	// with for its owner to keep the right to cancel.  The resulting
	// can_cancel flag is fixed at creation and never recomputed.
	CancelWindow = 2 * time.Hour
	// customerRefundPercent of the paid amount comes back on a customer
	// cancellation; admin and trip cancellations refund in full.
	customerRefundPercent = 90

	txAttempts = 3
)

// SeatRequest is one seat of a reservation request together with the
// passenger who will occupy it.
type SeatRequest struct {
	SeatNumber      string
	PassengerName   string
	PassengerAge    uint8
	PassengerGender string
}

// PublishFunc delivers a domain event to the broker.  A nil function
// disables publishing.
type PublishFunc func(ctx context.Context, ev queue.BookingEvent) error

// Manager runs the booking workflows.  Every mutation happens inside a
// transaction that first locks the trip's schedule row, so work on one
// trip is serialized while different trips proceed in parallel.
type Manager struct {
	db        *sql.DB
	schedules *repository.ScheduleRepo
	claims    *repository.SeatClaimRepo
	bookings  *repository.BookingRepo
	publish   PublishFunc
}

// NewManager wires a Manager over the three booking repositories.
func NewManager(schedules *repository.ScheduleRepo, claims *repository.SeatClaimRepo, bookings *repository.BookingRepo, publish PublishFunc) *Manager {
	return &Manager{
		db:        schedules.DB(),
		schedules: schedules,
		claims:    claims,
		bookings:  bookings,
		publish:   publish,
	}
}

// Reserve claims the requested seats on a trip for userID and records the
// purchase.  The whole claim is atomic: either every seat lands and the
// availability counter moves down by exactly len(seats), or nothing
// changes.  When any requested seat is already taken the returned
// *SeatUnavailableError names all conflicting seats at once.
func (m *Manager) Reserve(ctx context.Context, userID, scheduleID uint64, seats []SeatRequest) (*model.Booking, []*model.SeatClaim, error) {
	reqs, err := normalizeSeatRequests(seats)
	if err != nil {
		return nil, nil, err
	}

	var (
		created *model.Booking
		claimed []*model.SeatClaim
	)
	err = m.runTx(ctx, func(tx *sql.Tx) error {
		created, claimed = nil, nil

		sched, err := m.schedules.GetForUpdateTx(ctx, tx, scheduleID)
		if err != nil {
			if errors.Is(err, repository.ErrScheduleNotFound) {
				return ErrTripNotFound
			}
			return err
		}
		switch sched.Status {
		case model.TripScheduled:
		case model.TripCancelled:
			return ErrTripCancelled
		default:
			return ErrTripNotBookable
		}
		now := time.Now().UTC()
		if !sched.DepartureAt.After(now) {
			return ErrPastDeparture
		}
		for _, r := range reqs {
			n, err := ParseSeatNumber(r.SeatNumber)
			if err != nil || n > int(sched.TotalSeats) {
				return fmt.Errorf("%w: seat %q does not exist on this bus", ErrInvalidRequest, r.SeatNumber)
			}
		}
		total := uint64(sched.PriceCents) * uint64(len(reqs))
		if total > math.MaxUint32 {
			return fmt.Errorf("%w: booking total exceeds the supported amount", ErrInvalidRequest)
		}

		taken, err := m.claims.ActiveSeatNumbersTx(ctx, tx, scheduleID)
		if err != nil {
			return err
		}
		if conflicts := conflictingSeats(reqs, taken); len(conflicts) > 0 {
			return &SeatUnavailableError{Seats: conflicts}
		}

		if err := m.schedules.AdjustAvailableSeatsTx(ctx, tx, scheduleID, -len(reqs)); err != nil {
			if errors.Is(err, repository.ErrCounterConflict) {
				// Not enough seats left; the ledger check above passed so
				// the counter, not a specific seat, ran out.
				return &SeatUnavailableError{Seats: seatNumbers(reqs)}
			}
			return err
		}

		b := &model.Booking{
			BookingRef: uuid.NewString(),
			UserID:     userID,
			ScheduleID: scheduleID,
			Status:     model.BookingConfirmed,
			SeatCount:  uint32(len(reqs)),
			TotalCents: uint32(total),
			CanCancel:  sched.DepartureAt.Sub(now) > CancelWindow,
		}
		if err := m.bookings.CreateTx(ctx, tx, b); err != nil {
			return err
		}

		rows := make([]model.SeatClaim, 0, len(reqs))
		for _, r := range reqs {
			rows = append(rows, model.SeatClaim{
				SeatNumber:      r.SeatNumber,
				PassengerName:   r.PassengerName,
				PassengerAge:    r.PassengerAge,
				PassengerGender: r.PassengerGender,
			})
		}
		if err := m.claims.ClaimTx(ctx, tx, b.ID, scheduleID, rows); err != nil {
			if errors.Is(err, repository.ErrSeatTaken) {
				// The unique seat barrier caught a claim the ledger read
				// missed.  Cannot tell which seat from the driver error.
				return &SeatUnavailableError{Seats: seatNumbers(reqs)}
			}
			return err
		}

		cl, err := m.claims.ListByBookingTx(ctx, tx, b.ID)
		if err != nil {
			return err
		}
		created, claimed = b, cl
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	m.emit(queue.EventBookingConfirmed, created, seatNumbers(reqs), 0, "")
	return created, claimed, nil
}

// Release cancels a booking, frees its seats back to the trip and records
// the refund.  Customers get a partial refund and must hold the can_cancel
// flag stamped at creation; admins refund in full with no time restriction.
// isAdmin also bypasses the ownership check.
func (m *Manager) Release(ctx context.Context, ref string, userID uint64, isAdmin bool) (*model.Booking, error) {
	pre, err := m.bookings.GetByRef(ctx, ref)
	if err != nil {
		if errors.Is(err, repository.ErrBookingRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	if !isAdmin && pre.UserID != userID {
		return nil, ErrForbidden
	}

	var (
		cancelled *model.Booking
		seats     []string
	)
	err = m.runTx(ctx, func(tx *sql.Tx) error {
		cancelled, seats = nil, nil

		// Lock the schedule first so every mutation of one trip takes
		// its locks in the same order.
		sched, err := m.schedules.GetForUpdateTx(ctx, tx, pre.ScheduleID)
		if err != nil {
			if errors.Is(err, repository.ErrScheduleNotFound) {
				return ErrTripNotFound
			}
			return err
		}
		b, err := m.bookings.GetByRefTx(ctx, tx, ref)
		if err != nil {
			if errors.Is(err, repository.ErrBookingRecordNotFound) {
				return ErrBookingNotFound
			}
			return err
		}
		switch b.Status {
		case model.BookingCancelled:
			return ErrBookingAlreadyCancelled
		case model.BookingCompleted:
			return ErrCancellationNotAllowed
		}
		if !isAdmin && !b.CanCancel {
			return ErrCancellationNotAllowed
		}

		released, err := m.claims.ReleaseByBookingTx(ctx, tx, b.ID)
		if err != nil {
			return err
		}
		if err := m.schedules.RestoreAvailableSeatsTx(ctx, tx, sched.ID, released); err != nil {
			return err
		}
		refund := refundAmount(b.TotalCents, isAdmin)
		ok, err := m.bookings.MarkCancelledTx(ctx, tx, b.ID, refund)
		if err != nil {
			return err
		}
		if !ok {
			return ErrBookingAlreadyCancelled
		}

		fresh, err := m.bookings.GetByRefTx(ctx, tx, ref)
		if err != nil {
			return err
		}
		cl, err := m.claims.ListByBookingTx(ctx, tx, b.ID)
		if err != nil {
			return err
		}
		for _, c := range cl {
			seats = append(seats, c.SeatNumber)
		}
		cancelled = fresh
		return nil
	})
	if err != nil {
		return nil, err
	}

	reason := "USER_CANCELLED"
	if isAdmin {
		reason = "ADMIN_CANCELLED"
	}
	var refund uint32
	if cancelled.RefundCents != nil {
		refund = *cancelled.RefundCents
	}
	m.emit(queue.EventBookingCancelled, cancelled, seats, refund, reason)
	return cancelled, nil
}

// TripCancellation summarizes what cancelling a trip did.
type TripCancellation struct {
	ScheduleID        uint64 `json:"schedule_id"`
	AlreadyCancelled  bool   `json:"already_cancelled"`
	BookingsCancelled int    `json:"bookings_cancelled"`
	SeatsReleased     int    `json:"seats_released"`
	RefundCents       uint64 `json:"refund_cents"`
}

// CancelTrip cancels a schedule: every CONFIRMED booking is cancelled with
// a full refund, every active claim is released, and the trip ends with
// status CANCELLED and an availability counter frozen at zero.  Calling it
// on an already cancelled trip is a no-op reported via AlreadyCancelled.
func (m *Manager) CancelTrip(ctx context.Context, scheduleID uint64) (*TripCancellation, error) {
	type cancelledBooking struct {
		booking *model.Booking
		seats   []string
	}

	var (
		result   *TripCancellation
		affected []cancelledBooking
	)
	err := m.runTx(ctx, func(tx *sql.Tx) error {
		result, affected = nil, nil

		sched, err := m.schedules.GetForUpdateTx(ctx, tx, scheduleID)
		if err != nil {
			if errors.Is(err, repository.ErrScheduleNotFound) {
				return ErrTripNotFound
			}
			return err
		}
		if sched.Status == model.TripCancelled {
			result = &TripCancellation{ScheduleID: scheduleID, AlreadyCancelled: true}
			return nil
		}

		list, err := m.bookings.ListConfirmedByScheduleTx(ctx, tx, scheduleID)
		if err != nil {
			return err
		}
		res := &TripCancellation{ScheduleID: scheduleID}
		for _, b := range list {
			released, err := m.claims.ReleaseByBookingTx(ctx, tx, b.ID)
			if err != nil {
				return err
			}
			ok, err := m.bookings.MarkCancelledTx(ctx, tx, b.ID, b.TotalCents)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			cl, err := m.claims.ListByBookingTx(ctx, tx, b.ID)
			if err != nil {
				return err
			}
			cb := cancelledBooking{booking: b}
			for _, c := range cl {
				cb.seats = append(cb.seats, c.SeatNumber)
			}
			affected = append(affected, cb)
			res.BookingsCancelled++
			res.SeatsReleased += released
			res.RefundCents += uint64(b.TotalCents)
		}

		// The counter is zeroed here once, never incremented per booking,
		// so a cancelled trip always reads zero available seats.
		if _, err := m.schedules.MarkCancelledTx(ctx, tx, scheduleID); err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !result.AlreadyCancelled {
		for _, cb := range affected {
			m.emit(queue.EventBookingCancelled, cb.booking, cb.seats, cb.booking.TotalCents, "TRIP_CANCELLED")
		}
		m.emitTrip(scheduleID, result)
	}
	return result, nil
}

// runTx runs fn inside a transaction and retries the whole thing when
// MySQL reports a deadlock (1213) or lock wait timeout (1205).  After the
// retry budget is spent it gives up with ErrTxConflict.
func (m *Manager) runTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	var lastErr error
	for attempt := 1; attempt <= txAttempts; attempt++ {
		err := func() error {
			tx, err := m.db.BeginTx(ctx, nil)
			if err != nil {
				return err
			}
			committed := false
			defer func() {
				if !committed {
					_ = tx.Rollback()
				}
			}()
			if err := fn(tx); err != nil {
				return err
			}
			if err := tx.Commit(); err != nil {
				return err
			}
			committed = true
			return nil
		}()
		if err == nil {
			return nil
		}
		if !isLockError(err) {
			return err
		}
		lastErr = err
		time.Sleep(time.Duration(attempt) * 25 * time.Millisecond)
	}
	log.Printf("booking: giving up after %d lock conflicts: %v", txAttempts, lastErr)
	return ErrTxConflict
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "1213") || strings.Contains(msg, "1205")
}

func refundAmount(totalCents uint32, full bool) uint32 {
	if full {
		return totalCents
	}
	return uint32(uint64(totalCents) * customerRefundPercent / 100)
}

// normalizeSeatRequests trims and canonicalizes seat labels, validates
// passenger fields and rejects duplicate seats within one request.
func normalizeSeatRequests(seats []SeatRequest) ([]SeatRequest, error) {
	if len(seats) == 0 {
		return nil, fmt.Errorf("%w: at least one seat is required", ErrInvalidRequest)
	}
	out := make([]SeatRequest, 0, len(seats))
	seen := make(map[string]bool, len(seats))
	for _, s := range seats {
		n, err := ParseSeatNumber(s.SeatNumber)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a valid seat label", ErrInvalidRequest, s.SeatNumber)
		}
		label := FormatSeatNumber(n)
		if seen[label] {
			return nil, fmt.Errorf("%w: seat %s requested twice", ErrInvalidRequest, label)
		}
		seen[label] = true

		name := strings.TrimSpace(s.PassengerName)
		if name == "" || len(name) > 100 {
			return nil, fmt.Errorf("%w: passenger name for seat %s is required", ErrInvalidRequest, label)
		}
		if s.PassengerAge < 1 || s.PassengerAge > 120 {
			return nil, fmt.Errorf("%w: passenger age for seat %s must be between 1 and 120", ErrInvalidRequest, label)
		}
		gender := strings.ToUpper(strings.TrimSpace(s.PassengerGender))
		switch gender {
		case model.GenderMale, model.GenderFemale, model.GenderOther:
		default:
			return nil, fmt.Errorf("%w: passenger gender for seat %s must be MALE, FEMALE or OTHER", ErrInvalidRequest, label)
		}

		out = append(out, SeatRequest{
			SeatNumber:      label,
			PassengerName:   name,
			PassengerAge:    s.PassengerAge,
			PassengerGender: gender,
		})
	}
	return out, nil
}

func seatNumbers(reqs []SeatRequest) []string {
	out := make([]string, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, r.SeatNumber)
	}
	sort.Strings(out)
	return out
}

func conflictingSeats(reqs []SeatRequest, taken []string) []string {
	if len(taken) == 0 {
		return nil
	}
	set := make(map[string]bool, len(taken))
	for _, t := range taken {
		set[t] = true
	}
	var out []string
	for _, r := range reqs {
		if set[r.SeatNumber] {
			out = append(out, r.SeatNumber)
		}
	}
	sort.Strings(out)
	return out
}

// emit publishes a booking event in the background; the request does not
// wait on the broker.
func (m *Manager) emit(typ string, b *model.Booking, seats []string, refundCents uint32, reason string) {
	if m.publish == nil || b == nil {
		return
	}
	ev := queue.BookingEvent{
		Type:        typ,
		BookingRef:  b.BookingRef,
		UserID:      b.UserID,
		ScheduleID:  b.ScheduleID,
		Seats:       seats,
		TotalCents:  b.TotalCents,
		RefundCents: uint64(refundCents),
		Reason:      reason,
		OccurredAt:  time.Now().UTC().Format(time.RFC3339),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if det, err := m.schedules.GetTripDetail(ctx, ev.ScheduleID); err == nil {
			ev.Origin, ev.Destination, ev.DepartureAt = det.Origin, det.Destination, det.DepartureAt
		}
		_ = m.publish(ctx, ev)
	}()
}

// emitTrip publishes the summary event for a whole-trip cancellation.
func (m *Manager) emitTrip(scheduleID uint64, res *TripCancellation) {
	if m.publish == nil {
		return
	}
	ev := queue.BookingEvent{
		Type:        queue.EventTripCancelled,
		ScheduleID:  scheduleID,
		RefundCents: res.RefundCents,
		Reason:      fmt.Sprintf("%d bookings cancelled, %d seats released", res.BookingsCancelled, res.SeatsReleased),
		OccurredAt:  time.Now().UTC().Format(time.RFC3339),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if det, err := m.schedules.GetTripDetail(ctx, scheduleID); err == nil {
			ev.Origin, ev.Destination, ev.DepartureAt = det.Origin, det.Destination, det.DepartureAt
		}
		_ = m.publish(ctx, ev)
	}()
}
