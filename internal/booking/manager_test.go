package booking

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/bus-ticket-reservation/internal/model"
	"github.com/iliyamo/bus-ticket-reservation/internal/repository"
)

func newTestManager(t *testing.T) (*Manager, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	m := NewManager(repository.NewScheduleRepo(db), repository.NewSeatClaimRepo(db), repository.NewBookingRepo(db), nil)
	return m, mock
}

var scheduleCols = []string{"id", "bus_id", "route_id", "service_date", "departure_at", "arrival_at",
	"price_cents", "total_seats", "available_seats", "status", "version", "created_at", "updated_at"}

func scheduleRows(id uint64, status string, departure time.Time, price, total, available uint32) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows(scheduleCols).AddRow(id, 1, 1, departure.Truncate(24*time.Hour),
		departure, departure.Add(5*time.Hour), price, total, available, status, 0, now, now)
}

var bookingCols = []string{"id", "booking_ref", "user_id", "schedule_id", "status", "seat_count",
	"total_cents", "payment_status", "can_cancel", "cancelled_at", "refund_cents", "created_at", "updated_at"}

func bookingRows(id uint64, ref string, userID, scheduleID uint64, status string, seats, total uint32, cancelledAt, refund any) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows(bookingCols).AddRow(id, ref, userID, scheduleID, status, seats, total,
		"PAID", true, cancelledAt, refund, now, now)
}

// bookingRowsNoCancel mirrors bookingRows for bookings stamped
// can_cancel = false at creation.
func bookingRowsNoCancel(id uint64, ref string, userID, scheduleID uint64, status string, seats, total uint32, cancelledAt, refund any) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows(bookingCols).AddRow(id, ref, userID, scheduleID, status, seats, total,
		"PAID", false, cancelledAt, refund, now, now)
}

var claimCols = []string{"id", "booking_id", "schedule_id", "seat_number", "passenger_name",
	"passenger_age", "passenger_gender", "active", "released_at", "created_at"}

func claimRows(bookingID, scheduleID uint64, seats ...string) *sqlmock.Rows {
	rs := sqlmock.NewRows(claimCols)
	for i, s := range seats {
		rs.AddRow(uint64(100+i), bookingID, scheduleID, s, "Passenger "+s, 30, "MALE", true, nil, time.Now().UTC())
	}
	return rs
}

func seatReqs(labels ...string) []SeatRequest {
	out := make([]SeatRequest, 0, len(labels))
	for _, l := range labels {
		out = append(out, SeatRequest{SeatNumber: l, PassengerName: "Passenger " + l, PassengerAge: 30, PassengerGender: "MALE"})
	}
	return out
}

func TestReserveClaimsSeatsAndCharges(t *testing.T) {
	m, mock := newTestManager(t)
	departure := time.Now().UTC().Add(72 * time.Hour).Truncate(time.Second)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM schedules WHERE id = (.+) FOR UPDATE").WithArgs(7).
		WillReturnRows(scheduleRows(7, model.TripScheduled, departure, 150000, 40, 40))
	mock.ExpectQuery("SELECT seat_number FROM seat_claims WHERE schedule_id").WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"seat_number"}))
	mock.ExpectExec("available_seats = available_seats - ").WithArgs(2, 7, 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO bookings").
		WithArgs(sqlmock.AnyArg(), 5, 7, model.BookingConfirmed, 2, 300000, true).
		WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectQuery("FROM bookings WHERE id =").WithArgs(11).
		WillReturnRows(bookingRows(11, "ref-1", 5, 7, model.BookingConfirmed, 2, 300000, nil, nil))
	mock.ExpectExec("INSERT INTO seat_claims").
		WithArgs(11, 7, "01", "Amir", 34, "MALE", 11, 7, "02", "Sara", 28, "FEMALE").
		WillReturnResult(sqlmock.NewResult(21, 2))
	mock.ExpectQuery("FROM seat_claims WHERE booking_id").WithArgs(11).
		WillReturnRows(claimRows(11, 7, "01", "02"))
	mock.ExpectCommit()

	// Labels, names and genders arrive in sloppy shapes and must reach the
	// database canonicalized.
	b, claims, err := m.Reserve(context.Background(), 5, 7, []SeatRequest{
		{SeatNumber: "1", PassengerName: "Amir", PassengerAge: 34, PassengerGender: "male"},
		{SeatNumber: "02", PassengerName: "  Sara ", PassengerAge: 28, PassengerGender: "FEMALE"},
	})
	require.NoError(t, err)
	assert.Equal(t, uint32(2), b.SeatCount)
	assert.Equal(t, uint32(300000), b.TotalCents)
	assert.Equal(t, model.BookingConfirmed, b.Status)
	assert.Len(t, claims, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveAcceptsSevenSeats(t *testing.T) {
	m, mock := newTestManager(t)
	departure := time.Now().UTC().Add(72 * time.Hour).Truncate(time.Second)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM schedules WHERE id = (.+) FOR UPDATE").WithArgs(7).
		WillReturnRows(scheduleRows(7, model.TripScheduled, departure, 150000, 40, 40))
	mock.ExpectQuery("SELECT seat_number FROM seat_claims WHERE schedule_id").WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"seat_number"}))
	mock.ExpectExec("available_seats = available_seats - ").WithArgs(7, 7, 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO bookings").
		WithArgs(sqlmock.AnyArg(), 5, 7, model.BookingConfirmed, 7, 1050000, true).
		WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectQuery("FROM bookings WHERE id =").WithArgs(11).
		WillReturnRows(bookingRows(11, "ref-1", 5, 7, model.BookingConfirmed, 7, 1050000, nil, nil))
	mock.ExpectExec("INSERT INTO seat_claims").
		WillReturnResult(sqlmock.NewResult(21, 7))
	mock.ExpectQuery("FROM seat_claims WHERE booking_id").WithArgs(11).
		WillReturnRows(claimRows(11, 7, "01", "02", "03", "04", "05", "06", "07"))
	mock.ExpectCommit()

	// Only bus capacity bounds the size of one booking.
	b, claims, err := m.Reserve(context.Background(), 5, 7, seatReqs("01", "02", "03", "04", "05", "06", "07"))
	require.NoError(t, err)
	assert.Equal(t, uint32(7), b.SeatCount)
	assert.Equal(t, uint32(1050000), b.TotalCents)
	assert.Len(t, claims, 7)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveNearDepartureLocksCancellation(t *testing.T) {
	m, mock := newTestManager(t)
	departure := time.Now().UTC().Add(90 * time.Minute).Truncate(time.Second)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM schedules WHERE id = (.+) FOR UPDATE").WithArgs(7).
		WillReturnRows(scheduleRows(7, model.TripScheduled, departure, 150000, 40, 40))
	mock.ExpectQuery("SELECT seat_number FROM seat_claims WHERE schedule_id").WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"seat_number"}))
	mock.ExpectExec("available_seats = available_seats - ").WithArgs(1, 7, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// Departure is inside the two hour window, so the booking is stamped
	// can_cancel = false at creation and stays that way.
	mock.ExpectExec("INSERT INTO bookings").
		WithArgs(sqlmock.AnyArg(), 5, 7, model.BookingConfirmed, 1, 150000, false).
		WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectQuery("FROM bookings WHERE id =").WithArgs(11).
		WillReturnRows(sqlmock.NewRows(bookingCols).AddRow(11, "ref-1", 5, 7, model.BookingConfirmed,
			1, 150000, "PAID", false, nil, nil, time.Now().UTC(), time.Now().UTC()))
	mock.ExpectExec("INSERT INTO seat_claims").
		WillReturnResult(sqlmock.NewResult(21, 1))
	mock.ExpectQuery("FROM seat_claims WHERE booking_id").WithArgs(11).
		WillReturnRows(claimRows(11, 7, "01"))
	mock.ExpectCommit()

	b, _, err := m.Reserve(context.Background(), 5, 7, seatReqs("01"))
	require.NoError(t, err)
	assert.False(t, b.CanCancel)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveReportsEveryConflictingSeat(t *testing.T) {
	m, mock := newTestManager(t)
	departure := time.Now().UTC().Add(72 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM schedules WHERE id = (.+) FOR UPDATE").WithArgs(7).
		WillReturnRows(scheduleRows(7, model.TripScheduled, departure, 150000, 40, 10))
	mock.ExpectQuery("SELECT seat_number FROM seat_claims WHERE schedule_id").WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"seat_number"}).AddRow("02").AddRow("04"))
	mock.ExpectRollback()

	_, _, err := m.Reserve(context.Background(), 5, 7, seatReqs("01", "02", "04"))
	var unavailable *SeatUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, []string{"02", "04"}, unavailable.Seats)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveLosesCounterRace(t *testing.T) {
	m, mock := newTestManager(t)
	departure := time.Now().UTC().Add(72 * time.Hour)

	// The ledger read saw no conflict but the guarded counter UPDATE
	// matched nothing, meaning the remaining capacity is gone.
	mock.ExpectBegin()
	mock.ExpectQuery("FROM schedules WHERE id = (.+) FOR UPDATE").WithArgs(7).
		WillReturnRows(scheduleRows(7, model.TripScheduled, departure, 150000, 40, 1))
	mock.ExpectQuery("SELECT seat_number FROM seat_claims WHERE schedule_id").WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"seat_number"}))
	mock.ExpectExec("available_seats = available_seats - ").WithArgs(2, 7, 2).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT 1 FROM schedules WHERE id").WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectRollback()

	_, _, err := m.Reserve(context.Background(), 5, 7, seatReqs("01", "02"))
	var unavailable *SeatUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, []string{"01", "02"}, unavailable.Seats)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveRejectsDepartedTrip(t *testing.T) {
	m, mock := newTestManager(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM schedules WHERE id = (.+) FOR UPDATE").WithArgs(7).
		WillReturnRows(scheduleRows(7, model.TripScheduled, time.Now().UTC().Add(-time.Hour), 150000, 40, 40))
	mock.ExpectRollback()

	_, _, err := m.Reserve(context.Background(), 5, 7, seatReqs("01"))
	assert.ErrorIs(t, err, ErrPastDeparture)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveRejectsClosedTrips(t *testing.T) {
	cases := []struct {
		status string
		want   error
	}{
		{model.TripCancelled, ErrTripCancelled},
		{model.TripRunning, ErrTripNotBookable},
		{model.TripCompleted, ErrTripNotBookable},
	}
	for _, tc := range cases {
		t.Run(tc.status, func(t *testing.T) {
			m, mock := newTestManager(t)
			mock.ExpectBegin()
			mock.ExpectQuery("FROM schedules WHERE id = (.+) FOR UPDATE").WithArgs(7).
				WillReturnRows(scheduleRows(7, tc.status, time.Now().UTC().Add(72*time.Hour), 150000, 40, 40))
			mock.ExpectRollback()

			_, _, err := m.Reserve(context.Background(), 5, 7, seatReqs("01"))
			assert.ErrorIs(t, err, tc.want)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestReserveRejectsUnknownTrip(t *testing.T) {
	m, mock := newTestManager(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM schedules WHERE id = (.+) FOR UPDATE").WithArgs(99).
		WillReturnRows(sqlmock.NewRows(scheduleCols))
	mock.ExpectRollback()

	_, _, err := m.Reserve(context.Background(), 5, 99, seatReqs("01"))
	assert.ErrorIs(t, err, ErrTripNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveValidatesSeatRequests(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		seats []SeatRequest
	}{
		{"no seats", nil},
		{"duplicate seat", seatReqs("3", "03")},
		{"bad label", seatReqs("AA")},
		{"zero label", seatReqs("00")},
		{"missing name", []SeatRequest{{SeatNumber: "01", PassengerName: "   ", PassengerAge: 30, PassengerGender: "MALE"}}},
		{"bad age", []SeatRequest{{SeatNumber: "01", PassengerName: "Amir", PassengerAge: 0, PassengerGender: "MALE"}}},
		{"bad gender", []SeatRequest{{SeatNumber: "01", PassengerName: "Amir", PassengerAge: 30, PassengerGender: "X"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := m.Reserve(ctx, 5, 7, tc.seats)
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}
}

func TestReserveRejectsSeatBeyondCapacity(t *testing.T) {
	m, mock := newTestManager(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM schedules WHERE id = (.+) FOR UPDATE").WithArgs(7).
		WillReturnRows(scheduleRows(7, model.TripScheduled, time.Now().UTC().Add(72*time.Hour), 150000, 20, 20))
	mock.ExpectRollback()

	_, _, err := m.Reserve(context.Background(), 5, 7, seatReqs("25"))
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.Contains(t, err.Error(), "does not exist")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveRejectsOverflowingTotal(t *testing.T) {
	m, mock := newTestManager(t)

	// Two seats at the uint32 price ceiling cannot be stored in total_cents.
	mock.ExpectBegin()
	mock.ExpectQuery("FROM schedules WHERE id = (.+) FOR UPDATE").WithArgs(7).
		WillReturnRows(scheduleRows(7, model.TripScheduled, time.Now().UTC().Add(72*time.Hour), math.MaxUint32, 40, 40))
	mock.ExpectRollback()

	_, _, err := m.Reserve(context.Background(), 5, 7, seatReqs("01", "02"))
	assert.ErrorIs(t, err, ErrInvalidRequest)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveRetriesDeadlocksThenGivesUp(t *testing.T) {
	m, mock := newTestManager(t)

	for i := 0; i < 3; i++ {
		mock.ExpectBegin()
		mock.ExpectQuery("FROM schedules WHERE id = (.+) FOR UPDATE").WithArgs(7).
			WillReturnError(errors.New("Error 1213: Deadlock found when trying to get lock"))
		mock.ExpectRollback()
	}

	_, _, err := m.Reserve(context.Background(), 5, 7, seatReqs("01"))
	assert.ErrorIs(t, err, ErrTxConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveDoesNotRetryPlainErrors(t *testing.T) {
	m, mock := newTestManager(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM schedules WHERE id = (.+) FOR UPDATE").WithArgs(7).
		WillReturnError(errors.New("connection refused"))
	mock.ExpectRollback()

	_, _, err := m.Reserve(context.Background(), 5, 7, seatReqs("01"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReleaseRefundsNinetyPercentToCustomer(t *testing.T) {
	m, mock := newTestManager(t)
	departure := time.Now().UTC().Add(72 * time.Hour)
	cancelledAt := time.Now().UTC()

	mock.ExpectQuery("FROM bookings WHERE booking_ref").WithArgs("ref-1").
		WillReturnRows(bookingRows(11, "ref-1", 5, 7, model.BookingConfirmed, 2, 300000, nil, nil))
	mock.ExpectBegin()
	mock.ExpectQuery("FROM schedules WHERE id = (.+) FOR UPDATE").WithArgs(7).
		WillReturnRows(scheduleRows(7, model.TripScheduled, departure, 150000, 40, 38))
	mock.ExpectQuery("FROM bookings WHERE booking_ref = (.+) FOR UPDATE").WithArgs("ref-1").
		WillReturnRows(bookingRows(11, "ref-1", 5, 7, model.BookingConfirmed, 2, 300000, nil, nil))
	mock.ExpectExec("UPDATE seat_claims SET active = NULL").WithArgs(11).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("SET available_seats = LEAST").WithArgs(2, 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE bookings").WithArgs(270000, 11).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM bookings WHERE booking_ref = (.+) FOR UPDATE").WithArgs("ref-1").
		WillReturnRows(bookingRows(11, "ref-1", 5, 7, model.BookingCancelled, 2, 300000, cancelledAt, 270000))
	mock.ExpectQuery("FROM seat_claims WHERE booking_id").WithArgs(11).
		WillReturnRows(claimRows(11, 7, "01", "02"))
	mock.ExpectCommit()

	b, err := m.Release(context.Background(), "ref-1", 5, false)
	require.NoError(t, err)
	assert.Equal(t, model.BookingCancelled, b.Status)
	require.NotNil(t, b.RefundCents)
	assert.Equal(t, uint32(270000), *b.RefundCents)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReleaseHonorsStoredFlagNearDeparture(t *testing.T) {
	m, mock := newTestManager(t)
	// One hour to departure.  The booking was made early enough to be
	// stamped can_cancel = true, and the flag is not recomputed as the
	// departure approaches.
	departure := time.Now().UTC().Add(time.Hour)
	cancelledAt := time.Now().UTC()

	mock.ExpectQuery("FROM bookings WHERE booking_ref").WithArgs("ref-1").
		WillReturnRows(bookingRows(11, "ref-1", 5, 7, model.BookingConfirmed, 2, 300000, nil, nil))
	mock.ExpectBegin()
	mock.ExpectQuery("FROM schedules WHERE id = (.+) FOR UPDATE").WithArgs(7).
		WillReturnRows(scheduleRows(7, model.TripScheduled, departure, 150000, 40, 38))
	mock.ExpectQuery("FROM bookings WHERE booking_ref = (.+) FOR UPDATE").WithArgs("ref-1").
		WillReturnRows(bookingRows(11, "ref-1", 5, 7, model.BookingConfirmed, 2, 300000, nil, nil))
	mock.ExpectExec("UPDATE seat_claims SET active = NULL").WithArgs(11).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("SET available_seats = LEAST").WithArgs(2, 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE bookings").WithArgs(270000, 11).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM bookings WHERE booking_ref = (.+) FOR UPDATE").WithArgs("ref-1").
		WillReturnRows(bookingRows(11, "ref-1", 5, 7, model.BookingCancelled, 2, 300000, cancelledAt, 270000))
	mock.ExpectQuery("FROM seat_claims WHERE booking_id").WithArgs(11).
		WillReturnRows(claimRows(11, 7, "01", "02"))
	mock.ExpectCommit()

	b, err := m.Release(context.Background(), "ref-1", 5, false)
	require.NoError(t, err)
	assert.Equal(t, model.BookingCancelled, b.Status)
	require.NotNil(t, b.RefundCents)
	assert.Equal(t, uint32(270000), *b.RefundCents)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReleaseAdminOverridesCanCancel(t *testing.T) {
	m, mock := newTestManager(t)
	// The booking was stamped can_cancel = false at creation; the admin
	// cancels it anyway and refunds the full amount.
	departure := time.Now().UTC().Add(30 * time.Minute)
	cancelledAt := time.Now().UTC()

	mock.ExpectQuery("FROM bookings WHERE booking_ref").WithArgs("ref-1").
		WillReturnRows(bookingRowsNoCancel(11, "ref-1", 5, 7, model.BookingConfirmed, 2, 300000, nil, nil))
	mock.ExpectBegin()
	mock.ExpectQuery("FROM schedules WHERE id = (.+) FOR UPDATE").WithArgs(7).
		WillReturnRows(scheduleRows(7, model.TripScheduled, departure, 150000, 40, 38))
	mock.ExpectQuery("FROM bookings WHERE booking_ref = (.+) FOR UPDATE").WithArgs("ref-1").
		WillReturnRows(bookingRowsNoCancel(11, "ref-1", 5, 7, model.BookingConfirmed, 2, 300000, nil, nil))
	mock.ExpectExec("UPDATE seat_claims SET active = NULL").WithArgs(11).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("SET available_seats = LEAST").WithArgs(2, 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE bookings").WithArgs(300000, 11).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM bookings WHERE booking_ref = (.+) FOR UPDATE").WithArgs("ref-1").
		WillReturnRows(bookingRowsNoCancel(11, "ref-1", 5, 7, model.BookingCancelled, 2, 300000, cancelledAt, 300000))
	mock.ExpectQuery("FROM seat_claims WHERE booking_id").WithArgs(11).
		WillReturnRows(claimRows(11, 7, "01", "02"))
	mock.ExpectCommit()

	b, err := m.Release(context.Background(), "ref-1", 0, true)
	require.NoError(t, err)
	require.NotNil(t, b.RefundCents)
	assert.Equal(t, uint32(300000), *b.RefundCents)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReleaseRejectsForeignBooking(t *testing.T) {
	m, mock := newTestManager(t)

	mock.ExpectQuery("FROM bookings WHERE booking_ref").WithArgs("ref-1").
		WillReturnRows(bookingRows(11, "ref-1", 5, 7, model.BookingConfirmed, 2, 300000, nil, nil))

	_, err := m.Release(context.Background(), "ref-1", 6, false)
	assert.ErrorIs(t, err, ErrForbidden)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReleaseRejectsIneligibleBooking(t *testing.T) {
	m, mock := newTestManager(t)
	// Booked less than two hours before departure, so can_cancel was
	// stamped false at creation and the owner cannot free the seats.
	departure := time.Now().UTC().Add(time.Hour)

	mock.ExpectQuery("FROM bookings WHERE booking_ref").WithArgs("ref-1").
		WillReturnRows(bookingRowsNoCancel(11, "ref-1", 5, 7, model.BookingConfirmed, 2, 300000, nil, nil))
	mock.ExpectBegin()
	mock.ExpectQuery("FROM schedules WHERE id = (.+) FOR UPDATE").WithArgs(7).
		WillReturnRows(scheduleRows(7, model.TripScheduled, departure, 150000, 40, 38))
	mock.ExpectQuery("FROM bookings WHERE booking_ref = (.+) FOR UPDATE").WithArgs("ref-1").
		WillReturnRows(bookingRowsNoCancel(11, "ref-1", 5, 7, model.BookingConfirmed, 2, 300000, nil, nil))
	mock.ExpectRollback()

	_, err := m.Release(context.Background(), "ref-1", 5, false)
	assert.ErrorIs(t, err, ErrCancellationNotAllowed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReleaseAdminRefundsAfterDeparture(t *testing.T) {
	m, mock := newTestManager(t)
	// The trip departed an hour ago; the admin can still cancel on the
	// customer's behalf with a full refund.
	departure := time.Now().UTC().Add(-time.Hour)
	cancelledAt := time.Now().UTC()

	mock.ExpectQuery("FROM bookings WHERE booking_ref").WithArgs("ref-1").
		WillReturnRows(bookingRows(11, "ref-1", 5, 7, model.BookingConfirmed, 2, 300000, nil, nil))
	mock.ExpectBegin()
	mock.ExpectQuery("FROM schedules WHERE id = (.+) FOR UPDATE").WithArgs(7).
		WillReturnRows(scheduleRows(7, model.TripScheduled, departure, 150000, 40, 38))
	mock.ExpectQuery("FROM bookings WHERE booking_ref = (.+) FOR UPDATE").WithArgs("ref-1").
		WillReturnRows(bookingRows(11, "ref-1", 5, 7, model.BookingConfirmed, 2, 300000, nil, nil))
	mock.ExpectExec("UPDATE seat_claims SET active = NULL").WithArgs(11).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("SET available_seats = LEAST").WithArgs(2, 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE bookings").WithArgs(300000, 11).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM bookings WHERE booking_ref = (.+) FOR UPDATE").WithArgs("ref-1").
		WillReturnRows(bookingRows(11, "ref-1", 5, 7, model.BookingCancelled, 2, 300000, cancelledAt, 300000))
	mock.ExpectQuery("FROM seat_claims WHERE booking_id").WithArgs(11).
		WillReturnRows(claimRows(11, 7, "01", "02"))
	mock.ExpectCommit()

	b, err := m.Release(context.Background(), "ref-1", 0, true)
	require.NoError(t, err)
	assert.Equal(t, model.BookingCancelled, b.Status)
	require.NotNil(t, b.RefundCents)
	assert.Equal(t, uint32(300000), *b.RefundCents)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReleaseRefusesCompletedBooking(t *testing.T) {
	m, mock := newTestManager(t)
	departure := time.Now().UTC().Add(-24 * time.Hour)

	mock.ExpectQuery("FROM bookings WHERE booking_ref").WithArgs("ref-1").
		WillReturnRows(bookingRows(11, "ref-1", 5, 7, model.BookingCompleted, 2, 300000, nil, nil))
	mock.ExpectBegin()
	mock.ExpectQuery("FROM schedules WHERE id = (.+) FOR UPDATE").WithArgs(7).
		WillReturnRows(scheduleRows(7, model.TripCompleted, departure, 150000, 40, 38))
	mock.ExpectQuery("FROM bookings WHERE booking_ref = (.+) FOR UPDATE").WithArgs("ref-1").
		WillReturnRows(bookingRows(11, "ref-1", 5, 7, model.BookingCompleted, 2, 300000, nil, nil))
	mock.ExpectRollback()

	// A ride already taken cannot be refunded, not even by an admin.
	_, err := m.Release(context.Background(), "ref-1", 0, true)
	assert.ErrorIs(t, err, ErrCancellationNotAllowed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReleaseDetectsConcurrentCancellation(t *testing.T) {
	m, mock := newTestManager(t)
	departure := time.Now().UTC().Add(72 * time.Hour)
	cancelledAt := time.Now().UTC()

	// The pre-check saw a CONFIRMED booking but another request cancelled
	// it before this transaction took the row lock.
	mock.ExpectQuery("FROM bookings WHERE booking_ref").WithArgs("ref-1").
		WillReturnRows(bookingRows(11, "ref-1", 5, 7, model.BookingConfirmed, 2, 300000, nil, nil))
	mock.ExpectBegin()
	mock.ExpectQuery("FROM schedules WHERE id = (.+) FOR UPDATE").WithArgs(7).
		WillReturnRows(scheduleRows(7, model.TripScheduled, departure, 150000, 40, 40))
	mock.ExpectQuery("FROM bookings WHERE booking_ref = (.+) FOR UPDATE").WithArgs("ref-1").
		WillReturnRows(bookingRows(11, "ref-1", 5, 7, model.BookingCancelled, 2, 300000, cancelledAt, 270000))
	mock.ExpectRollback()

	_, err := m.Release(context.Background(), "ref-1", 5, false)
	assert.ErrorIs(t, err, ErrBookingAlreadyCancelled)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReleaseUnknownRef(t *testing.T) {
	m, mock := newTestManager(t)

	mock.ExpectQuery("FROM bookings WHERE booking_ref").WithArgs("nope").
		WillReturnRows(sqlmock.NewRows(bookingCols))

	_, err := m.Release(context.Background(), "nope", 5, false)
	assert.ErrorIs(t, err, ErrBookingNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelTripCancelsEveryBookingWithFullRefund(t *testing.T) {
	m, mock := newTestManager(t)
	departure := time.Now().UTC().Add(72 * time.Hour)

	confirmed := sqlmock.NewRows(bookingCols)
	now := time.Now().UTC()
	confirmed.AddRow(11, "ref-1", 5, 7, model.BookingConfirmed, 2, 300000, "PAID", true, nil, nil, now, now)
	confirmed.AddRow(12, "ref-2", 6, 7, model.BookingConfirmed, 1, 150000, "PAID", true, nil, nil, now, now)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM schedules WHERE id = (.+) FOR UPDATE").WithArgs(7).
		WillReturnRows(scheduleRows(7, model.TripScheduled, departure, 150000, 40, 37))
	mock.ExpectQuery("AND status = 'CONFIRMED' ORDER BY id FOR UPDATE").WithArgs(7).
		WillReturnRows(confirmed)

	mock.ExpectExec("UPDATE seat_claims SET active = NULL").WithArgs(11).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("UPDATE bookings").WithArgs(300000, 11).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM seat_claims WHERE booking_id").WithArgs(11).
		WillReturnRows(claimRows(11, 7, "01", "02"))

	mock.ExpectExec("UPDATE seat_claims SET active = NULL").WithArgs(12).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE bookings").WithArgs(150000, 12).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM seat_claims WHERE booking_id").WithArgs(12).
		WillReturnRows(claimRows(12, 7, "05"))

	mock.ExpectExec("SET status = 'CANCELLED', available_seats = 0").WithArgs(7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := m.CancelTrip(context.Background(), 7)
	require.NoError(t, err)
	assert.False(t, res.AlreadyCancelled)
	assert.Equal(t, 2, res.BookingsCancelled)
	assert.Equal(t, 3, res.SeatsReleased)
	assert.Equal(t, uint64(450000), res.RefundCents)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelTripIsIdempotent(t *testing.T) {
	m, mock := newTestManager(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM schedules WHERE id = (.+) FOR UPDATE").WithArgs(7).
		WillReturnRows(scheduleRows(7, model.TripCancelled, time.Now().UTC().Add(72*time.Hour), 150000, 40, 0))
	mock.ExpectCommit()

	res, err := m.CancelTrip(context.Background(), 7)
	require.NoError(t, err)
	assert.True(t, res.AlreadyCancelled)
	assert.Zero(t, res.BookingsCancelled)
	assert.Zero(t, res.RefundCents)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelTripSkipsBookingCancelledUnderfoot(t *testing.T) {
	m, mock := newTestManager(t)
	departure := time.Now().UTC().Add(72 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM schedules WHERE id = (.+) FOR UPDATE").WithArgs(7).
		WillReturnRows(scheduleRows(7, model.TripScheduled, departure, 150000, 40, 38))
	mock.ExpectQuery("AND status = 'CONFIRMED' ORDER BY id FOR UPDATE").WithArgs(7).
		WillReturnRows(bookingRows(11, "ref-1", 5, 7, model.BookingConfirmed, 2, 300000, nil, nil))
	mock.ExpectExec("UPDATE seat_claims SET active = NULL").WithArgs(11).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("UPDATE bookings").WithArgs(300000, 11).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("SET status = 'CANCELLED', available_seats = 0").WithArgs(7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := m.CancelTrip(context.Background(), 7)
	require.NoError(t, err)
	assert.Zero(t, res.BookingsCancelled)
	assert.Zero(t, res.RefundCents)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelTripUnknownSchedule(t *testing.T) {
	m, mock := newTestManager(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM schedules WHERE id = (.+) FOR UPDATE").WithArgs(99).
		WillReturnRows(sqlmock.NewRows(scheduleCols))
	mock.ExpectRollback()

	_, err := m.CancelTrip(context.Background(), 99)
	assert.ErrorIs(t, err, ErrTripNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRefundAmount(t *testing.T) {
	assert.Equal(t, uint32(300000), refundAmount(300000, true))
	assert.Equal(t, uint32(270000), refundAmount(300000, false))
	assert.Equal(t, uint32(90), refundAmount(101, false)) // rounds down
	assert.Zero(t, refundAmount(0, false))
}
