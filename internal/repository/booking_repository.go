package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/bus-ticket-reservation/internal/model"
)

// ErrBookingRecordNotFound indicates that no booking row matched the lookup.
var ErrBookingRecordNotFound = errors.New("booking not found")

// BookingRepo provides persistence for bookings.  A booking groups the
// seats one purchase claimed on a trip together with the amount paid.
// Monetary fields are integer cents throughout; timestamps are UTC.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingCols = `id, booking_ref, user_id, schedule_id, status, seat_count, total_cents,
	payment_status, can_cancel, cancelled_at, refund_cents, created_at, updated_at`

func scanBooking(row interface{ Scan(...any) error }) (*model.Booking, error) {
	var b model.Booking
	err := row.Scan(&b.ID, &b.BookingRef, &b.UserID, &b.ScheduleID, &b.Status, &b.SeatCount,
		&b.TotalCents, &b.PaymentStatus, &b.CanCancel, &b.CancelledAt, &b.RefundCents,
		&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingRecordNotFound
		}
		return nil, err
	}
	return &b, nil
}

// CreateTx inserts a new booking within the scope of an existing
// transaction and reads the row back so defaults (payment_status,
// timestamps) are populated.  The caller commits or rolls back.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	const q = `INSERT INTO bookings (booking_ref, user_id, schedule_id, status, seat_count, total_cents, can_cancel)
	           VALUES (?, ?, ?, ?, ?, ?, ?)`
	result, err := tx.ExecContext(ctx, q, b.BookingRef, b.UserID, b.ScheduleID, b.Status,
		b.SeatCount, b.TotalCents, b.CanCancel)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)

	const sel = "SELECT " + bookingCols + " FROM bookings WHERE id = ?"
	fresh, err := scanBooking(tx.QueryRowContext(ctx, sel, b.ID))
	if err != nil {
		return err
	}
	*b = *fresh
	return nil
}

// GetByRef retrieves a booking by its public reference.
func (r *BookingRepo) GetByRef(ctx context.Context, ref string) (*model.Booking, error) {
	const q = "SELECT " + bookingCols + " FROM bookings WHERE booking_ref = ?"
	return scanBooking(r.db.QueryRowContext(ctx, q, ref))
}

// GetByRefTx retrieves a booking by reference inside tx while holding its
// row lock, so status checks and the cancellation write see one state.
func (r *BookingRepo) GetByRefTx(ctx context.Context, tx *sql.Tx, ref string) (*model.Booking, error) {
	const q = "SELECT " + bookingCols + " FROM bookings WHERE booking_ref = ? FOR UPDATE"
	return scanBooking(tx.QueryRowContext(ctx, q, ref))
}

// ListConfirmedByScheduleTx returns every CONFIRMED booking of a schedule
// inside tx, locking the rows.  Trip cancellation walks this list.
func (r *BookingRepo) ListConfirmedByScheduleTx(ctx context.Context, tx *sql.Tx, scheduleID uint64) ([]*model.Booking, error) {
	const q = "SELECT " + bookingCols + " FROM bookings WHERE schedule_id = ? AND status = 'CONFIRMED' ORDER BY id FOR UPDATE"
	rows, err := tx.QueryContext(ctx, q, scheduleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Booking
	for rows.Next() {
		var b model.Booking
		if err := rows.Scan(&b.ID, &b.BookingRef, &b.UserID, &b.ScheduleID, &b.Status, &b.SeatCount,
			&b.TotalCents, &b.PaymentStatus, &b.CanCancel, &b.CancelledAt, &b.RefundCents,
			&b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// MarkCancelledTx flips a CONFIRMED booking to CANCELLED and records the
// refund, all in one guarded UPDATE.  Returns false when the booking was
// not CONFIRMED anymore, so a cancellation can never be applied twice.
func (r *BookingRepo) MarkCancelledTx(ctx context.Context, tx *sql.Tx, id uint64, refundCents uint32) (bool, error) {
	const q = `UPDATE bookings
	           SET status = 'CANCELLED', cancelled_at = NOW(), refund_cents = ?, updated_at = CURRENT_TIMESTAMP
	           WHERE id = ? AND status = 'CONFIRMED'`
	res, err := tx.ExecContext(ctx, q, refundCents, id)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// BookingSeat is one claimed seat as shown inside a booking detail.
type BookingSeat struct {
	SeatNumber      string `json:"seat_number"`
	PassengerName   string `json:"passenger_name"`
	PassengerAge    uint8  `json:"passenger_age"`
	PassengerGender string `json:"passenger_gender"`
}

// BookingDetail carries a booking together with its trip, bus and operator
// information plus the seats claimed under it.  It is returned by the
// customer-facing listing and detail lookups.
type BookingDetail struct {
	ID             uint64        `json:"id"`
	BookingRef     string        `json:"booking_ref"`
	ScheduleID     uint64        `json:"schedule_id"`
	Status         string        `json:"status"`
	SeatCount      uint32        `json:"seat_count"`
	TotalCents     uint32        `json:"total_cents"`
	PaymentStatus  string        `json:"payment_status"`
	CanCancel      bool          `json:"can_cancel"`
	CancelledAt    *string       `json:"cancelled_at,omitempty"`
	RefundCents    *uint32       `json:"refund_cents,omitempty"`
	CreatedAt      string        `json:"created_at"`
	Origin         string        `json:"origin"`
	Destination    string        `json:"destination"`
	ServiceDate    string        `json:"service_date"`
	DepartureAt    string        `json:"departure_at"`
	ArrivalAt      string        `json:"arrival_at"`
	TripStatus     string        `json:"trip_status"`
	BusType        string        `json:"bus_type"`
	RegistrationNo string        `json:"registration_no"`
	OperatorName   string        `json:"operator_name"`
	Seats          []BookingSeat `json:"seats"`
}

// AdminBookingDetail extends BookingDetail with the customer identity for
// the admin console.
type AdminBookingDetail struct {
	BookingDetail
	UserID    uint64 `json:"user_id"`
	UserEmail string `json:"user_email"`
	UserName  string `json:"user_name"`
}

const bookingDetailCols = `b.id, b.booking_ref, b.schedule_id, b.status, b.seat_count, b.total_cents,
	       b.payment_status, b.can_cancel, b.cancelled_at, b.refund_cents, b.created_at,
	       rt.origin, rt.destination, sc.service_date, sc.departure_at, sc.arrival_at, sc.status,
	       bu.bus_type, bu.registration_no, op.name`

const bookingDetailJoins = ` FROM bookings b
	       JOIN schedules sc ON sc.id = b.schedule_id
	       JOIN routes rt ON rt.id = sc.route_id
	       JOIN buses bu ON bu.id = sc.bus_id
	       JOIN operators op ON op.id = bu.operator_id`

func scanBookingDetail(rows interface{ Scan(...any) error }, d *BookingDetail) error {
	var cancelledAt sql.NullTime
	var serviceDate, departureAt, arrivalAt, createdAt time.Time
	if err := rows.Scan(
		&d.ID, &d.BookingRef, &d.ScheduleID, &d.Status, &d.SeatCount, &d.TotalCents,
		&d.PaymentStatus, &d.CanCancel, &cancelledAt, &d.RefundCents, &createdAt,
		&d.Origin, &d.Destination, &serviceDate, &departureAt, &arrivalAt, &d.TripStatus,
		&d.BusType, &d.RegistrationNo, &d.OperatorName,
	); err != nil {
		return err
	}
	if cancelledAt.Valid {
		iso := cancelledAt.Time.UTC().Format(time.RFC3339)
		d.CancelledAt = &iso
	}
	d.CreatedAt = createdAt.UTC().Format(time.RFC3339)
	d.ServiceDate = serviceDate.Format("2006-01-02")
	d.DepartureAt = departureAt.UTC().Format(time.RFC3339)
	d.ArrivalAt = arrivalAt.UTC().Format(time.RFC3339)
	d.Seats = []BookingSeat{}
	return nil
}

// GetDetailByRefForUser returns a single booking with trip and seat
// information, restricted to the owning user.  ErrForbidden is returned
// when the booking belongs to someone else.
func (r *BookingRepo) GetDetailByRefForUser(ctx context.Context, ref string, userID uint64) (*BookingDetail, error) {
	const q = "SELECT b.user_id, " + bookingDetailCols + bookingDetailJoins + " WHERE b.booking_ref = ?"
	var det BookingDetail
	var ownerID uint64
	var cancelledAt sql.NullTime
	var serviceDate, departureAt, arrivalAt, createdAt time.Time
	err := r.db.QueryRowContext(ctx, q, ref).Scan(
		&ownerID,
		&det.ID, &det.BookingRef, &det.ScheduleID, &det.Status, &det.SeatCount, &det.TotalCents,
		&det.PaymentStatus, &det.CanCancel, &cancelledAt, &det.RefundCents, &createdAt,
		&det.Origin, &det.Destination, &serviceDate, &departureAt, &arrivalAt, &det.TripStatus,
		&det.BusType, &det.RegistrationNo, &det.OperatorName,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingRecordNotFound
		}
		return nil, err
	}
	if ownerID != userID {
		return nil, ErrForbidden
	}
	if cancelledAt.Valid {
		iso := cancelledAt.Time.UTC().Format(time.RFC3339)
		det.CancelledAt = &iso
	}
	det.CreatedAt = createdAt.UTC().Format(time.RFC3339)
	det.ServiceDate = serviceDate.Format("2006-01-02")
	det.DepartureAt = departureAt.UTC().Format(time.RFC3339)
	det.ArrivalAt = arrivalAt.UTC().Format(time.RFC3339)
	det.Seats = []BookingSeat{}
	if err := r.populateSeats(ctx, map[uint64]*[]BookingSeat{det.ID: &det.Seats}); err != nil {
		return nil, err
	}
	return &det, nil
}

// GetAdminDetailByRef returns one booking with trip, seat and customer
// information for the admin console.  No ownership restriction applies.
func (r *BookingRepo) GetAdminDetailByRef(ctx context.Context, ref string) (*AdminBookingDetail, error) {
	const q = "SELECT u.id, u.email, u.full_name, " + bookingDetailCols + bookingDetailJoins +
		" JOIN users u ON u.id = b.user_id WHERE b.booking_ref = ?"
	var d AdminBookingDetail
	var cancelledAt sql.NullTime
	var serviceDate, departureAt, arrivalAt, createdAt time.Time
	err := r.db.QueryRowContext(ctx, q, ref).Scan(
		&d.UserID, &d.UserEmail, &d.UserName,
		&d.ID, &d.BookingRef, &d.ScheduleID, &d.Status, &d.SeatCount, &d.TotalCents,
		&d.PaymentStatus, &d.CanCancel, &cancelledAt, &d.RefundCents, &createdAt,
		&d.Origin, &d.Destination, &serviceDate, &departureAt, &arrivalAt, &d.TripStatus,
		&d.BusType, &d.RegistrationNo, &d.OperatorName,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingRecordNotFound
		}
		return nil, err
	}
	if cancelledAt.Valid {
		iso := cancelledAt.Time.UTC().Format(time.RFC3339)
		d.CancelledAt = &iso
	}
	d.CreatedAt = createdAt.UTC().Format(time.RFC3339)
	d.ServiceDate = serviceDate.Format("2006-01-02")
	d.DepartureAt = departureAt.UTC().Format(time.RFC3339)
	d.ArrivalAt = arrivalAt.UTC().Format(time.RFC3339)
	d.Seats = []BookingSeat{}
	if err := r.populateSeats(ctx, map[uint64]*[]BookingSeat{d.ID: &d.Seats}); err != nil {
		return nil, err
	}
	return &d, nil
}

// ListByUser returns a page of the user's bookings, newest first, with
// trip info and seats attached.  Seats for the whole page are loaded in a
// single follow-up query.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64, limit, offset int) ([]BookingDetail, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM bookings WHERE user_id = ?", userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	const q = "SELECT " + bookingDetailCols + bookingDetailJoins + `
	           WHERE b.user_id = ?
	           ORDER BY b.created_at DESC, b.id DESC
	           LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, q, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	details := make([]BookingDetail, 0)
	index := make(map[uint64]int)
	for rows.Next() {
		var d BookingDetail
		if err := scanBookingDetail(rows, &d); err != nil {
			return nil, 0, err
		}
		index[d.ID] = len(details)
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if len(details) == 0 {
		return details, total, nil
	}

	targets := make(map[uint64]*[]BookingSeat, len(details))
	for id, i := range index {
		targets[id] = &details[i].Seats
	}
	if err := r.populateSeats(ctx, targets); err != nil {
		return nil, 0, err
	}
	return details, total, nil
}

// ListAllFiltered returns a page of bookings for the admin console,
// optionally narrowed to one schedule or one status, with customer
// identity attached.
func (r *BookingRepo) ListAllFiltered(ctx context.Context, scheduleID uint64, status string, limit, offset int) ([]AdminBookingDetail, int, error) {
	where := " WHERE 1=1"
	args := []any{}
	if scheduleID != 0 {
		where += " AND b.schedule_id = ?"
		args = append(args, scheduleID)
	}
	if status != "" {
		where += " AND b.status = ?"
		args = append(args, status)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM bookings b"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := "SELECT u.id, u.email, u.full_name, " + bookingDetailCols + bookingDetailJoins +
		" JOIN users u ON u.id = b.user_id" + where +
		" ORDER BY b.created_at DESC, b.id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	details := make([]AdminBookingDetail, 0)
	index := make(map[uint64]int)
	for rows.Next() {
		var d AdminBookingDetail
		var cancelledAt sql.NullTime
		var serviceDate, departureAt, arrivalAt, createdAt time.Time
		if err := rows.Scan(
			&d.UserID, &d.UserEmail, &d.UserName,
			&d.ID, &d.BookingRef, &d.ScheduleID, &d.Status, &d.SeatCount, &d.TotalCents,
			&d.PaymentStatus, &d.CanCancel, &cancelledAt, &d.RefundCents, &createdAt,
			&d.Origin, &d.Destination, &serviceDate, &departureAt, &arrivalAt, &d.TripStatus,
			&d.BusType, &d.RegistrationNo, &d.OperatorName,
		); err != nil {
			return nil, 0, err
		}
		if cancelledAt.Valid {
			iso := cancelledAt.Time.UTC().Format(time.RFC3339)
			d.CancelledAt = &iso
		}
		d.CreatedAt = createdAt.UTC().Format(time.RFC3339)
		d.ServiceDate = serviceDate.Format("2006-01-02")
		d.DepartureAt = departureAt.UTC().Format(time.RFC3339)
		d.ArrivalAt = arrivalAt.UTC().Format(time.RFC3339)
		d.Seats = []BookingSeat{}
		index[d.ID] = len(details)
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if len(details) == 0 {
		return details, total, nil
	}

	targets := make(map[uint64]*[]BookingSeat, len(details))
	for id, i := range index {
		targets[id] = &details[i].Seats
	}
	if err := r.populateSeats(ctx, targets); err != nil {
		return nil, 0, err
	}
	return details, total, nil
}

// populateSeats loads the seats of all given bookings in one query and
// appends them to the target slices keyed by booking ID.
func (r *BookingRepo) populateSeats(ctx context.Context, targets map[uint64]*[]BookingSeat) error {
	if len(targets) == 0 {
		return nil
	}
	ids := make([]any, 0, len(targets))
	placeholders := make([]string, 0, len(targets))
	for id := range targets {
		ids = append(ids, id)
		placeholders = append(placeholders, "?")
	}
	q := `SELECT booking_id, seat_number, passenger_name, passenger_age, passenger_gender
	      FROM seat_claims
	      WHERE booking_id IN (` + strings.Join(placeholders, ",") + `)
	      ORDER BY booking_id, seat_number`
	rows, err := r.db.QueryContext(ctx, q, ids...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var bid uint64
		var s BookingSeat
		if err := rows.Scan(&bid, &s.SeatNumber, &s.PassengerName, &s.PassengerAge, &s.PassengerGender); err != nil {
			return err
		}
		target, ok := targets[bid]
		if !ok {
			continue
		}
		*target = append(*target, s)
	}
	return rows.Err()
}
