// This file implements the schedule (trip instance) store.  A schedule row
// carries the seat inventory counter for one departure, so every mutation
// here is written to be safe under concurrent booking traffic: the row is
// locked with SELECT ... FOR UPDATE inside booking transactions and the
// counter only ever moves through guarded conditional UPDATEs that refuse
// to leave the [0, total_seats] range.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/bus-ticket-reservation/internal/model"
)

// ErrScheduleNotFound indicates that a trip instance was not located.
var ErrScheduleNotFound = errors.New("schedule not found")

// ErrCounterConflict indicates that a counter adjustment would have pushed
// available_seats below zero or above total_seats.  Inside a booking
// transaction this means the race for the last seats was lost.
var ErrCounterConflict = errors.New("seat counter conflict")

// ScheduleRepo manages persistence for trip instances.
type ScheduleRepo struct {
	db *sql.DB
}

// NewScheduleRepo constructs a ScheduleRepo with the given DB handle.
func NewScheduleRepo(db *sql.DB) *ScheduleRepo {
	return &ScheduleRepo{db: db}
}

// DB exposes the underlying sql.DB so the booking manager can begin
// transactions spanning the schedule, ledger and booking repositories.
func (r *ScheduleRepo) DB() *sql.DB {
	return r.db
}

const scheduleCols = `id, bus_id, route_id, service_date, departure_at, arrival_at, price_cents,
	total_seats, available_seats, status, version, created_at, updated_at`

func scanSchedule(row interface{ Scan(...any) error }) (*model.Schedule, error) {
	var s model.Schedule
	err := row.Scan(&s.ID, &s.BusID, &s.RouteID, &s.ServiceDate, &s.DepartureAt, &s.ArrivalAt,
		&s.PriceCents, &s.TotalSeats, &s.AvailableSeats, &s.Status, &s.Version, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrScheduleNotFound
		}
		return nil, err
	}
	return &s, nil
}

// Create inserts a schedule and re-reads the row so ID, status and
// timestamps come back populated.  available_seats starts at total_seats;
// the caller has already copied the capacity from the bus.
func (r *ScheduleRepo) Create(ctx context.Context, s *model.Schedule) error {
	const q = `INSERT INTO schedules (bus_id, route_id, service_date, departure_at, arrival_at, price_cents, total_seats, available_seats)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, s.BusID, s.RouteID, s.ServiceDate, s.DepartureAt, s.ArrivalAt,
		s.PriceCents, s.TotalSeats, s.TotalSeats)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)

	fresh, err := r.GetByID(ctx, s.ID)
	if err != nil {
		return err
	}
	*s = *fresh
	return nil
}

// GetByID retrieves a schedule by its ID.
func (r *ScheduleRepo) GetByID(ctx context.Context, id uint64) (*model.Schedule, error) {
	const q = "SELECT " + scheduleCols + " FROM schedules WHERE id = ?"
	return scanSchedule(r.db.QueryRowContext(ctx, q, id))
}

// GetForUpdateTx reads a schedule inside tx while taking the InnoDB row
// lock.  This lock is the serialization point for all seat mutations on
// one trip: concurrent transactions on the same trip queue up here while
// different trips proceed in parallel on their own rows.
func (r *ScheduleRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Schedule, error) {
	const q = "SELECT " + scheduleCols + " FROM schedules WHERE id = ? FOR UPDATE"
	return scanSchedule(tx.QueryRowContext(ctx, q, id))
}

// AdjustAvailableSeatsTx moves the availability counter by delta inside tx.
// The UPDATE carries the range guard in its WHERE clause, so a change that
// would leave [0, total_seats] simply matches no row and surfaces as
// ErrCounterConflict; the schedule row itself not existing surfaces as
// ErrScheduleNotFound.  A zero delta is a no-op.
func (r *ScheduleRepo) AdjustAvailableSeatsTx(ctx context.Context, tx *sql.Tx, id uint64, delta int) error {
	if delta == 0 {
		return nil
	}
	var (
		res sql.Result
		err error
	)
	if delta < 0 {
		n := -delta
		const q = `UPDATE schedules
		           SET available_seats = available_seats - ?, version = version + 1
		           WHERE id = ? AND available_seats >= ?`
		res, err = tx.ExecContext(ctx, q, n, id, n)
	} else {
		const q = `UPDATE schedules
		           SET available_seats = available_seats + ?, version = version + 1
		           WHERE id = ? AND available_seats + ? <= total_seats`
		res, err = tx.ExecContext(ctx, q, delta, id, delta)
	}
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	// Distinguish "missing row" from "guard refused the move".
	var one int
	if err := tx.QueryRowContext(ctx, "SELECT 1 FROM schedules WHERE id = ? LIMIT 1", id).Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrScheduleNotFound
		}
		return err
	}
	return ErrCounterConflict
}

// RestoreAvailableSeatsTx returns seats to the pool after a cancellation,
// clamped so the counter can never exceed total_seats even if it had
// drifted.  No-op on CANCELLED trips, whose counter stays frozen at zero.
func (r *ScheduleRepo) RestoreAvailableSeatsTx(ctx context.Context, tx *sql.Tx, id uint64, n int) error {
	if n <= 0 {
		return nil
	}
	const q = `UPDATE schedules
	           SET available_seats = LEAST(total_seats, available_seats + ?), version = version + 1
	           WHERE id = ? AND status <> 'CANCELLED'`
	_, err := tx.ExecContext(ctx, q, n, id)
	return err
}

// MarkCancelledTx flips a schedule to CANCELLED and zeroes the counter.
// Returns false without error when the trip was already cancelled, which is
// how trip cancellation stays idempotent.
func (r *ScheduleRepo) MarkCancelledTx(ctx context.Context, tx *sql.Tx, id uint64) (bool, error) {
	const q = `UPDATE schedules
	           SET status = 'CANCELLED', available_seats = 0, version = version + 1
	           WHERE id = ? AND status <> 'CANCELLED'`
	res, err := tx.ExecContext(ctx, q, id)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// FindOverlappingForBus returns non-cancelled schedules of a bus whose
// [departure, arrival) window intersects the given one.  Used to refuse
// double-scheduling a vehicle.
func (r *ScheduleRepo) FindOverlappingForBus(ctx context.Context, busID uint64, departure, arrival time.Time) ([]*model.Schedule, error) {
	const q = "SELECT " + scheduleCols + ` FROM schedules
	           WHERE bus_id = ? AND status <> 'CANCELLED' AND NOT (arrival_at <= ? OR departure_at >= ?)`
	return r.queryList(ctx, q, busID, departure, arrival)
}

// ListFiltered returns schedules for the admin console, optionally filtered
// by route, service date and status, newest departure first.
func (r *ScheduleRepo) ListFiltered(ctx context.Context, routeID uint64, serviceDate *time.Time, status string, limit, offset int) ([]*model.Schedule, int, error) {
	where := " WHERE 1=1"
	args := []any{}
	if routeID != 0 {
		where += " AND route_id = ?"
		args = append(args, routeID)
	}
	if serviceDate != nil {
		where += " AND service_date = ?"
		args = append(args, serviceDate.Format("2006-01-02"))
	}
	if status != "" {
		where += " AND status = ?"
		args = append(args, status)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schedules"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := "SELECT " + scheduleCols + " FROM schedules" + where + " ORDER BY departure_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)
	items, err := r.queryList(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// UpdateByID rewrites price, times and status with the same conditional
// UPDATE used across the catalog repos: zero affected rows then means
// either "missing" (sql.ErrNoRows) or "identical values" (ErrNoChange).
func (r *ScheduleRepo) UpdateByID(ctx context.Context, s *model.Schedule) error {
	const q = `UPDATE schedules
	           SET service_date = ?, departure_at = ?, arrival_at = ?, price_cents = ?, status = ?, updated_at = CURRENT_TIMESTAMP
	           WHERE id = ?
	             AND (service_date <> ? OR departure_at <> ? OR arrival_at <> ? OR price_cents <> ? OR status <> ?)`
	res, err := r.db.ExecContext(ctx, q,
		s.ServiceDate, s.DepartureAt, s.ArrivalAt, s.PriceCents, s.Status,
		s.ID,
		s.ServiceDate, s.DepartureAt, s.ArrivalAt, s.PriceCents, s.Status,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	var one int
	if err := r.db.QueryRowContext(ctx, "SELECT 1 FROM schedules WHERE id = ? LIMIT 1", s.ID).Scan(&one); err != nil {
		if err == sql.ErrNoRows {
			return sql.ErrNoRows
		}
		return err
	}
	return ErrNoChange
}

// DeleteByID hard-deletes a schedule.  Only a CANCELLED trip with no
// bookings and no ledger history may go; anything else answers
// ErrConflict so no booking ever dangles.
func (r *ScheduleRepo) DeleteByID(ctx context.Context, id uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	var status string
	if err := tx.QueryRowContext(ctx, "SELECT status FROM schedules WHERE id = ?", id).Scan(&status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrScheduleNotFound
		}
		return err
	}
	if status != model.TripCancelled {
		return ErrConflict
	}
	var cnt int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM bookings WHERE schedule_id = ?", id).Scan(&cnt); err != nil {
		return err
	}
	if cnt > 0 {
		return ErrConflict
	}
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM seat_claims WHERE schedule_id = ?", id).Scan(&cnt); err != nil {
		return err
	}
	if cnt > 0 {
		return ErrConflict
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM schedules WHERE id = ?", id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

func (r *ScheduleRepo) queryList(ctx context.Context, q string, args ...any) ([]*model.Schedule, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Schedule
	for rows.Next() {
		var s model.Schedule
		if err := rows.Scan(&s.ID, &s.BusID, &s.RouteID, &s.ServiceDate, &s.DepartureAt, &s.ArrivalAt,
			&s.PriceCents, &s.TotalSeats, &s.AvailableSeats, &s.Status, &s.Version, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
