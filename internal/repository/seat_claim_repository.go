// This file implements the seat ledger.  One row per (booking, seat);
// active rows are the claims that currently occupy a seat, released rows
// stay behind as history.  The UNIQUE key over (schedule_id, seat_number,
// active) is the database-level barrier: two active claims on the same
// seat of the same trip cannot coexist no matter what the application
// layer believed, while released rows (active = NULL) never collide.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/bus-ticket-reservation/internal/model"
)

// ErrSeatTaken indicates that the unique seat barrier rejected a claim
// because an active claim for the same seat already exists.
var ErrSeatTaken = errors.New("seat already claimed")

// SeatClaimRepo manages rows of the seat ledger.
type SeatClaimRepo struct {
	db *sql.DB
}

// NewSeatClaimRepo constructs a SeatClaimRepo with the given DB handle.
func NewSeatClaimRepo(db *sql.DB) *SeatClaimRepo {
	return &SeatClaimRepo{db: db}
}

const seatClaimCols = `id, booking_id, schedule_id, seat_number, passenger_name, passenger_age,
	passenger_gender, active, released_at, created_at`

// ActiveSeatNumbersTx returns the seat numbers currently claimed on a
// schedule, read inside tx so the result is consistent with the row lock
// the caller holds on the schedule.
func (r *SeatClaimRepo) ActiveSeatNumbersTx(ctx context.Context, tx *sql.Tx, scheduleID uint64) ([]string, error) {
	const q = "SELECT seat_number FROM seat_claims WHERE schedule_id = ? AND active = 1 ORDER BY seat_number"
	rows, err := tx.QueryContext(ctx, q, scheduleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ClaimTx inserts one active ledger row per passenger in a single
// statement.  All rows land or none do: if any seat trips the unique
// barrier the whole INSERT fails with ErrSeatTaken and the caller rolls
// the transaction back.
func (r *SeatClaimRepo) ClaimTx(ctx context.Context, tx *sql.Tx, bookingID, scheduleID uint64, claims []model.SeatClaim) error {
	if len(claims) == 0 {
		return nil
	}
	placeholders := make([]string, 0, len(claims))
	args := make([]any, 0, len(claims)*6)
	for _, c := range claims {
		placeholders = append(placeholders, "(?, ?, ?, ?, ?, ?)")
		args = append(args, bookingID, scheduleID, c.SeatNumber, c.PassengerName, c.PassengerAge, c.PassengerGender)
	}
	q := `INSERT INTO seat_claims (booking_id, schedule_id, seat_number, passenger_name, passenger_age, passenger_gender)
	      VALUES ` + strings.Join(placeholders, ", ")
	if _, err := tx.ExecContext(ctx, q, args...); err != nil {
		if strings.Contains(err.Error(), "1062") {
			return ErrSeatTaken
		}
		return err
	}
	return nil
}

// ReleaseByBookingTx deactivates every active claim of a booking and
// stamps the release time.  Returns how many seats were freed so the
// caller knows what to hand back to the availability counter.
func (r *SeatClaimRepo) ReleaseByBookingTx(ctx context.Context, tx *sql.Tx, bookingID uint64) (int, error) {
	const q = `UPDATE seat_claims SET active = NULL, released_at = NOW() WHERE booking_id = ? AND active = 1`
	res, err := tx.ExecContext(ctx, q, bookingID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// ListByBookingTx returns all claims of a booking inside tx, active or not.
func (r *SeatClaimRepo) ListByBookingTx(ctx context.Context, tx *sql.Tx, bookingID uint64) ([]*model.SeatClaim, error) {
	const q = "SELECT " + seatClaimCols + " FROM seat_claims WHERE booking_id = ? ORDER BY seat_number"
	rows, err := tx.QueryContext(ctx, q, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSeatClaims(rows)
}

// ListByBooking returns all claims of a booking, newest ledger rows kept in
// seat order for stable display.
func (r *SeatClaimRepo) ListByBooking(ctx context.Context, bookingID uint64) ([]*model.SeatClaim, error) {
	const q = "SELECT " + seatClaimCols + " FROM seat_claims WHERE booking_id = ? ORDER BY seat_number"
	rows, err := r.db.QueryContext(ctx, q, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSeatClaims(rows)
}

// ListActiveBySchedule returns the active claims of a schedule for the
// public seat map.
func (r *SeatClaimRepo) ListActiveBySchedule(ctx context.Context, scheduleID uint64) ([]*model.SeatClaim, error) {
	const q = "SELECT " + seatClaimCols + " FROM seat_claims WHERE schedule_id = ? AND active = 1 ORDER BY seat_number"
	rows, err := r.db.QueryContext(ctx, q, scheduleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSeatClaims(rows)
}

func collectSeatClaims(rows *sql.Rows) ([]*model.SeatClaim, error) {
	var out []*model.SeatClaim
	for rows.Next() {
		var c model.SeatClaim
		if err := rows.Scan(&c.ID, &c.BookingID, &c.ScheduleID, &c.SeatNumber, &c.PassengerName,
			&c.PassengerAge, &c.PassengerGender, &c.Active, &c.ReleasedAt, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
