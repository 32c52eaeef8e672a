// This file defines repository methods for buses.  A bus fixes the seat
// capacity that every schedule created on it inherits; editing a bus never
// reaches already-created schedules, which copied total_seats at creation.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/bus-ticket-reservation/internal/model"
)

// ErrBusNotFound is returned when a bus lookup fails.
var ErrBusNotFound = errors.New("bus not found")

// ErrRegistrationExists is returned when a bus insert or update collides
// with an existing registration number.
var ErrRegistrationExists = errors.New("registration number already exists")

// BusRepo encapsulates all queries touching the buses table.
type BusRepo struct {
	db *sql.DB
}

// NewBusRepo constructs a BusRepo with the given DB handle.
func NewBusRepo(db *sql.DB) *BusRepo {
	return &BusRepo{db: db}
}

const busCols = "id, operator_id, registration_no, bus_type, total_seats, is_active, created_at, updated_at"

func scanBus(row *sql.Row) (*model.Bus, error) {
	var b model.Bus
	if err := row.Scan(&b.ID, &b.OperatorID, &b.RegistrationNo, &b.BusType, &b.TotalSeats, &b.IsActive, &b.CreatedAt, &b.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBusNotFound
		}
		return nil, err
	}
	return &b, nil
}

// Create inserts a bus and re-reads the row to populate defaults.  A
// duplicate registration number surfaces as ErrRegistrationExists.
func (r *BusRepo) Create(ctx context.Context, b *model.Bus) error {
	const qInsert = `INSERT INTO buses (operator_id, registration_no, bus_type, total_seats)
	                 VALUES (?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, qInsert, b.OperatorID, b.RegistrationNo, b.BusType, b.TotalSeats)
	if err != nil {
		if strings.Contains(err.Error(), "1062") {
			return ErrRegistrationExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)

	fresh, err := r.GetByID(ctx, b.ID)
	if err != nil {
		return err
	}
	*b = *fresh
	return nil
}

// GetByID fetches a bus regardless of its active flag.
func (r *BusRepo) GetByID(ctx context.Context, id uint64) (*model.Bus, error) {
	const q = "SELECT " + busCols + " FROM buses WHERE id = ?"
	return scanBus(r.db.QueryRowContext(ctx, q, id))
}

// GetActiveByID fetches a bus only when it is active.  Schedule creation
// refuses buses that were taken out of service.
func (r *BusRepo) GetActiveByID(ctx context.Context, id uint64) (*model.Bus, error) {
	const q = "SELECT " + busCols + " FROM buses WHERE id = ? AND is_active = 1"
	return scanBus(r.db.QueryRowContext(ctx, q, id))
}

// ListByOperator returns all buses of one operator ordered by id.  Pass 0
// to list the whole fleet.
func (r *BusRepo) ListByOperator(ctx context.Context, operatorID uint64) ([]*model.Bus, error) {
	q := "SELECT " + busCols + " FROM buses ORDER BY id"
	args := []any{}
	if operatorID != 0 {
		q = "SELECT " + busCols + " FROM buses WHERE operator_id = ? ORDER BY id"
		args = append(args, operatorID)
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Bus
	for rows.Next() {
		b := new(model.Bus)
		if err := rows.Scan(&b.ID, &b.OperatorID, &b.RegistrationNo, &b.BusType, &b.TotalSeats, &b.IsActive, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Update rewrites the mutable bus fields with no-change detection.  Seat
// capacity edits only affect schedules created afterwards.
func (r *BusRepo) Update(ctx context.Context, b *model.Bus) error {
	cur, err := r.GetByID(ctx, b.ID)
	if err != nil {
		return err
	}
	if cur.RegistrationNo == b.RegistrationNo && cur.BusType == b.BusType &&
		cur.TotalSeats == b.TotalSeats && cur.IsActive == b.IsActive {
		return ErrNoChange
	}
	const q = `UPDATE buses
	           SET registration_no = ?, bus_type = ?, total_seats = ?, is_active = ?, updated_at = CURRENT_TIMESTAMP
	           WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, b.RegistrationNo, b.BusType, b.TotalSeats, b.IsActive, b.ID)
	if err != nil {
		if strings.Contains(err.Error(), "1062") {
			return ErrRegistrationExists
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Deactivate soft-deletes a bus.
func (r *BusRepo) Deactivate(ctx context.Context, id uint64) error {
	const q = "UPDATE buses SET is_active = 0, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND is_active = 1"
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
