// This file defines repository methods for routes.  A route ties an origin
// and destination to the operator serving them; schedules hang off routes.
// Like operators, routes are reference data with soft deletion.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/bus-ticket-reservation/internal/model"
)

// ErrRouteNotFound is returned when a route lookup fails.
var ErrRouteNotFound = errors.New("route not found")

// RouteRepo encapsulates all queries touching the routes table.
type RouteRepo struct {
	db *sql.DB
}

// NewRouteRepo constructs a RouteRepo with the provided DB handle.
func NewRouteRepo(db *sql.DB) *RouteRepo {
	return &RouteRepo{db: db}
}

const routeCols = "id, operator_id, origin, destination, distance_km, duration_min, is_active, created_at, updated_at"

func scanRoute(row *sql.Row) (*model.Route, error) {
	var rt model.Route
	if err := row.Scan(&rt.ID, &rt.OperatorID, &rt.Origin, &rt.Destination, &rt.DistanceKM, &rt.DurationMin, &rt.IsActive, &rt.CreatedAt, &rt.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRouteNotFound
		}
		return nil, err
	}
	return &rt, nil
}

// Create inserts a route and re-reads the row so default fields come back
// populated.
func (r *RouteRepo) Create(ctx context.Context, rt *model.Route) error {
	const qInsert = `INSERT INTO routes (operator_id, origin, destination, distance_km, duration_min)
	                 VALUES (?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, qInsert, rt.OperatorID, rt.Origin, rt.Destination, rt.DistanceKM, rt.DurationMin)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rt.ID = uint64(id)

	fresh, err := r.GetByID(ctx, rt.ID)
	if err != nil {
		return err
	}
	*rt = *fresh
	return nil
}

// GetByID fetches a route regardless of its active flag.
func (r *RouteRepo) GetByID(ctx context.Context, id uint64) (*model.Route, error) {
	const q = "SELECT " + routeCols + " FROM routes WHERE id = ?"
	return scanRoute(r.db.QueryRowContext(ctx, q, id))
}

// GetActiveByID fetches a route only when it is active.  Schedule creation
// refuses routes that were deactivated.
func (r *RouteRepo) GetActiveByID(ctx context.Context, id uint64) (*model.Route, error) {
	const q = "SELECT " + routeCols + " FROM routes WHERE id = ? AND is_active = 1"
	return scanRoute(r.db.QueryRowContext(ctx, q, id))
}

// ListByOperator returns all routes of one operator ordered by id.  Pass 0
// to list every route.
func (r *RouteRepo) ListByOperator(ctx context.Context, operatorID uint64) ([]*model.Route, error) {
	q := "SELECT " + routeCols + " FROM routes ORDER BY id"
	args := []any{}
	if operatorID != 0 {
		q = "SELECT " + routeCols + " FROM routes WHERE operator_id = ? ORDER BY id"
		args = append(args, operatorID)
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Route
	for rows.Next() {
		rt := new(model.Route)
		if err := rows.Scan(&rt.ID, &rt.OperatorID, &rt.Origin, &rt.Destination, &rt.DistanceKM, &rt.DurationMin, &rt.IsActive, &rt.CreatedAt, &rt.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, rt)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Update rewrites the mutable route fields with no-change detection.
func (r *RouteRepo) Update(ctx context.Context, rt *model.Route) error {
	cur, err := r.GetByID(ctx, rt.ID)
	if err != nil {
		return err
	}
	if cur.Origin == rt.Origin && cur.Destination == rt.Destination &&
		cur.DistanceKM == rt.DistanceKM && cur.DurationMin == rt.DurationMin && cur.IsActive == rt.IsActive {
		return ErrNoChange
	}
	const q = `UPDATE routes
	           SET origin = ?, destination = ?, distance_km = ?, duration_min = ?, is_active = ?, updated_at = CURRENT_TIMESTAMP
	           WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, rt.Origin, rt.Destination, rt.DistanceKM, rt.DurationMin, rt.IsActive, rt.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Deactivate soft-deletes a route.
func (r *RouteRepo) Deactivate(ctx context.Context, id uint64) error {
	const q = "UPDATE routes SET is_active = 0, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND is_active = 1"
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
