package repository

import (
	"context"
	"database/sql"
)

// StatsRepo aggregates reporting queries for the admin dashboard.  All
// sums are integer cents; "sold" means a booking that is not cancelled.
type StatsRepo struct {
	db *sql.DB
}

// NewStatsRepo returns a new StatsRepo bound to the given database.
func NewStatsRepo(db *sql.DB) *StatsRepo { return &StatsRepo{db: db} }

// OverviewStats carries the headline counters.
type OverviewStats struct {
	Customers         int64 `json:"customers"`
	ActiveCustomers   int64 `json:"active_customers"`
	Operators         int64 `json:"operators"`
	Routes            int64 `json:"routes"`
	Buses             int64 `json:"buses"`
	Schedules         int64 `json:"schedules"`
	BookingsConfirmed int64 `json:"bookings_confirmed"`
	BookingsCancelled int64 `json:"bookings_cancelled"`
	RevenueCents      int64 `json:"revenue_cents"`
	RefundedCents     int64 `json:"refunded_cents"`
}

// Overview returns the headline counters in a single round trip.
func (r *StatsRepo) Overview(ctx context.Context) (*OverviewStats, error) {
	const q = `SELECT
		(SELECT COUNT(*) FROM users WHERE role = 'CUSTOMER'),
		(SELECT COUNT(DISTINCT user_id) FROM bookings WHERE status <> 'CANCELLED'),
		(SELECT COUNT(*) FROM operators WHERE is_active = 1),
		(SELECT COUNT(*) FROM routes WHERE is_active = 1),
		(SELECT COUNT(*) FROM buses WHERE is_active = 1),
		(SELECT COUNT(*) FROM schedules),
		(SELECT COUNT(*) FROM bookings WHERE status = 'CONFIRMED'),
		(SELECT COUNT(*) FROM bookings WHERE status = 'CANCELLED'),
		(SELECT COALESCE(SUM(total_cents), 0) FROM bookings WHERE status <> 'CANCELLED'),
		(SELECT COALESCE(SUM(refund_cents), 0) FROM bookings WHERE status = 'CANCELLED')`
	var s OverviewStats
	err := r.db.QueryRowContext(ctx, q).Scan(
		&s.Customers, &s.ActiveCustomers, &s.Operators, &s.Routes, &s.Buses,
		&s.Schedules, &s.BookingsConfirmed, &s.BookingsCancelled,
		&s.RevenueCents, &s.RefundedCents,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// RouteStats is one row of the top-routes ranking.
type RouteStats struct {
	RouteID      uint64 `json:"route_id"`
	Origin       string `json:"origin"`
	Destination  string `json:"destination"`
	Bookings     int64  `json:"bookings"`
	SeatsSold    int64  `json:"seats_sold"`
	RevenueCents int64  `json:"revenue_cents"`
}

// TopRoutes ranks routes by sold bookings, best first.
func (r *StatsRepo) TopRoutes(ctx context.Context, limit int) ([]RouteStats, error) {
	const q = `SELECT rt.id, rt.origin, rt.destination,
	                  COUNT(b.id), COALESCE(SUM(b.seat_count), 0), COALESCE(SUM(b.total_cents), 0)
	           FROM bookings b
	           JOIN schedules sc ON sc.id = b.schedule_id
	           JOIN routes rt    ON rt.id = sc.route_id
	           WHERE b.status <> 'CANCELLED'
	           GROUP BY rt.id, rt.origin, rt.destination
	           ORDER BY COUNT(b.id) DESC, rt.id ASC
	           LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]RouteStats, 0, limit)
	for rows.Next() {
		var s RouteStats
		if err := rows.Scan(&s.RouteID, &s.Origin, &s.Destination, &s.Bookings, &s.SeatsSold, &s.RevenueCents); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// DailyStats is one day of the booking trend.
type DailyStats struct {
	Day          string `json:"day"`
	Bookings     int64  `json:"bookings"`
	RevenueCents int64  `json:"revenue_cents"`
}

// DailyTrend returns per-day booking counts and sold revenue for the last
// `days` days including today.  Days without bookings are absent; the
// handler leaves gap-filling to the client.
func (r *StatsRepo) DailyTrend(ctx context.Context, days int) ([]DailyStats, error) {
	const q = `SELECT DATE_FORMAT(DATE(created_at), '%Y-%m-%d') AS day,
	                  COUNT(*),
	                  COALESCE(SUM(CASE WHEN status <> 'CANCELLED' THEN total_cents ELSE 0 END), 0)
	           FROM bookings
	           WHERE created_at >= DATE_SUB(CURDATE(), INTERVAL ? DAY)
	           GROUP BY day
	           ORDER BY day ASC`
	rows, err := r.db.QueryContext(ctx, q, days-1)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]DailyStats, 0, days)
	for rows.Next() {
		var s DailyStats
		if err := rows.Scan(&s.Day, &s.Bookings, &s.RevenueCents); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// OperatorStats is one row of the operator performance report.
type OperatorStats struct {
	OperatorID   uint64 `json:"operator_id"`
	Name         string `json:"name"`
	Trips        int64  `json:"trips"`
	Bookings     int64  `json:"bookings"`
	SeatsSold    int64  `json:"seats_sold"`
	RevenueCents int64  `json:"revenue_cents"`
}

// OperatorPerformance reports trips run and tickets sold per operator,
// highest revenue first.  Operators without any schedule still appear
// with zero counts.
func (r *StatsRepo) OperatorPerformance(ctx context.Context) ([]OperatorStats, error) {
	const q = `SELECT op.id, op.name,
	                  COUNT(DISTINCT sc.id),
	                  COUNT(DISTINCT CASE WHEN b.status <> 'CANCELLED' THEN b.id END),
	                  COALESCE(SUM(CASE WHEN b.status <> 'CANCELLED' THEN b.seat_count ELSE 0 END), 0),
	                  COALESCE(SUM(CASE WHEN b.status <> 'CANCELLED' THEN b.total_cents ELSE 0 END), 0)
	           FROM operators op
	           LEFT JOIN buses bu     ON bu.operator_id = op.id
	           LEFT JOIN schedules sc ON sc.bus_id = bu.id
	           LEFT JOIN bookings b   ON b.schedule_id = sc.id
	           WHERE op.is_active = 1
	           GROUP BY op.id, op.name
	           ORDER BY COALESCE(SUM(CASE WHEN b.status <> 'CANCELLED' THEN b.total_cents ELSE 0 END), 0) DESC, op.id ASC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OperatorStats
	for rows.Next() {
		var s OperatorStats
		if err := rows.Scan(&s.OperatorID, &s.Name, &s.Trips, &s.Bookings, &s.SeatsSold, &s.RevenueCents); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
