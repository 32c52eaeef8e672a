package repository

import (
	"context"
	"strings"
)

// TripSearchQuery defines filters & pagination for the public trip search.
type TripSearchQuery struct {
	Origin      string
	Destination string
	Date        string // YYYY-MM-DD, optional
	BusType     string
	Operator    string
	TimeFilter  string
	Page        int
	PageSize    int
}

type PublicTripRow struct {
	ID             uint64  `json:"id"`
	Origin         string  `json:"origin"`
	Destination    string  `json:"destination"`
	DistanceKM     uint32  `json:"distance_km"`
	DurationMin    uint32  `json:"duration_min"`
	ServiceDate    string  `json:"service_date"`
	DepartureAt    string  `json:"departure_at"`
	ArrivalAt      string  `json:"arrival_at"`
	PriceCents     uint32  `json:"price_cents"`
	Price          float64 `json:"price"`
	TotalSeats     uint32  `json:"total_seats"`
	AvailableSeats uint32  `json:"available_seats"`
	BusType        string  `json:"bus_type"`
	RegistrationNo string  `json:"registration_no"`
	OperatorID     uint64  `json:"operator_id"`
	OperatorName   string  `json:"operator_name"`
}

// SearchTrips finds bookable departures.  Origin and destination match
// case-insensitively; only SCHEDULED trips are listed and, unless the
// time filter says "any", only future departures.
func (r *ScheduleRepo) SearchTrips(ctx context.Context, q TripSearchQuery) ([]PublicTripRow, int64, error) {
	where := []string{"sc.status = 'SCHEDULED'"}
	args := []any{}

	switch strings.ToLower(q.TimeFilter) {
	case "any":
	default:
		where = append(where, "sc.departure_at > NOW()")
	}

	if q.Origin != "" {
		where = append(where, "LOWER(rt.origin) = LOWER(?)")
		args = append(args, strings.TrimSpace(q.Origin))
	}
	if q.Destination != "" {
		where = append(where, "LOWER(rt.destination) = LOWER(?)")
		args = append(args, strings.TrimSpace(q.Destination))
	}
	if q.Date != "" {
		where = append(where, "sc.service_date = ?")
		args = append(args, q.Date)
	}
	if q.BusType != "" {
		where = append(where, "bu.bus_type = ?")
		args = append(args, strings.ToUpper(strings.TrimSpace(q.BusType)))
	}
	if q.Operator != "" {
		where = append(where, "LOWER(op.name) LIKE ?")
		args = append(args, "%"+strings.ToLower(q.Operator)+"%")
	}

	cond := strings.Join(where, " AND ")

	var total int64
	countSQL := `SELECT COUNT(*)
		FROM schedules sc
		JOIN routes rt    ON rt.id = sc.route_id
		JOIN buses bu     ON bu.id = sc.bus_id
		JOIN operators op ON op.id = bu.operator_id
		WHERE ` + cond
	if err := r.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := q.PageSize
	offset := (q.Page - 1) * q.PageSize

	dataSQL := `SELECT
			sc.id,
			rt.origin,
			rt.destination,
			rt.distance_km,
			rt.duration_min,
			DATE_FORMAT(sc.service_date, '%Y-%m-%d') AS service_date,
			DATE_FORMAT(sc.departure_at, '%Y-%m-%d %T') AS departure_at,
			DATE_FORMAT(sc.arrival_at,   '%Y-%m-%d %T') AS arrival_at,
			sc.price_cents,
			sc.total_seats,
			sc.available_seats,
			bu.bus_type,
			bu.registration_no,
			op.id   AS operator_id,
			op.name AS operator_name
		FROM schedules sc
		JOIN routes rt    ON rt.id = sc.route_id
		JOIN buses bu     ON bu.id = sc.bus_id
		JOIN operators op ON op.id = bu.operator_id
		WHERE ` + cond + `
		ORDER BY sc.departure_at ASC
		LIMIT ? OFFSET ?`

	argsData := append(append([]any{}, args...), limit, offset)

	rows, err := r.db.QueryContext(ctx, dataSQL, argsData...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]PublicTripRow, 0, limit)
	for rows.Next() {
		var d PublicTripRow
		if err := rows.Scan(
			&d.ID,
			&d.Origin,
			&d.Destination,
			&d.DistanceKM,
			&d.DurationMin,
			&d.ServiceDate,
			&d.DepartureAt,
			&d.ArrivalAt,
			&d.PriceCents,
			&d.TotalSeats,
			&d.AvailableSeats,
			&d.BusType,
			&d.RegistrationNo,
			&d.OperatorID,
			&d.OperatorName,
		); err != nil {
			return nil, 0, err
		}
		d.Price = float64(d.PriceCents) / 100.0
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// GetTripDetail returns one schedule with its route, bus and operator
// joined, regardless of status, for the public trip page.
func (r *ScheduleRepo) GetTripDetail(ctx context.Context, id uint64) (*PublicTripRow, error) {
	const q = `SELECT
			sc.id,
			rt.origin,
			rt.destination,
			rt.distance_km,
			rt.duration_min,
			DATE_FORMAT(sc.service_date, '%Y-%m-%d'),
			DATE_FORMAT(sc.departure_at, '%Y-%m-%d %T'),
			DATE_FORMAT(sc.arrival_at,   '%Y-%m-%d %T'),
			sc.price_cents,
			sc.total_seats,
			sc.available_seats,
			bu.bus_type,
			bu.registration_no,
			op.id,
			op.name
		FROM schedules sc
		JOIN routes rt    ON rt.id = sc.route_id
		JOIN buses bu     ON bu.id = sc.bus_id
		JOIN operators op ON op.id = bu.operator_id
		WHERE sc.id = ?`
	var d PublicTripRow
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&d.ID,
		&d.Origin,
		&d.Destination,
		&d.DistanceKM,
		&d.DurationMin,
		&d.ServiceDate,
		&d.DepartureAt,
		&d.ArrivalAt,
		&d.PriceCents,
		&d.TotalSeats,
		&d.AvailableSeats,
		&d.BusType,
		&d.RegistrationNo,
		&d.OperatorID,
		&d.OperatorName,
	)
	if err != nil {
		return nil, err
	}
	d.Price = float64(d.PriceCents) / 100.0
	return &d, nil
}
