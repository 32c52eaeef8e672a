package model

import "time"

// Trip status values stored in schedules.status.
const (
	TripScheduled = "SCHEDULED"
	TripRunning   = "RUNNING"
	TripCompleted = "COMPLETED"
	TripCancelled = "CANCELLED"
)

// Schedule represents one trip instance from the `schedules` table: a
// concrete departure of a bus on a route on a service date.  TotalSeats is
// copied from the bus at creation time so later vehicle edits cannot skew a
// live trip.  AvailableSeats is the inventory counter; outside of an open
// transaction it always equals TotalSeats minus the number of active seat
// claims, except on a CANCELLED trip where it is zeroed and frozen.
//
// Fields:
//  ID             – primary key identifier.
//  BusID          – vehicle driving the trip.
//  RouteID        – route being served.
//  ServiceDate    – calendar day of the departure.
//  DepartureAt    – full departure timestamp (UTC).
//  ArrivalAt      – full arrival timestamp (UTC), after DepartureAt.
//  PriceCents     – price per seat in cents.
//  TotalSeats     – seat capacity fixed at creation.
//  AvailableSeats – seats still open for sale.
//  Status         – SCHEDULED, RUNNING, COMPLETED or CANCELLED.
//  Version        – bumped on every counter write, for audit.
//  CreatedAt      – creation timestamp.
//  UpdatedAt      – last update timestamp.
type Schedule struct {
	ID             uint64    // schedules.id
	BusID          uint64    // schedules.bus_id
	RouteID        uint64    // schedules.route_id
	ServiceDate    time.Time // schedules.service_date
	DepartureAt    time.Time // schedules.departure_at
	ArrivalAt      time.Time // schedules.arrival_at
	PriceCents     uint32    // schedules.price_cents
	TotalSeats     uint32    // schedules.total_seats
	AvailableSeats uint32    // schedules.available_seats
	Status         string    // schedules.status
	Version        uint32    // schedules.version
	CreatedAt      time.Time // schedules.created_at
	UpdatedAt      time.Time // schedules.updated_at
}
