package model

import "time"

// Route represents a fixed origin/destination pair served by an operator,
// from the `routes` table.  A route by itself carries no departure times;
// those live on schedules.
//
// Fields:
//  ID          – primary key identifier.
//  OperatorID  – operator serving this route.
//  Origin      – departure city.
//  Destination – arrival city.
//  DistanceKM  – driving distance in kilometres.
//  DurationMin – nominal travel time in minutes.
//  IsActive    – soft-delete flag; inactive routes refuse new schedules.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Route struct {
	ID          uint64    // routes.id
	OperatorID  uint64    // routes.operator_id
	Origin      string    // routes.origin
	Destination string    // routes.destination
	DistanceKM  uint32    // routes.distance_km
	DurationMin uint32    // routes.duration_min
	IsActive    bool      // routes.is_active
	CreatedAt   time.Time // routes.created_at
	UpdatedAt   time.Time // routes.updated_at
}
