package model

import "time"

// Bus type values stored in buses.bus_type.
const (
	BusTypeStandard = "STANDARD"
	BusTypeAC       = "AC"
	BusTypeSleeper  = "SLEEPER"
)

// Bus represents a physical vehicle from the `buses` table.  Seat numbers
// are not stored per bus; a bus with N total seats exposes seats "01".."NN"
// laid out four to a row, and the seat ledger tracks occupancy per trip.
//
// Fields:
//  ID             – primary key identifier.
//  OperatorID     – operator owning the vehicle.
//  RegistrationNo – unique licence plate / registration code.
//  BusType        – STANDARD, AC or SLEEPER; affects pricing only.
//  TotalSeats     – number of passenger seats on the vehicle.
//  IsActive       – soft-delete flag; inactive buses refuse new schedules.
//  CreatedAt      – creation timestamp.
//  UpdatedAt      – last update timestamp.
type Bus struct {
	ID             uint64    // buses.id
	OperatorID     uint64    // buses.operator_id
	RegistrationNo string    // buses.registration_no
	BusType        string    // buses.bus_type
	TotalSeats     uint32    // buses.total_seats
	IsActive       bool      // buses.is_active
	CreatedAt      time.Time // buses.created_at
	UpdatedAt      time.Time // buses.updated_at
}
